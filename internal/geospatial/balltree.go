package geospatial

import "sort"

// Point is a WGS84 coordinate in degrees.
type Point struct {
	Lat float64
	Lon float64
}

// Neighbor is one radius-query match. Index refers to the position of the
// point in the slice the tree was built from.
type Neighbor struct {
	Index      int
	DistanceKM float64
}

// leafSize is the node size below which ranges are scanned linearly.
const leafSize = 16

// radiusPad absorbs floating-point rounding in covering radii so pruning
// can never discard a point that an exact comparison would keep.
const radiusPad = 1e-7

type node struct {
	start, end  int32 // half-open range into idx
	left, right int32 // -1 on leaves
	centerLat   float64
	centerLon   float64
	radiusKM    float64 // covers every point in [start, end)
}

// BallTree answers exact within-radius queries over a fixed point set.
// Construction permutes an index slice; the points themselves are shared
// with the caller and never reordered. A built tree is immutable and safe
// for concurrent queries.
type BallTree struct {
	pts   []Point
	idx   []int32
	nodes []node
	root  int32
}

// NewBallTree builds an index over pts in O(n log n). An empty slice is
// valid; every query on the resulting tree returns no matches.
func NewBallTree(pts []Point) *BallTree {
	t := &BallTree{pts: pts, root: -1}
	if len(pts) == 0 {
		return t
	}
	t.idx = make([]int32, len(pts))
	for i := range t.idx {
		t.idx[i] = int32(i)
	}
	t.nodes = make([]node, 0, 2*len(pts)/leafSize+1)
	t.root = t.build(0, int32(len(pts)))
	return t
}

// Len returns the number of indexed points.
func (t *BallTree) Len() int {
	return len(t.pts)
}

func (t *BallTree) build(start, end int32) int32 {
	minLat, maxLat := t.pts[t.idx[start]].Lat, t.pts[t.idx[start]].Lat
	minLon, maxLon := t.pts[t.idx[start]].Lon, t.pts[t.idx[start]].Lon
	for _, pi := range t.idx[start+1 : end] {
		p := t.pts[pi]
		if p.Lat < minLat {
			minLat = p.Lat
		}
		if p.Lat > maxLat {
			maxLat = p.Lat
		}
		if p.Lon < minLon {
			minLon = p.Lon
		}
		if p.Lon > maxLon {
			maxLon = p.Lon
		}
	}

	n := node{
		start:     start,
		end:       end,
		left:      -1,
		right:     -1,
		centerLat: (minLat + maxLat) / 2,
		centerLon: (minLon + maxLon) / 2,
	}
	for _, pi := range t.idx[start:end] {
		p := t.pts[pi]
		if d := Haversine(n.centerLat, n.centerLon, p.Lat, p.Lon); d > n.radiusKM {
			n.radiusKM = d
		}
	}
	n.radiusKM += radiusPad

	id := int32(len(t.nodes))
	t.nodes = append(t.nodes, n)
	if end-start <= leafSize {
		return id
	}

	// Split the wider axis at its median. Recursion depth stays O(log n)
	// because the median split halves the range every level.
	seg := t.idx[start:end]
	if maxLat-minLat >= maxLon-minLon {
		sort.Slice(seg, func(i, j int) bool { return t.pts[seg[i]].Lat < t.pts[seg[j]].Lat })
	} else {
		sort.Slice(seg, func(i, j int) bool { return t.pts[seg[i]].Lon < t.pts[seg[j]].Lon })
	}
	mid := start + (end-start)/2

	left := t.build(start, mid)
	right := t.build(mid, end)
	t.nodes[id].left = left
	t.nodes[id].right = right
	return id
}

// QueryRadius returns every indexed point within radiusKM of (lat, lon),
// boundary inclusive (d <= radiusKM). Pruning uses ball covering radii and
// the triangle inequality, so it only ever skips points that provably
// cannot match; every surviving candidate is verified with Haversine.
// Result order is unspecified.
func (t *BallTree) QueryRadius(lat, lon, radiusKM float64) []Neighbor {
	if t.root < 0 || radiusKM < 0 {
		return nil
	}

	var out []Neighbor
	stack := make([]int32, 1, 64)
	stack[0] = t.root
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		nd := &t.nodes[id]

		if Haversine(lat, lon, nd.centerLat, nd.centerLon)-nd.radiusKM > radiusKM {
			continue
		}
		if nd.left < 0 {
			for _, pi := range t.idx[nd.start:nd.end] {
				p := t.pts[pi]
				if d := Haversine(lat, lon, p.Lat, p.Lon); d <= radiusKM {
					out = append(out, Neighbor{Index: int(pi), DistanceKM: d})
				}
			}
			continue
		}
		stack = append(stack, nd.left, nd.right)
	}
	return out
}
