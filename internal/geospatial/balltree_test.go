package geospatial

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBallTreeEmpty(t *testing.T) {
	tree := NewBallTree(nil)
	assert.Equal(t, 0, tree.Len())
	assert.Empty(t, tree.QueryRadius(40.0, -74.0, 100))
}

func TestBallTreeSinglePoint(t *testing.T) {
	tree := NewBallTree([]Point{{Lat: 40.0, Lon: -74.0}})

	got := tree.QueryRadius(40.0, -74.0, 0)
	require.Len(t, got, 1)
	assert.Equal(t, 0, got[0].Index)
	assert.Equal(t, 0.0, got[0].DistanceKM)

	assert.Empty(t, tree.QueryRadius(41.0, -74.0, 1))
}

func TestBallTreeInclusiveBoundary(t *testing.T) {
	pts := []Point{
		{Lat: 40.0, Lon: -74.0},
		{Lat: 40.1, Lon: -74.2},
	}
	tree := NewBallTree(pts)

	// A query radius exactly equal to the pair distance must match: the
	// contract is d <= r, not d < r.
	d := Haversine(pts[0].Lat, pts[0].Lon, pts[1].Lat, pts[1].Lon)
	got := tree.QueryRadius(pts[0].Lat, pts[0].Lon, d)
	assert.Len(t, got, 2)
}

func TestBallTreeDuplicateCoordinates(t *testing.T) {
	pts := []Point{
		{Lat: 33.4, Lon: -112.1},
		{Lat: 33.4, Lon: -112.1},
		{Lat: 33.4, Lon: -112.1},
	}
	tree := NewBallTree(pts)

	got := tree.QueryRadius(33.4, -112.1, 0)
	indices := neighborIndices(got)
	assert.ElementsMatch(t, []int{0, 1, 2}, indices)
}

func TestBallTreeMatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	pts := make([]Point, 300)
	for i := range pts {
		pts[i] = Point{
			Lat: rng.Float64()*120 - 60,
			Lon: rng.Float64()*360 - 180,
		}
	}
	tree := NewBallTree(pts)

	radii := []float64{0.5, 10, 250, 2000}
	for q := 0; q < 50; q++ {
		origin := Point{
			Lat: rng.Float64()*120 - 60,
			Lon: rng.Float64()*360 - 180,
		}
		for _, r := range radii {
			want := bruteForceRadius(pts, origin, r)
			got := neighborIndices(tree.QueryRadius(origin.Lat, origin.Lon, r))
			sort.Ints(got)
			require.Equal(t, want, got, "origin=%v radius=%v", origin, r)
		}
	}
}

func TestBallTreeReportsExactDistances(t *testing.T) {
	pts := []Point{
		{Lat: 40.0, Lon: -74.0},
		{Lat: 40.5, Lon: -74.5},
		{Lat: 41.0, Lon: -75.0},
	}
	tree := NewBallTree(pts)

	for _, nb := range tree.QueryRadius(40.2, -74.2, 500) {
		want := Haversine(40.2, -74.2, pts[nb.Index].Lat, pts[nb.Index].Lon)
		assert.Equal(t, want, nb.DistanceKM)
	}
}

func bruteForceRadius(pts []Point, origin Point, radiusKM float64) []int {
	out := []int{}
	for i, p := range pts {
		if Haversine(origin.Lat, origin.Lon, p.Lat, p.Lon) <= radiusKM {
			out = append(out, i)
		}
	}
	sort.Ints(out)
	return out
}

func neighborIndices(nbs []Neighbor) []int {
	out := make([]int, len(nbs))
	for i, nb := range nbs {
		out[i] = nb.Index
	}
	return out
}
