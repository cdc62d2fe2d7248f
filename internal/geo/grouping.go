package geo

import (
	"context"
	"fmt"
	"hash/fnv"
	"sort"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-analysis-cli/internal/geospatial"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Group is the co-location assignment for one site.
type Group struct {
	ID   string
	Size int
}

// groupIDSep separates member ids inside the group hash so that adjacent
// ids cannot collide by concatenation.
var groupIDSep = []byte{0x1f}

// GroupColocated connects sites into co-location groups: two sites are
// linked when their great-circle distance is strictly below thresholdM
// meters, and groups are the connected components of those links. The
// result is index aligned with sites; a site with no links forms its own
// group of size 1.
func GroupColocated(ctx context.Context, sites []model.Site, tree *geospatial.BallTree, thresholdM float64, workers int) ([]Group, error) {
	n := len(sites)
	groups := make([]Group, n)
	if n == 0 {
		return groups, nil
	}
	thresholdKM := thresholdM / 1000.0

	// Candidate edges per site. Index queries are boundary inclusive while
	// the co-location rule is strict <, so candidates at exactly the
	// threshold distance are rejected here.
	candidates := make([][]int32, n)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))
	for i := range sites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			nbs := tree.QueryRadius(sites[i].Lat, sites[i].Lon, thresholdKM)
			edges := make([]int32, 0, len(nbs))
			for _, nb := range nbs {
				if nb.Index == i || nb.DistanceKM >= thresholdKM {
					continue
				}
				edges = append(edges, int32(nb.Index))
			}
			sort.Slice(edges, func(a, b int) bool { return edges[a] < edges[b] })
			candidates[i] = edges
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "geo: co-location query")
	}

	// Sequential union pass. union(i, j) and union(j, i) collapse to the
	// same component, so connectivity holds no matter which endpoint
	// discovered a pair.
	uf := newUnionFind(n)
	for i, edges := range candidates {
		for _, j := range edges {
			uf.union(int32(i), j)
		}
	}

	members := make(map[int32][]int)
	for i := range n {
		root := uf.find(int32(i))
		members[root] = append(members[root], i)
	}

	for _, idxs := range members {
		ids := make([]string, len(idxs))
		for k, i := range idxs {
			ids[k] = sites[i].SiteID
		}
		sort.Strings(ids)
		id := groupID(ids)
		for _, i := range idxs {
			groups[i] = Group{ID: id, Size: len(idxs)}
		}
	}
	return groups, nil
}

// groupID hashes the sorted member site_ids with FNV-1a 64. The id is a
// pure function of group membership: the same members produce the same id
// across runs, processes, and input permutations.
func groupID(sortedIDs []string) string {
	h := fnv.New64a()
	for _, id := range sortedIDs {
		h.Write([]byte(id))
		h.Write(groupIDSep)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

// unionFind is a disjoint-set forest with union by rank. find walks and
// compresses iteratively, so chained components of any length cannot
// overflow the stack.
type unionFind struct {
	parent []int32
	rank   []uint8
}

func newUnionFind(n int) *unionFind {
	parent := make([]int32, n)
	for i := range parent {
		parent[i] = int32(i)
	}
	return &unionFind{parent: parent, rank: make([]uint8, n)}
}

func (u *unionFind) find(x int32) int32 {
	root := x
	for u.parent[root] != root {
		root = u.parent[root]
	}
	for u.parent[x] != root {
		u.parent[x], x = root, u.parent[x]
	}
	return root
}

func (u *unionFind) union(a, b int32) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if u.rank[ra] < u.rank[rb] {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
	if u.rank[ra] == u.rank[rb] {
		u.rank[ra]++
	}
}
