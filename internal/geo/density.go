package geo

import (
	"context"
	"math"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/site-analysis-cli/internal/geospatial"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

// EstimateDensity computes the local point density for every site: the
// number of other sites within radiusKM, divided by the search disc area
// in square kilometers. The result is index aligned with sites.
//
// Radius queries are independent, so they fan out on a bounded errgroup;
// each worker writes only its own slot, which keeps the output identical
// to a sequential run.
func EstimateDensity(ctx context.Context, sites []model.Site, tree *geospatial.BallTree, radiusKM float64, workers int) ([]float64, error) {
	densities := make([]float64, len(sites))
	if len(sites) == 0 {
		return densities, nil
	}

	area := math.Pi * radiusKM * radiusKM
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(workers))
	for i := range sites {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// Every site matches itself at distance zero; the self match
			// is excluded from the count.
			neighbors := len(tree.QueryRadius(sites[i].Lat, sites[i].Lon, radiusKM)) - 1
			if neighbors < 0 {
				neighbors = 0
			}
			densities[i] = float64(neighbors) / area
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, eris.Wrap(err, "geo: estimate density")
	}
	return densities, nil
}

func workerCount(n int) int {
	if n > 0 {
		return n
	}
	return runtime.GOMAXPROCS(0)
}
