// Package pipeline sequences the analysis stages over a cleaned dataset:
// spatial index, density estimation, co-location grouping, classification.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/site-analysis-cli/internal/geo"
	"github.com/sells-group/site-analysis-cli/internal/geospatial"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Params control a single analysis run.
type Params struct {
	RadiusKM   float64
	ThresholdM float64
	Mode       geo.ClassificationMode
	Thresholds geo.Thresholds
	Workers    int
}

// Result holds the enriched sites plus the run's informational messages.
type Result struct {
	Sites       []model.EnrichedSite `json:"sites"`
	Messages    []string             `json:"messages"`
	GeneratedAt time.Time            `json:"generated_at"`
}

// Run enriches sites with density, co-location groups and area classes,
// preserving input order. An empty input is not an error: the result
// carries an explanatory message and no sites.
func Run(ctx context.Context, sites []model.Site, p Params) (*Result, error) {
	switch p.Mode {
	case geo.ModeQuantile, geo.ModeThreshold:
	default:
		return nil, eris.Errorf("pipeline: unknown classification mode %q", p.Mode)
	}

	log := zap.L().With(zap.Int("sites", len(sites)))
	result := &Result{GeneratedAt: clock.Now().UTC()}

	if len(sites) == 0 {
		result.Messages = append(result.Messages, "No valid rows after validation")
		log.Info("pipeline: nothing to analyze")
		return result, nil
	}

	pts := make([]geospatial.Point, len(sites))
	for i, s := range sites {
		pts[i] = geospatial.Point{Lat: s.Lat, Lon: s.Lon}
	}

	var (
		tree      *geospatial.BallTree
		densities []float64
		groups    []geo.Group
		classes   []string
	)

	steps := []struct {
		name string
		fn   func() error
	}{
		{"index", func() error {
			tree = geospatial.NewBallTree(pts)
			return nil
		}},
		{"density", func() error {
			var err error
			densities, err = geo.EstimateDensity(ctx, sites, tree, p.RadiusKM, p.Workers)
			return err
		}},
		{"grouping", func() error {
			var err error
			groups, err = geo.GroupColocated(ctx, sites, tree, p.ThresholdM, p.Workers)
			return err
		}},
		{"classification", func() error {
			var err error
			classes, err = geo.ClassifyAreas(sites, densities, p.Mode, p.Thresholds)
			return err
		}},
	}
	for _, step := range steps {
		start := time.Now()
		if err := step.fn(); err != nil {
			log.Error("pipeline: step failed", zap.String("step", step.name), zap.Error(err))
			return nil, eris.Wrapf(err, "pipeline: %s", step.name)
		}
		log.Debug("pipeline: step complete",
			zap.String("step", step.name),
			zap.Duration("took", time.Since(start)))
	}

	result.Sites = make([]model.EnrichedSite, len(sites))
	for i, s := range sites {
		result.Sites[i] = model.EnrichedSite{
			Site:      s,
			Density:   densities[i],
			GroupID:   groups[i].ID,
			GroupSize: groups[i].Size,
			AreaClass: classes[i],
		}
	}
	result.Messages = append(result.Messages, fmt.Sprintf("Processed %d sites successfully", len(sites)))

	log.Info("pipeline: run complete",
		zap.Float64("radius_km", p.RadiusKM),
		zap.Float64("threshold_m", p.ThresholdM),
		zap.String("mode", string(p.Mode)))
	return result, nil
}
