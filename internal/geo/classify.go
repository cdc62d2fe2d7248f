// Package geo implements the per-site computations of the analysis
// pipeline: density estimation, co-location grouping, and area
// classification.
package geo

import (
	"math"
	"sort"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Area classification levels.
const (
	ClassRural    = "Rural"
	ClassSuburban = "Suburban"
	ClassUrban    = "Urban"
	ClassDense    = "Dense"
)

// ClassificationMode selects how density maps to an area class.
type ClassificationMode string

const (
	// ModeQuantile buckets each site against its own cluster's density
	// quantiles.
	ModeQuantile ClassificationMode = "quantile"
	// ModeThreshold buckets every site against global fixed cutoffs.
	ModeThreshold ClassificationMode = "threshold"
)

// Thresholds are the global density cutoffs for ModeThreshold, in sites
// per square kilometer. Valid thresholds satisfy Rural <= Suburban <= Urban;
// the configuration boundary enforces that before analysis starts.
type Thresholds struct {
	Rural    float64
	Suburban float64
	Urban    float64
}

// DefaultThresholds returns the standard global cutoffs.
func DefaultThresholds() Thresholds {
	return Thresholds{Rural: 10, Suburban: 50, Urban: 200}
}

// ClassifyAreas assigns an area class to every site.
// Rules:
//   - quantile mode: per cluster_id, q25/q50/q75 of the cluster's
//     densities split Rural / Suburban / Urban / Dense
//   - threshold mode: the global cutoffs split all sites regardless of
//     cluster
//   - every boundary compares with <=, so ties collapse toward the lower
//     class; a cluster with uniform density classifies entirely Rural
//
// densities must hold one value per site, index aligned; a mismatch or an
// unknown mode fails before any classification work.
func ClassifyAreas(sites []model.Site, densities []float64, mode ClassificationMode, th Thresholds) ([]string, error) {
	if len(densities) != len(sites) {
		return nil, eris.Errorf("geo: classification needs one density per site, have %d for %d sites", len(densities), len(sites))
	}
	switch mode {
	case ModeQuantile:
		return classifyQuantile(sites, densities), nil
	case ModeThreshold:
		return classifyThreshold(densities, th), nil
	default:
		return nil, eris.Errorf("geo: unknown classification mode %q", mode)
	}
}

func classifyQuantile(sites []model.Site, densities []float64) []string {
	byCluster := make(map[string][]int)
	for i := range sites {
		byCluster[sites[i].ClusterID] = append(byCluster[sites[i].ClusterID], i)
	}
	clusters := make([]string, 0, len(byCluster))
	for c := range byCluster {
		clusters = append(clusters, c)
	}
	sort.Strings(clusters)

	out := make([]string, len(sites))
	for _, c := range clusters {
		idxs := byCluster[c]
		vals := make([]float64, len(idxs))
		for k, i := range idxs {
			vals[k] = densities[i]
		}
		sort.Float64s(vals)

		q25 := quantile(vals, 0.25)
		q50 := quantile(vals, 0.50)
		q75 := quantile(vals, 0.75)
		for _, i := range idxs {
			out[i] = bucket(densities[i], q25, q50, q75)
		}
	}
	return out
}

func classifyThreshold(densities []float64, th Thresholds) []string {
	out := make([]string, len(densities))
	for i, d := range densities {
		out[i] = bucket(d, th.Rural, th.Suburban, th.Urban)
	}
	return out
}

func bucket(density, lower, middle, upper float64) string {
	switch {
	case density <= lower:
		return ClassRural
	case density <= middle:
		return ClassSuburban
	case density <= upper:
		return ClassUrban
	default:
		return ClassDense
	}
}

// quantile reads the p-quantile from sorted values, interpolating
// linearly between order statistics.
func quantile(sorted []float64, p float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := p * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac
}
