// Package ingest parses tabular site data from files and databases and
// validates raw rows into model.Site records. Data-quality problems are
// reported as messages on the result, never as errors.
package ingest

import (
	"fmt"
	"math"
	"strconv"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Dataset is a parsed tabular input: one header row plus raw string rows.
type Dataset struct {
	Headers []string
	Rows    [][]string
}

// CleanResult is the outcome of validating a Dataset.
type CleanResult struct {
	Sites    []model.Site
	Extras   []string // passthrough column names, input order
	Messages []string
	Dropped  int
	Total    int
}

// dropCounts tracks per-reason row drops. Rows failing several checks
// count once, under the first failing check.
type dropCounts struct {
	missing       int
	nonNumericLat int
	nonNumericLon int
	badCoords     int
}

func (d dropCounts) messages(total, kept int) []string {
	var msgs []string
	if d.nonNumericLat > 0 {
		msgs = append(msgs, fmt.Sprintf("Dropped %d rows with non-numeric lat", d.nonNumericLat))
	}
	if d.nonNumericLon > 0 {
		msgs = append(msgs, fmt.Sprintf("Dropped %d rows with non-numeric lon", d.nonNumericLon))
	}
	if d.badCoords > 0 {
		msgs = append(msgs, fmt.Sprintf("Dropped %d rows with invalid coordinates", d.badCoords))
	}
	if dropped := total - kept; dropped > 0 {
		msgs = append(msgs, fmt.Sprintf("Dropped %d invalid rows (from %d total)", dropped, total))
	}
	return msgs
}

func inBounds(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}

// Clean validates ds against the required schema and converts surviving
// rows to Sites. A missing required column yields an empty result with a
// message; invalid rows are dropped and counted per reason.
func Clean(ds Dataset) CleanResult {
	res := CleanResult{Total: len(ds.Rows)}

	colIdx := make(map[string]int, len(ds.Headers))
	for i, h := range ds.Headers {
		if _, ok := colIdx[h]; !ok {
			colIdx[h] = i
		}
	}

	var missing []string
	for _, col := range model.RequiredColumns {
		if _, ok := colIdx[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		res.Messages = append(res.Messages, fmt.Sprintf("Missing required columns: %v", missing))
		return res
	}

	required := make(map[string]bool, len(model.RequiredColumns))
	for _, col := range model.RequiredColumns {
		required[col] = true
	}
	seen := make(map[string]bool, len(ds.Headers))
	for _, h := range ds.Headers {
		if required[h] || seen[h] {
			continue
		}
		seen[h] = true
		res.Extras = append(res.Extras, h)
	}

	cell := func(row []string, name string) string {
		idx := colIdx[name]
		if idx >= len(row) {
			return ""
		}
		return row[idx]
	}

	var drops dropCounts
	for _, row := range ds.Rows {
		siteID := cell(row, "site_id")
		latRaw := cell(row, "lat")
		lonRaw := cell(row, "lon")
		clusterID := cell(row, "cluster_id")

		if siteID == "" || latRaw == "" || lonRaw == "" || clusterID == "" {
			drops.missing++
			continue
		}
		lat, err := strconv.ParseFloat(latRaw, 64)
		if err != nil || math.IsNaN(lat) {
			drops.nonNumericLat++
			continue
		}
		lon, err := strconv.ParseFloat(lonRaw, 64)
		if err != nil || math.IsNaN(lon) {
			drops.nonNumericLon++
			continue
		}
		if !inBounds(lat, lon) {
			drops.badCoords++
			continue
		}

		s := model.Site{SiteID: siteID, Lat: lat, Lon: lon, ClusterID: clusterID}
		if len(res.Extras) > 0 {
			s.Extra = make(map[string]string, len(res.Extras))
			for _, name := range res.Extras {
				s.Extra[name] = cell(row, name)
			}
		}
		res.Sites = append(res.Sites, s)
	}

	res.Dropped = res.Total - len(res.Sites)
	res.Messages = append(res.Messages, drops.messages(res.Total, len(res.Sites))...)
	return res
}

// CleanSites applies the same validation to rows that arrive already
// typed, such as database sources. NaN coordinates count as non-numeric
// so message texts stay consistent across sources.
func CleanSites(sites []model.Site) CleanResult {
	res := CleanResult{Total: len(sites)}

	var drops dropCounts
	for _, s := range sites {
		switch {
		case s.SiteID == "" || s.ClusterID == "":
			drops.missing++
		case math.IsNaN(s.Lat):
			drops.nonNumericLat++
		case math.IsNaN(s.Lon):
			drops.nonNumericLon++
		case !inBounds(s.Lat, s.Lon):
			drops.badCoords++
		default:
			res.Sites = append(res.Sites, s)
		}
	}

	res.Dropped = res.Total - len(res.Sites)
	res.Messages = append(res.Messages, drops.messages(res.Total, len(res.Sites))...)
	return res
}
