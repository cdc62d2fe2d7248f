// Package export renders enriched sites into the formats the CLI and the
// HTTP service hand back: CSV, JSON, GeoJSON, plus the per-class summary
// and row previews embedded in API responses.
package export

import (
	"strconv"

	"github.com/sells-group/site-analysis-cli/internal/geo"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

// Summary counts sites per area class. The field names double as the
// JSON keys the API contract promises.
type Summary struct {
	Rural    int `json:"Rural"`
	Suburban int `json:"Suburban"`
	Urban    int `json:"Urban"`
	Dense    int `json:"Dense"`
}

// Summarize tallies the area classes across the dataset.
func Summarize(sites []model.EnrichedSite) Summary {
	var s Summary
	for _, site := range sites {
		switch site.AreaClass {
		case geo.ClassRural:
			s.Rural++
		case geo.ClassSuburban:
			s.Suburban++
		case geo.ClassUrban:
			s.Urban++
		case geo.ClassDense:
			s.Dense++
		}
	}
	return s
}

// reserved covers every column the writers emit themselves. A source
// extra with one of these names is dropped; the computed value wins.
var reserved = map[string]bool{
	"site_id":    true,
	"lat":        true,
	"lon":        true,
	"cluster_id": true,
	"density":    true,
	"group_id":   true,
	"group_size": true,
	"area_class": true,
}

// Columns is the output header for a dataset with the given passthrough
// extras: the four input columns, surviving extras in source order, then
// the computed columns.
func Columns(extras []string) []string {
	cols := []string{"site_id", "lat", "lon", "cluster_id"}
	for _, name := range extras {
		if reserved[name] {
			continue
		}
		cols = append(cols, name)
	}
	return append(cols, "density", "group_id", "group_size", "area_class")
}

// Row flattens one enriched site into cells matching Columns order.
func Row(s model.EnrichedSite, extras []string) []string {
	row := []string{s.SiteID, formatFloat(s.Lat), formatFloat(s.Lon), s.ClusterID}
	for _, name := range extras {
		if reserved[name] {
			continue
		}
		row = append(row, s.Extra[name])
	}
	return append(row,
		formatFloat(s.Density),
		s.GroupID,
		strconv.Itoa(s.GroupSize),
		s.AreaClass,
	)
}

// Preview returns the first n sites as JSON-ready records, one map per
// row, numeric fields kept numeric.
func Preview(sites []model.EnrichedSite, extras []string, n int) []map[string]any {
	if n < 0 {
		n = 0
	}
	if n > len(sites) {
		n = len(sites)
	}
	out := make([]map[string]any, 0, n)
	for _, s := range sites[:n] {
		rec := map[string]any{
			"site_id":    s.SiteID,
			"lat":        s.Lat,
			"lon":        s.Lon,
			"cluster_id": s.ClusterID,
			"density":    s.Density,
			"group_id":   s.GroupID,
			"group_size": s.GroupSize,
			"area_class": s.AreaClass,
		}
		for _, name := range extras {
			if reserved[name] {
				continue
			}
			rec[name] = s.Extra[name]
		}
		out = append(out, rec)
	}
	return out
}

// formatFloat round-trips a float with the shortest representation.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
