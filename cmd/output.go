package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/export"
	"github.com/sells-group/site-analysis-cli/internal/geo"
	"github.com/sells-group/site-analysis-cli/internal/model"
	"github.com/sells-group/site-analysis-cli/internal/pipeline"
)

// analysisParams converts the merged configuration into pipeline
// parameters.
func analysisParams() pipeline.Params {
	a := cfg.Analysis
	return pipeline.Params{
		RadiusKM:   a.RadiusKM,
		ThresholdM: a.CoLocationThresholdM,
		Mode:       geo.ClassificationMode(a.ClassificationMode),
		Thresholds: a.Thresholds.Geo(),
		Workers:    a.Workers,
	}
}

// writeEnriched renders sites to path in the requested format. An empty
// path writes to stdout.
func writeEnriched(path, format string, sites []model.EnrichedSite, extras []string) error {
	var w io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return eris.Wrap(err, "output: create file")
		}
		defer f.Close() //nolint:errcheck
		w = f
	}

	switch format {
	case "", "csv":
		return export.WriteCSV(w, sites, extras)
	case "json":
		return export.WriteJSON(w, sites, extras)
	case "geojson":
		return export.WriteGeoJSON(w, sites, extras)
	default:
		return eris.Errorf("output: unsupported format %q", format)
	}
}

// printReport prints run messages and the class summary.
func printReport(w io.Writer, summary export.Summary, messages []string, total int) {
	for _, m := range messages {
		fmt.Fprintln(w, m)
	}
	fmt.Fprintf(w, "Total sites: %d\n", total)
	fmt.Fprintf(w, "Rural: %d  Suburban: %d  Urban: %d  Dense: %d\n",
		summary.Rural, summary.Suburban, summary.Urban, summary.Dense)
}
