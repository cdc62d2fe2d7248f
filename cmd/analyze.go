package main

import (
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-analysis-cli/internal/config"
	"github.com/sells-group/site-analysis-cli/internal/export"
	"github.com/sells-group/site-analysis-cli/internal/fetcher"
	"github.com/sells-group/site-analysis-cli/internal/ingest"
	"github.com/sells-group/site-analysis-cli/internal/pipeline"
)

var (
	analyzeInput        string
	analyzeFormat       string
	analyzeCharset      string
	analyzeDelimiter    string
	analyzeSheet        string
	analyzeOutput       string
	analyzeOutputFormat string
	analyzeRadiusKM     float64
	analyzeThresholdM   float64
	analyzeMode         string
	analyzeRural        float64
	analyzeSuburban     float64
	analyzeUrban        float64
	analyzePreset       string
	analyzePresetsFile  string
	analyzeWorkers      int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a site dataset from a file or URL",
	Long: `Reads site coordinates from a local file, HTTP(S) URL, or FTP URL,
computes density, co-location groups, and area classes, and writes the
enriched dataset. ZIP archives are extracted and searched for a dataset
file automatically.

Examples:
  # Local CSV, enriched CSV to a file
  site-analysis-cli analyze --input sites.csv --output enriched.csv

  # Remote ZIP with threshold classification
  site-analysis-cli analyze --input https://example.com/sites.zip \
    --mode threshold --rural 5 --suburban 25 --urban 100

  # Shapefile in, GeoJSON out
  site-analysis-cli analyze --input parcels.shp --output sites.geojson --output-format geojson`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if err := mergeAnalysisFlags(cmd); err != nil {
			return err
		}
		if err := cfg.Validate("analyze"); err != nil {
			return err
		}

		workDir, err := os.MkdirTemp("", "site-analysis-*")
		if err != nil {
			return eris.Wrap(err, "analyze: create work dir")
		}
		defer os.RemoveAll(workDir) //nolint:errcheck

		client := fetcher.NewClient(fetcher.Options{})
		local, err := client.Resolve(ctx, analyzeInput, workDir)
		if err != nil {
			return eris.Wrap(err, "analyze: resolve input")
		}

		ds, err := readDataset(local)
		if err != nil {
			return err
		}

		cleaned := ingest.Clean(ds)
		res, err := pipeline.Run(ctx, cleaned.Sites, analysisParams())
		if err != nil {
			return eris.Wrap(err, "analyze: run analysis")
		}

		if err := writeEnriched(analyzeOutput, analyzeOutputFormat, res.Sites, cleaned.Extras); err != nil {
			return err
		}

		// The enriched dataset goes to stdout when no output file is
		// given, so the report moves to stderr to keep it parseable.
		reportDst := os.Stdout
		if analyzeOutput == "" {
			reportDst = os.Stderr
		}
		printReport(reportDst, export.Summarize(res.Sites), append(cleaned.Messages, res.Messages...), len(res.Sites))
		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeInput, "input", "", "dataset path or URL (required)")
	analyzeCmd.Flags().StringVar(&analyzeFormat, "format", "auto", "input format: auto, csv, xlsx, or shp")
	analyzeCmd.Flags().StringVar(&analyzeCharset, "charset", "", "input charset for CSV, e.g. windows-1252 (default UTF-8)")
	analyzeCmd.Flags().StringVar(&analyzeDelimiter, "delimiter", "", "CSV field delimiter (default ,)")
	analyzeCmd.Flags().StringVar(&analyzeSheet, "sheet", "", "XLSX sheet name (default first sheet)")
	analyzeCmd.Flags().StringVar(&analyzeOutput, "output", "", "write enriched dataset to file (default stdout)")
	analyzeCmd.Flags().StringVar(&analyzeOutputFormat, "output-format", "csv", "output format: csv, json, or geojson")
	analyzeCmd.Flags().Float64Var(&analyzeRadiusKM, "radius-km", 0, "density radius in kilometers (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeThresholdM, "threshold-m", 0, "co-location threshold in meters (default from config)")
	analyzeCmd.Flags().StringVar(&analyzeMode, "mode", "", "classification mode: quantile or threshold (default from config)")
	analyzeCmd.Flags().Float64Var(&analyzeRural, "rural", 0, "rural density cutoff for threshold mode")
	analyzeCmd.Flags().Float64Var(&analyzeSuburban, "suburban", 0, "suburban density cutoff for threshold mode")
	analyzeCmd.Flags().Float64Var(&analyzeUrban, "urban", 0, "urban density cutoff for threshold mode")
	analyzeCmd.Flags().StringVar(&analyzePreset, "preset", "", "named threshold preset to apply")
	analyzeCmd.Flags().StringVar(&analyzePresetsFile, "presets-file", "presets.yaml", "YAML file holding threshold presets")
	analyzeCmd.Flags().IntVar(&analyzeWorkers, "workers", 0, "worker count for the density stage (0 = all CPUs)")
	_ = analyzeCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(analyzeCmd)
}

// mergeAnalysisFlags layers a preset, then explicit flags, onto the
// configured analysis parameters. Explicit cutoff flags override preset
// values.
func mergeAnalysisFlags(cmd *cobra.Command) error {
	if analyzePreset != "" {
		t, err := config.Preset(analyzePresetsFile, analyzePreset)
		if err != nil {
			return err
		}
		cfg.Analysis.Thresholds = t
		zap.L().Info("analyze: preset applied",
			zap.String("preset", analyzePreset),
			zap.Float64("rural", t.Rural),
			zap.Float64("suburban", t.Suburban),
			zap.Float64("urban", t.Urban),
		)
	}

	f := cmd.Flags()
	if f.Changed("radius-km") {
		cfg.Analysis.RadiusKM = analyzeRadiusKM
	}
	if f.Changed("threshold-m") {
		cfg.Analysis.CoLocationThresholdM = analyzeThresholdM
	}
	if f.Changed("mode") {
		cfg.Analysis.ClassificationMode = analyzeMode
	}
	if f.Changed("rural") {
		cfg.Analysis.Thresholds.Rural = analyzeRural
	}
	if f.Changed("suburban") {
		cfg.Analysis.Thresholds.Suburban = analyzeSuburban
	}
	if f.Changed("urban") {
		cfg.Analysis.Thresholds.Urban = analyzeUrban
	}
	if f.Changed("workers") {
		cfg.Analysis.Workers = analyzeWorkers
	}
	return nil
}

// readDataset parses the resolved local file, sniffing the format from
// the extension unless one was forced.
func readDataset(path string) (ingest.Dataset, error) {
	format := analyzeFormat
	if format == "" || format == "auto" {
		format = detectFormat(path)
	}

	var (
		ds  ingest.Dataset
		err error
	)
	switch format {
	case "csv":
		opts := ingest.CSVOptions{Charset: analyzeCharset}
		if analyzeDelimiter != "" {
			r, size := utf8.DecodeRuneInString(analyzeDelimiter)
			if size != len(analyzeDelimiter) {
				return ingest.Dataset{}, eris.Errorf("analyze: delimiter must be a single character, got %q", analyzeDelimiter)
			}
			opts.Delimiter = r
		}
		ds, err = ingest.ReadCSV(path, opts)
	case "xlsx":
		ds, err = ingest.ReadXLSX(path, ingest.XLSXOptions{SheetName: analyzeSheet})
	case "shp":
		ds, err = ingest.ReadShapefile(path)
	default:
		return ingest.Dataset{}, eris.Errorf("analyze: unsupported format %q", format)
	}
	if err != nil {
		return ingest.Dataset{}, eris.Wrap(err, "analyze: read dataset")
	}
	return ds, nil
}

// detectFormat maps a file extension to an input format. Unknown
// extensions fall back to CSV.
func detectFormat(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx":
		return "xlsx"
	case ".shp":
		return "shp"
	default:
		return "csv"
	}
}
