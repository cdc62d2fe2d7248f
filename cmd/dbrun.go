package main

import (
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/site-analysis-cli/internal/db"
	"github.com/sells-group/site-analysis-cli/internal/export"
	"github.com/sells-group/site-analysis-cli/internal/ingest"
	"github.com/sells-group/site-analysis-cli/internal/model"
	"github.com/sells-group/site-analysis-cli/internal/pipeline"
	"github.com/sells-group/site-analysis-cli/internal/publish"
)

var (
	dbrunDriver       string
	dbrunDSN          string
	dbrunTable        string
	dbrunOutput       string
	dbrunOutputFormat string
	dbrunWriteTable   string
	dbrunPublish      bool
)

var dbrunCmd = &cobra.Command{
	Use:   "dbrun",
	Short: "Analyze sites loaded from a Postgres or SQLite table",
	Long: `Loads site rows from a database table, runs the analysis, and writes
the enriched dataset. The table needs site_id, lat, lon, and cluster_id
columns.

Examples:
  # Postgres source, upserting enriched rows back
  site-analysis-cli dbrun --driver postgres --dsn postgres://localhost/sites \
    --table sites --write-table enriched_sites

  # SQLite file, publishing enriched sites to Kafka
  site-analysis-cli dbrun --driver sqlite --dsn ./sites.db --publish`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		if dbrunDSN != "" {
			switch dbrunDriver {
			case "postgres":
				cfg.Source.DatabaseURL = dbrunDSN
			case "sqlite":
				cfg.Source.SQLitePath = dbrunDSN
			case "":
				return eris.New("dbrun: --dsn requires --driver")
			default:
				return eris.Errorf("dbrun: unknown driver %q", dbrunDriver)
			}
		}
		if cmd.Flags().Changed("table") {
			cfg.Source.Table = dbrunTable
		}
		if err := cfg.Validate("dbrun"); err != nil {
			return err
		}

		driver := dbrunDriver
		if driver == "" {
			// Postgres wins when both sources are configured.
			if cfg.Source.DatabaseURL != "" {
				driver = "postgres"
			} else {
				driver = "sqlite"
			}
		}
		if dbrunWriteTable != "" && driver != "postgres" {
			return eris.New("dbrun: --write-table requires a postgres source")
		}

		var (
			sites []model.Site
			pool  *pgxpool.Pool
		)
		switch driver {
		case "postgres":
			var err error
			pool, err = db.Connect(ctx, cfg.Source.DatabaseURL)
			if err != nil {
				return eris.Wrap(err, "dbrun: connect postgres")
			}
			defer pool.Close()

			sites, err = ingest.LoadPostgres(ctx, pool, cfg.Source.Table)
			if err != nil {
				return eris.Wrap(err, "dbrun: load rows")
			}
		case "sqlite":
			sqldb, err := ingest.OpenSQLite(cfg.Source.SQLitePath)
			if err != nil {
				return eris.Wrap(err, "dbrun: open sqlite")
			}
			defer sqldb.Close() //nolint:errcheck

			sites, err = ingest.LoadSQLite(ctx, sqldb, cfg.Source.Table)
			if err != nil {
				return eris.Wrap(err, "dbrun: load rows")
			}
		default:
			return eris.Errorf("dbrun: unknown driver %q", driver)
		}
		zap.L().Info("dbrun: rows loaded", zap.String("driver", driver), zap.Int("rows", len(sites)))

		cleaned := ingest.CleanSites(sites)
		res, err := pipeline.Run(ctx, cleaned.Sites, analysisParams())
		if err != nil {
			return eris.Wrap(err, "dbrun: run analysis")
		}

		if err := writeEnriched(dbrunOutput, dbrunOutputFormat, res.Sites, nil); err != nil {
			return err
		}

		if dbrunWriteTable != "" {
			n, err := db.WriteEnriched(ctx, pool, dbrunWriteTable, res.Sites)
			if err != nil {
				return eris.Wrap(err, "dbrun: write back results")
			}
			zap.L().Info("dbrun: results written back",
				zap.String("table", dbrunWriteTable),
				zap.Int64("rows", n),
			)
		}

		if dbrunPublish {
			if len(cfg.Publish.Brokers) == 0 {
				return eris.New("dbrun: publish requested but publish.brokers is empty")
			}
			w := publish.NewWriter(cfg.Publish.Brokers, cfg.Publish.Topic)
			defer w.Close() //nolint:errcheck
			if err := w.PublishSites(ctx, res.Sites, res.GeneratedAt); err != nil {
				return eris.Wrap(err, "dbrun: publish results")
			}
		}

		reportDst := os.Stdout
		if dbrunOutput == "" {
			reportDst = os.Stderr
		}
		printReport(reportDst, export.Summarize(res.Sites), append(cleaned.Messages, res.Messages...), len(res.Sites))
		return nil
	},
}

func init() {
	dbrunCmd.Flags().StringVar(&dbrunDriver, "driver", "", "database driver: postgres or sqlite (default inferred from config)")
	dbrunCmd.Flags().StringVar(&dbrunDSN, "dsn", "", "connection string or SQLite path (default from config)")
	dbrunCmd.Flags().StringVar(&dbrunTable, "table", "", "source table name (default from config)")
	dbrunCmd.Flags().StringVar(&dbrunOutput, "output", "", "write enriched dataset to file (default stdout)")
	dbrunCmd.Flags().StringVar(&dbrunOutputFormat, "output-format", "csv", "output format: csv, json, or geojson")
	dbrunCmd.Flags().StringVar(&dbrunWriteTable, "write-table", "", "upsert enriched rows into this Postgres table")
	dbrunCmd.Flags().BoolVar(&dbrunPublish, "publish", false, "publish enriched sites to the configured Kafka topic")
	rootCmd.AddCommand(dbrunCmd)
}
