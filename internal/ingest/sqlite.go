package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// OpenSQLite opens a SQLite database at the given path and configures WAL mode.
func OpenSQLite(dsn string) (*sql.DB, error) {
	sqldb, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := sqldb.Exec(pragma); err != nil {
			sqldb.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return sqldb, nil
}

// LoadSQLite reads site rows from a table with site_id, lat, lon and
// cluster_id columns, mapping NULLs the same way the Postgres loader does.
func LoadSQLite(ctx context.Context, sqldb *sql.DB, table string) ([]model.Site, error) {
	if !ValidTable(table) {
		return nil, eris.Errorf("ingest: invalid table name %q", table)
	}

	query := fmt.Sprintf("SELECT site_id, lat, lon, cluster_id FROM %s", sqliteTableExpr(table))
	rows, err := sqldb.QueryContext(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: query %s", table)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var (
			siteID, clusterID sql.NullString
			lat, lon          sql.NullFloat64
		)
		if err := rows.Scan(&siteID, &lat, &lon, &clusterID); err != nil {
			return nil, eris.Wrap(err, "ingest: scan site row")
		}
		s := model.Site{
			SiteID:    siteID.String,
			Lat:       math.NaN(),
			Lon:       math.NaN(),
			ClusterID: clusterID.String,
		}
		if lat.Valid {
			s.Lat = lat.Float64
		}
		if lon.Valid {
			s.Lon = lon.Float64
		}
		sites = append(sites, s)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: read site rows")
	}
	return sites, nil
}

// sqliteTableExpr quotes each part of a possibly schema-qualified name so
// "analytics.sites" addresses the sites table in the analytics database.
func sqliteTableExpr(name string) string {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return fmt.Sprintf(`"%s"."%s"`, schema, table)
	}
	return fmt.Sprintf(`"%s"`, name)
}
