package ingest

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/db"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidTable reports whether name is a plain or schema-qualified identifier.
func ValidTable(name string) bool {
	parts := strings.Split(name, ".")
	if len(parts) > 2 {
		return false
	}
	for _, p := range parts {
		if !identPattern.MatchString(p) {
			return false
		}
	}
	return true
}

func sanitizeTable(name string) string {
	if schema, table, ok := strings.Cut(name, "."); ok {
		return pgx.Identifier{schema, table}.Sanitize()
	}
	return pgx.Identifier{name}.Sanitize()
}

// LoadPostgres reads site rows from a table with site_id, lat, lon and
// cluster_id columns. NULLs map onto values the shared validation drops.
func LoadPostgres(ctx context.Context, pool db.Pool, table string) ([]model.Site, error) {
	if !ValidTable(table) {
		return nil, eris.Errorf("ingest: invalid table name %q", table)
	}

	query := fmt.Sprintf("SELECT site_id, lat, lon, cluster_id FROM %s", sanitizeTable(table))
	rows, err := pool.Query(ctx, query)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: query %s", table)
	}
	defer rows.Close()

	var sites []model.Site
	for rows.Next() {
		var (
			siteID, clusterID *string
			lat, lon          *float64
		)
		if err := rows.Scan(&siteID, &lat, &lon, &clusterID); err != nil {
			return nil, eris.Wrap(err, "ingest: scan site row")
		}
		sites = append(sites, model.Site{
			SiteID:    strOrEmpty(siteID),
			Lat:       floatOrNaN(lat),
			Lon:       floatOrNaN(lon),
			ClusterID: strOrEmpty(clusterID),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "ingest: read site rows")
	}
	return sites, nil
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func floatOrNaN(p *float64) float64 {
	if p == nil {
		return math.NaN()
	}
	return *p
}
