package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// enrichedColumns is the write-back schema: the required input columns
// plus the computed fields. Passthrough extras are not written back.
var enrichedColumns = []string{
	"site_id", "lat", "lon", "cluster_id",
	"density", "group_id", "group_size", "area_class",
}

// conflictKey identifies a site row across runs; re-running an analysis
// updates the row in place instead of inserting a duplicate.
const conflictKey = "site_id"

// WriteEnriched upserts enriched sites into table. Rows are COPYed into
// a temp table first, then merged into the target with
// INSERT ... ON CONFLICT DO UPDATE, all in one transaction. Returns the
// number of rows written.
func WriteEnriched(ctx context.Context, pool *pgxpool.Pool, table string, sites []model.EnrichedSite) (int64, error) {
	if len(sites) == 0 {
		return 0, nil
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "db: write enriched: begin tx")
	}
	defer tx.Rollback(ctx)

	stage := stagingName(table)
	createSQL := fmt.Sprintf(
		"CREATE TEMP TABLE %s (LIKE %s INCLUDING DEFAULTS) ON COMMIT DROP",
		pgx.Identifier{stage}.Sanitize(),
		tableIdent(table),
	)
	if _, err := tx.Exec(ctx, createSQL); err != nil {
		return 0, eris.Wrapf(err, "db: write enriched: create stage for %s", table)
	}

	rows := pgx.CopyFromRows(enrichedRows(sites))
	if _, err := tx.CopyFrom(ctx, pgx.Identifier{stage}, enrichedColumns, rows); err != nil {
		return 0, eris.Wrapf(err, "db: write enriched: copy into stage for %s", table)
	}

	cols := columnList(enrichedColumns)
	mergeSQL := fmt.Sprintf(
		"INSERT INTO %s (%s) SELECT %s FROM %s ON CONFLICT (%s) DO UPDATE SET %s",
		tableIdent(table),
		cols,
		cols,
		pgx.Identifier{stage}.Sanitize(),
		pgx.Identifier{conflictKey}.Sanitize(),
		updateClause(enrichedColumns[1:]),
	)
	tag, err := tx.Exec(ctx, mergeSQL)
	if err != nil {
		return 0, eris.Wrapf(err, "db: write enriched: merge into %s", table)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "db: write enriched: commit tx")
	}
	return tag.RowsAffected(), nil
}

// enrichedRows flattens sites into COPY rows, in enrichedColumns order.
func enrichedRows(sites []model.EnrichedSite) [][]any {
	rows := make([][]any, 0, len(sites))
	for _, s := range sites {
		rows = append(rows, []any{
			s.SiteID, s.Lat, s.Lon, s.ClusterID,
			s.Density, s.GroupID, s.GroupSize, s.AreaClass,
		})
	}
	return rows
}

// stagingName derives the temp-table name from the target, one stage per
// table.
func stagingName(table string) string {
	return "_enriched_stage_" + strings.ReplaceAll(table, ".", "_")
}

// tableIdent quotes a table name, handling schema qualification like
// "analytics.enriched_sites".
func tableIdent(table string) string {
	if schema, name, ok := strings.Cut(table, "."); ok {
		return pgx.Identifier{schema, name}.Sanitize()
	}
	return pgx.Identifier{table}.Sanitize()
}

// columnList quotes each column and joins with commas.
func columnList(cols []string) string {
	quoted := make([]string, len(cols))
	for i, c := range cols {
		quoted[i] = pgx.Identifier{c}.Sanitize()
	}
	return strings.Join(quoted, ", ")
}

// updateClause builds the DO UPDATE SET list for the non-key columns.
func updateClause(cols []string) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		id := pgx.Identifier{c}.Sanitize()
		parts[i] = id + " = EXCLUDED." + id
	}
	return strings.Join(parts, ", ")
}
