package ingest

import (
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DBF indices below zero mark columns filled from the geometry.
const (
	geomLat = -1
	geomLon = -2
)

// ReadShapefile reads point records into a Dataset. Coordinates come from
// the geometry (X is lon, Y is lat); DBF attributes become columns with
// lowercased names, any DBF lat/lon fields losing to the geometry.
// Non-point records are skipped.
func ReadShapefile(path string) (Dataset, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return Dataset{}, eris.Wrapf(err, "shapefile: open %s", path)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	dbfIdx := make(map[string]int, len(fields))
	for i, f := range fields {
		names[i] = strings.ToLower(strings.TrimRight(f.String(), "\x00"))
		if _, ok := dbfIdx[names[i]]; !ok {
			dbfIdx[names[i]] = i
		}
	}

	type column struct {
		name string
		dbf  int
	}
	cols := make([]column, 0, len(fields)+2)
	if i, ok := dbfIdx["site_id"]; ok {
		cols = append(cols, column{"site_id", i})
	}
	cols = append(cols, column{"lat", geomLat}, column{"lon", geomLon})
	if i, ok := dbfIdx["cluster_id"]; ok {
		cols = append(cols, column{"cluster_id", i})
	}
	for i, name := range names {
		switch name {
		case "site_id", "cluster_id", "lat", "lon":
			continue
		}
		if dbfIdx[name] != i {
			continue // duplicate field name, first wins
		}
		cols = append(cols, column{name, i})
	}

	ds := Dataset{Headers: make([]string, len(cols))}
	for i, c := range cols {
		ds.Headers[i] = c.name
	}

	var skipped int
	for reader.Next() {
		_, shape := reader.Shape()

		var lat, lon float64
		switch s := shape.(type) {
		case *shp.Point:
			lon, lat = s.X, s.Y
		case *shp.PointZ:
			lon, lat = s.X, s.Y
		case *shp.PointM:
			lon, lat = s.X, s.Y
		default:
			skipped++
			continue
		}

		row := make([]string, len(cols))
		for i, c := range cols {
			switch c.dbf {
			case geomLat:
				row[i] = strconv.FormatFloat(lat, 'g', -1, 64)
			case geomLon:
				row[i] = strconv.FormatFloat(lon, 'g', -1, 64)
			default:
				row[i] = strings.TrimSpace(strings.TrimRight(reader.Attribute(c.dbf), "\x00"))
			}
		}
		ds.Rows = append(ds.Rows, row)
	}
	if err := reader.Err(); err != nil {
		return Dataset{}, eris.Wrap(err, "shapefile: read records")
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped non-point records",
			zap.String("path", path),
			zap.Int("skipped", skipped),
		)
	}
	return ds, nil
}
