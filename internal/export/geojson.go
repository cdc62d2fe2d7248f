package export

import (
	"io"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/sells-group/site-analysis-cli/internal/model"
)

// WriteGeoJSON renders the dataset as a FeatureCollection of points in
// GeoJSON [lon, lat] axis order, every other field carried as properties.
func WriteGeoJSON(w io.Writer, sites []model.EnrichedSite, extras []string) error {
	fc := geojson.FeatureCollection{Features: make([]*geojson.Feature, 0, len(sites))}
	for _, s := range sites {
		props := map[string]any{
			"site_id":    s.SiteID,
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
			props[name] = s.Extra[name]
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry:   geom.NewPointFlat(geom.XY, []float64{s.Lon, s.Lat}),
			Properties: props,
		})
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return eris.Wrap(err, "export: marshal geojson")
	}
	if _, err := w.Write(data); err != nil {
		return eris.Wrap(err, "export: write geojson")
	}
	return nil
}
