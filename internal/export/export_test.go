package export

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/site-analysis-cli/internal/geo"
	"github.com/sells-group/site-analysis-cli/internal/model"
)

func enriched(id string, lat, lon, density float64, class string, extra map[string]string) model.EnrichedSite {
	return model.EnrichedSite{
		Site: model.Site{
			SiteID:    id,
			Lat:       lat,
			Lon:       lon,
			ClusterID: "c1",
			Extra:     extra,
		},
		Density:   density,
		GroupID:   "00000000deadbeef",
		GroupSize: 2,
		AreaClass: class,
	}
}

func TestSummarize(t *testing.T) {
	sites := []model.EnrichedSite{
		enriched("s1", 40, -75, 0.1, geo.ClassRural, nil),
		enriched("s2", 41, -75, 0.2, geo.ClassUrban, nil),
		enriched("s3", 42, -75, 0.3, geo.ClassUrban, nil),
		enriched("s4", 43, -75, 0.4, geo.ClassDense, nil),
	}

	got := Summarize(sites)
	assert.Equal(t, Summary{Rural: 1, Suburban: 0, Urban: 2, Dense: 1}, got)
}

func TestSummarize_JSONKeys(t *testing.T) {
	data, err := json.Marshal(Summary{Rural: 3, Suburban: 1, Urban: 2, Dense: 0})
	require.NoError(t, err)
	assert.JSONEq(t, `{"Rural":3,"Suburban":1,"Urban":2,"Dense":0}`, string(data))
}

func TestColumns(t *testing.T) {
	got := Columns([]string{"name", "owner"})
	want := []string{
		"site_id", "lat", "lon", "cluster_id",
		"name", "owner",
		"density", "group_id", "group_size", "area_class",
	}
	assert.Equal(t, want, got)
}

func TestColumns_ReservedCollision(t *testing.T) {
	got := Columns([]string{"name", "density", "group_id"})
	want := []string{
		"site_id", "lat", "lon", "cluster_id",
		"name",
		"density", "group_id", "group_size", "area_class",
	}
	assert.Equal(t, want, got, "extras shadowing computed columns are dropped")
}

func TestRow(t *testing.T) {
	s := enriched("s1", 40.7128, -74.006, 0.25, geo.ClassRural, map[string]string{"name": "Depot"})
	got := Row(s, []string{"name"})
	want := []string{"s1", "40.7128", "-74.006", "c1", "Depot", "0.25", "00000000deadbeef", "2", "Rural"}
	assert.Equal(t, want, got)
}

func TestPreview_Truncates(t *testing.T) {
	sites := []model.EnrichedSite{
		enriched("s1", 40, -75, 0.1, geo.ClassRural, nil),
		enriched("s2", 41, -75, 0.2, geo.ClassRural, nil),
		enriched("s3", 42, -75, 0.3, geo.ClassRural, nil),
	}

	recs := Preview(sites, nil, 2)
	require.Len(t, recs, 2)
	assert.Equal(t, "s1", recs[0]["site_id"])
	assert.Equal(t, 40.0, recs[0]["lat"])
	assert.Equal(t, 2, recs[0]["group_size"])

	assert.Len(t, Preview(sites, nil, 50), 3)
	assert.Empty(t, Preview(sites, nil, -1))
}

func TestPreview_ComputedWinsOverExtra(t *testing.T) {
	s := enriched("s1", 40, -75, 0.25, geo.ClassRural, map[string]string{
		"density": "bogus",
		"name":    "Depot",
	})

	recs := Preview([]model.EnrichedSite{s}, []string{"density", "name"}, 1)
	require.Len(t, recs, 1)
	assert.Equal(t, 0.25, recs[0]["density"])
	assert.Equal(t, "Depot", recs[0]["name"])
}

func TestWriteCSV_Golden(t *testing.T) {
	sites := []model.EnrichedSite{
		enriched("s1", 40, -75, 0.25, geo.ClassRural, map[string]string{"name": "Depot"}),
		enriched("s2", 40.7128, -74.006, 0.5, geo.ClassUrban, map[string]string{"name": "Park"}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sites, []string{"name"}))

	want := "site_id,lat,lon,cluster_id,name,density,group_id,group_size,area_class\n" +
		"s1,40,-75,c1,Depot,0.25,00000000deadbeef,2,Rural\n" +
		"s2,40.7128,-74.006,c1,Park,0.5,00000000deadbeef,2,Urban\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil, nil))
	assert.Equal(t, "site_id,lat,lon,cluster_id,density,group_id,group_size,area_class\n", buf.String())
}

func TestWriteCSV_MissingExtraCell(t *testing.T) {
	// A site without a value for a known extra gets an empty cell.
	s := enriched("s1", 40, -75, 0.25, geo.ClassRural, nil)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, []model.EnrichedSite{s}, []string{"name"}))
	assert.Contains(t, buf.String(), "s1,40,-75,c1,,0.25")
}

func TestWriteJSON(t *testing.T) {
	sites := []model.EnrichedSite{
		enriched("s1", 40, -75, 0.25, geo.ClassRural, map[string]string{"name": "Depot"}),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sites, []string{"name"}))

	var recs []map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "s1", recs[0]["site_id"])
	assert.Equal(t, 0.25, recs[0]["density"])
	assert.Equal(t, "Depot", recs[0]["name"])
	assert.Equal(t, "Rural", recs[0]["area_class"])
}

func TestWriteGeoJSON(t *testing.T) {
	sites := []model.EnrichedSite{
		enriched("s1", 40, -75, 0.25, geo.ClassRural, map[string]string{"name": "Depot"}),
		enriched("s2", 41, -76, 0.5, geo.ClassUrban, nil),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, sites, []string{"name"}))

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			Type     string `json:"type"`
			Geometry struct {
				Type        string    `json:"type"`
				Coordinates []float64 `json:"coordinates"`
			} `json:"geometry"`
			Properties map[string]any `json:"properties"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))

	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, 2)

	first := fc.Features[0]
	assert.Equal(t, "Feature", first.Type)
	assert.Equal(t, "Point", first.Geometry.Type)
	assert.Equal(t, []float64{-75, 40}, first.Geometry.Coordinates, "GeoJSON order is [lon, lat]")
	assert.Equal(t, "s1", first.Properties["site_id"])
	assert.Equal(t, "Rural", first.Properties["area_class"])
	assert.Equal(t, "Depot", first.Properties["name"])
	assert.Equal(t, 0.25, first.Properties["density"])
}

func TestWriteGeoJSON_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, nil, nil))

	var fc map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &fc))
	assert.Equal(t, "FeatureCollection", fc["type"])
}
