package model

// RequiredColumns are the input columns every site record must carry.
// Any other input column is preserved as passthrough.
var RequiredColumns = []string{"site_id", "lat", "lon", "cluster_id"}

// Site is one validated input row: a point with its logical cluster.
type Site struct {
	SiteID    string  `json:"site_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	ClusterID string  `json:"cluster_id"`

	// Extra holds passthrough columns from the source, keyed by header.
	// They are carried untouched into every output format.
	Extra map[string]string `json:"-"`
}

// EnrichedSite is a Site after analysis. Input fields are never mutated;
// the computed fields are only ever appended.
type EnrichedSite struct {
	Site
	Density   float64 `json:"density"`    // sites per square kilometer
	GroupID   string  `json:"group_id"`   // stable co-location group hash
	GroupSize int     `json:"group_size"` // members in the co-location group
	AreaClass string  `json:"area_class"` // one of geo.ClassRural..geo.ClassDense
}
