// Package geospatial provides the in-memory spatial index used by the
// analysis pipeline: exact great-circle radius queries over site points.
package geospatial

import "math"

// EarthRadiusKM is the mean Earth radius used for all great-circle math.
const EarthRadiusKM = 6371.0

const degToRad = math.Pi / 180

// Haversine returns the great-circle distance in kilometers between two
// WGS84 coordinates, treating the Earth as a sphere of EarthRadiusKM.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := (lat2 - lat1) * degToRad
	dLon := (lon2 - lon1) * degToRad

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	a := sinLat*sinLat + math.Cos(lat1*degToRad)*math.Cos(lat2*degToRad)*sinLon*sinLon
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKM * c
}
