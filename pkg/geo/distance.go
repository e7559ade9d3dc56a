// Package geo provides the great-circle distance primitive used by the
// nearby and distance-sort features.
package geo

import (
	"github.com/tkrajina/gpxgo/gpx"
)

const metersPerKm = 1000.0

// Coordinates is a WGS-84 position in decimal degrees.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceKm returns the Haversine great-circle distance between two
// coordinates in kilometers. NaN inputs propagate; callers validate.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	return gpx.Distance2D(lat1, lon1, lat2, lon2, true) / metersPerKm
}

// Distance returns the great-circle distance between two Coordinates in km.
func Distance(a, b Coordinates) float64 {
	return DistanceKm(a.Lat, a.Lon, b.Lat, b.Lon)
}
