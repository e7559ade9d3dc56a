package mapview

import "fmt"

// Bounds is the rectangular geographic region currently visible on the map.
// The map component produces a fresh value on every pan or zoom; antimeridian
// wrapping (east < west) is not handled.
type Bounds struct {
	North float64 `json:"north"`
	South float64 `json:"south"`
	East  float64 `json:"east"`
	West  float64 `json:"west"`
}

// Contains reports whether the coordinate falls inside the bounds,
// boundaries included.
func (b Bounds) Contains(lat, lon float64) bool {
	return lat >= b.South && lat <= b.North && lon >= b.West && lon <= b.East
}

// Key returns a stable string form of the bounds, used as a cache key.
func (b Bounds) Key() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.North, b.South, b.East, b.West)
}

// FilterInBounds returns the stations whose coordinates fall inside the
// bounds, preserving input order. The input is never mutated. Degenerate
// bounds (north == south, or inverted) yield an empty result, not an error:
// the map passes transient invalid bounds during animation.
func FilterInBounds(stations []Station, bounds Bounds) []Station {
	var inside []Station
	for _, s := range stations {
		if bounds.Contains(s.Lat, s.Lon) {
			inside = append(inside, s)
		}
	}
	return inside
}
