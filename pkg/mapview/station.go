// Package mapview implements the map-facing core: viewport filtering,
// zoom-dependent marker clustering, price tiers, list sorting and the
// debounced bounds-fetch controller.
package mapview

import "time"

// FuelKind identifies one of the six fuel variants published by the
// French price feed.
type FuelKind string

const (
	FuelGazole FuelKind = "gazole" // diesel
	FuelSP95   FuelKind = "sp95"
	FuelSP98   FuelKind = "sp98"
	FuelE10    FuelKind = "e10"
	FuelE85    FuelKind = "e85"
	FuelGPLc   FuelKind = "gplc"

	// FuelAll selects no fuel filter in the list view.
	FuelAll FuelKind = "all"
)

// FuelKinds lists the six concrete fuel variants in display order.
var FuelKinds = []FuelKind{FuelGazole, FuelSP95, FuelSP98, FuelE10, FuelE85, FuelGPLc}

// Station is a single fuel retail point. Prices are €/liter and nil when
// the station does not sell that fuel or the feed carried no value; a nil
// price is "no data", never zero.
type Station struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`

	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`

	Gazole *float64 `json:"gazole,omitempty"`
	SP95   *float64 `json:"sp95,omitempty"`
	SP98   *float64 `json:"sp98,omitempty"`
	E10    *float64 `json:"e10,omitempty"`
	E85    *float64 `json:"e85,omitempty"`
	GPLc   *float64 `json:"gplc,omitempty"`

	LastUpdated time.Time `json:"last_updated"`
}

// Price returns the station's price for the given fuel kind, or nil when
// unavailable. FuelAll falls back to Gazole, the default comparison fuel.
func (s *Station) Price(kind FuelKind) *float64 {
	switch kind {
	case FuelGazole, FuelAll:
		return s.Gazole
	case FuelSP95:
		return s.SP95
	case FuelSP98:
		return s.SP98
	case FuelE10:
		return s.E10
	case FuelE85:
		return s.E85
	case FuelGPLc:
		return s.GPLc
	default:
		return nil
	}
}

// SetPrice stores a price for the given fuel kind. Unknown kinds are ignored.
func (s *Station) SetPrice(kind FuelKind, price float64) {
	p := price
	switch kind {
	case FuelGazole:
		s.Gazole = &p
	case FuelSP95:
		s.SP95 = &p
	case FuelSP98:
		s.SP98 = &p
	case FuelE10:
		s.E10 = &p
	case FuelE85:
		s.E85 = &p
	case FuelGPLc:
		s.GPLc = &p
	}
}
