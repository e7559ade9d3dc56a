package mapview

import (
	"math"
	"sort"

	"github.com/carbumap/carbumap/pkg/geo"
)

// SortBy selects the comparison key for the station list view.
type SortBy string

const (
	SortByPrice    SortBy = "price"
	SortByDistance SortBy = "distance"
	SortByName     SortBy = "name"
)

// Order is the sort direction.
type Order string

const (
	Ascending  Order = "asc"
	Descending Order = "desc"
)

// SortState is the list view's sort and filter selection, mutated only by
// explicit user actions.
type SortState struct {
	SortBy     SortBy   `json:"sort_by"`
	Order      Order    `json:"order"`
	FuelFilter FuelKind `json:"fuel_filter"`
}

// DefaultSortState sorts by Gazole price ascending with no fuel filter.
func DefaultSortState() SortState {
	return SortState{SortBy: SortByPrice, Order: Ascending, FuelFilter: FuelAll}
}

// PresentSorted orders and filters stations for the list view. The input is
// never mutated; a new slice is returned.
//
// When a specific fuel is selected, stations without a price for that fuel
// are excluded entirely. Price sorting uses the filtered fuel (Gazole when
// the filter is "all") and places unpriced stations last in ascending order.
// Distance sorting needs userLocation; when it is nil the input order is
// kept rather than erroring. Ties keep their relative input order.
func PresentSorted(stations []Station, state SortState, userLocation *geo.Coordinates) []Station {
	presented := make([]Station, 0, len(stations))
	for _, s := range stations {
		if state.FuelFilter != FuelAll && s.Price(state.FuelFilter) == nil {
			continue
		}
		presented = append(presented, s)
	}

	var less func(i, j int) bool
	switch state.SortBy {
	case SortByPrice:
		less = func(i, j int) bool {
			return priceKey(&presented[i], state.FuelFilter) < priceKey(&presented[j], state.FuelFilter)
		}
	case SortByDistance:
		if userLocation == nil {
			return presented
		}
		loc := *userLocation
		less = func(i, j int) bool {
			di := geo.DistanceKm(loc.Lat, loc.Lon, presented[i].Lat, presented[i].Lon)
			dj := geo.DistanceKm(loc.Lat, loc.Lon, presented[j].Lat, presented[j].Lon)
			return di < dj
		}
	case SortByName:
		less = func(i, j int) bool {
			return presented[i].Name < presented[j].Name
		}
	default:
		return presented
	}

	if state.Order == Descending {
		ascending := less
		less = func(i, j int) bool { return ascending(j, i) }
	}

	sort.SliceStable(presented, less)
	return presented
}

// priceKey maps a missing price to +Inf so unpriced stations sort last
// in ascending order.
func priceKey(s *Station, filter FuelKind) float64 {
	if p := s.Price(filter); p != nil {
		return *p
	}
	return math.Inf(1)
}
