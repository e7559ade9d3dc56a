package mapview

import (
	"testing"

	"github.com/carbumap/carbumap/pkg/geo"
)

func namedStation(id, name string, lat, lon float64) Station {
	s := testStation(id, lat, lon)
	s.Name = name
	return s
}

func TestPresentSorted_PriceAscending(t *testing.T) {
	stations := []Station{
		priceStation("1", 48.85, 2.35, 1.749),
		priceStation("2", 48.86, 2.36, 1.629),
		testStation("3", 48.87, 2.37), // no Gazole price, sorts last
		priceStation("4", 48.88, 2.38, 1.701),
	}

	got := PresentSorted(stations, DefaultSortState(), nil)

	want := []string{"2", "4", "1", "3"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Position %d: expected station %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestPresentSorted_PriceDescending(t *testing.T) {
	stations := []Station{
		priceStation("1", 48.85, 2.35, 1.629),
		priceStation("2", 48.86, 2.36, 1.749),
	}
	state := SortState{SortBy: SortByPrice, Order: Descending, FuelFilter: FuelAll}

	got := PresentSorted(stations, state, nil)
	if got[0].ID != "2" || got[1].ID != "1" {
		t.Errorf("Expected descending price order [2 1], got [%s %s]", got[0].ID, got[1].ID)
	}
}

func TestPresentSorted_FuelFilterExcludesUnpriced(t *testing.T) {
	withE85 := testStation("1", 48.85, 2.35)
	withE85.SetPrice(FuelE85, 0.899)
	withoutE85 := priceStation("2", 48.86, 2.36, 1.629)

	state := SortState{SortBy: SortByPrice, Order: Ascending, FuelFilter: FuelE85}
	got := PresentSorted([]Station{withoutE85, withE85}, state, nil)

	if len(got) != 1 || got[0].ID != "1" {
		t.Errorf("Expected only the E85-priced station, got %v", got)
	}
}

func TestPresentSorted_DistanceWithLocation(t *testing.T) {
	paris := geo.Coordinates{Lat: 48.8566, Lon: 2.3522}
	stations := []Station{
		testStation("lyon", 45.7640, 4.8357),
		testStation("nearby", 48.8570, 2.3530),
		testStation("marseille", 43.2965, 5.3698),
	}
	state := SortState{SortBy: SortByDistance, Order: Ascending, FuelFilter: FuelAll}

	got := PresentSorted(stations, state, &paris)
	want := []string{"nearby", "lyon", "marseille"}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Position %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
}

func TestPresentSorted_DistanceWithoutLocation(t *testing.T) {
	stations := []Station{
		testStation("b", 45.76, 4.83),
		testStation("a", 48.85, 2.35),
	}
	state := SortState{SortBy: SortByDistance, Order: Ascending, FuelFilter: FuelAll}

	got := PresentSorted(stations, state, nil)
	if got[0].ID != "b" || got[1].ID != "a" {
		t.Error("Expected stable pass-through when user location is missing")
	}
}

func TestPresentSorted_NameStability(t *testing.T) {
	stations := []Station{
		namedStation("1", "Total", 48.85, 2.35),
		namedStation("2", "Avia", 48.86, 2.36),
		namedStation("3", "Total", 48.87, 2.37), // same name as 1
		namedStation("4", "Esso", 48.88, 2.38),
	}
	state := SortState{SortBy: SortByName, Order: Ascending, FuelFilter: FuelAll}

	once := PresentSorted(stations, state, nil)
	twice := PresentSorted(once, state, nil)

	for i := range once {
		if once[i].ID != twice[i].ID {
			t.Fatalf("Sorting an already-sorted list changed the order at %d", i)
		}
	}
	// Equal names keep their relative input order.
	if once[2].ID != "1" || once[3].ID != "3" {
		t.Errorf("Expected tied names in input order [1 3], got [%s %s]", once[2].ID, once[3].ID)
	}
}

func TestPresentSorted_DoesNotMutateInput(t *testing.T) {
	stations := []Station{
		priceStation("1", 48.85, 2.35, 1.749),
		priceStation("2", 48.86, 2.36, 1.629),
	}

	PresentSorted(stations, DefaultSortState(), nil)
	if stations[0].ID != "1" || stations[1].ID != "2" {
		t.Error("PresentSorted must not reorder the input slice")
	}
}
