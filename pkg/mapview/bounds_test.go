package mapview

import "testing"

func testStation(id string, lat, lon float64) Station {
	return Station{ID: id, Name: "Station " + id, Lat: lat, Lon: lon}
}

func TestFilterInBounds(t *testing.T) {
	stations := []Station{
		testStation("1", 48.85, 2.35),  // Paris, inside
		testStation("2", 45.76, 4.83),  // Lyon, outside
		testStation("3", 48.80, 2.30),  // inside
		testStation("4", 49.00, 2.35),  // exactly on north edge
		testStation("5", 48.50, 1.99),  // just west of the west edge
	}
	bounds := Bounds{North: 49.0, South: 48.5, East: 2.5, West: 2.0}

	got := FilterInBounds(stations, bounds)

	want := []string{"1", "3", "4"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d stations in bounds, got %d", len(want), len(got))
	}
	for i, id := range want {
		if got[i].ID != id {
			t.Errorf("Expected station %s at position %d, got %s", id, i, got[i].ID)
		}
	}
}

func TestFilterInBounds_PreservesOrder(t *testing.T) {
	stations := []Station{
		testStation("z", 48.6, 2.1),
		testStation("a", 48.7, 2.2),
		testStation("m", 48.8, 2.3),
	}
	bounds := Bounds{North: 49.0, South: 48.5, East: 2.5, West: 2.0}

	got := FilterInBounds(stations, bounds)
	if len(got) != 3 || got[0].ID != "z" || got[1].ID != "a" || got[2].ID != "m" {
		t.Errorf("FilterInBounds should preserve input order, got %v", got)
	}
}

func TestFilterInBounds_DegenerateBounds(t *testing.T) {
	stations := []Station{testStation("1", 48.85, 2.35)}

	// north == south retains only stations exactly on the line
	line := Bounds{North: 48.85, South: 48.85, East: 2.5, West: 2.0}
	if got := FilterInBounds(stations, line); len(got) != 1 {
		t.Errorf("Expected station on the degenerate line to be retained, got %d", len(got))
	}

	// inverted bounds match nothing
	inverted := Bounds{North: 48.0, South: 49.0, East: 2.5, West: 2.0}
	if got := FilterInBounds(stations, inverted); len(got) != 0 {
		t.Errorf("Expected empty result for inverted bounds, got %d", len(got))
	}
}

func TestFilterInBounds_EmptyInput(t *testing.T) {
	bounds := Bounds{North: 49.0, South: 48.5, East: 2.5, West: 2.0}
	if got := FilterInBounds(nil, bounds); len(got) != 0 {
		t.Errorf("Expected empty result for empty input, got %d", len(got))
	}
}
