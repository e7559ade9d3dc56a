package mapview

import (
	"math"
	"reflect"
	"testing"
)

func priceStation(id string, lat, lon float64, gazole float64) Station {
	s := testStation(id, lat, lon)
	s.Gazole = &gazole
	return s
}

func TestComputeClusters_HighZoomDisablesClustering(t *testing.T) {
	stations := []Station{
		testStation("1", 48.8566, 2.3522),
		testStation("2", 48.8566, 2.3523),
		testStation("3", 48.8567, 2.3522),
	}

	for _, zoom := range []int{12, 13, 16} {
		result := ComputeClusters(stations, zoom)
		if len(result.Clusters) != 0 {
			t.Errorf("zoom %d: expected no clusters, got %d", zoom, len(result.Clusters))
		}
		if len(result.Singles) != len(stations) {
			t.Fatalf("zoom %d: expected %d singles, got %d", zoom, len(stations), len(result.Singles))
		}
		for i := range stations {
			if result.Singles[i].ID != stations[i].ID {
				t.Errorf("zoom %d: singles order not preserved at %d", zoom, i)
			}
		}
	}
}

func TestComputeClusters_Partition(t *testing.T) {
	stations := []Station{
		testStation("1", 48.8566, 2.3522),
		testStation("2", 48.8570, 2.3530), // near 1
		testStation("3", 45.7640, 4.8357), // Lyon, isolated
		testStation("4", 48.8560, 2.3510), // near 1
		testStation("5", 43.2965, 5.3698), // Marseille, isolated
	}

	for _, zoom := range []int{3, 8, 11} {
		result := ComputeClusters(stations, zoom)

		seen := make(map[string]int)
		total := 0
		for _, c := range result.Clusters {
			if c.Count() == 0 {
				t.Fatalf("zoom %d: empty cluster", zoom)
			}
			for _, m := range c.Members {
				seen[m.ID]++
				total++
			}
		}
		for _, s := range result.Singles {
			seen[s.ID]++
			total++
		}

		if total != len(stations) {
			t.Errorf("zoom %d: expected %d total members, got %d", zoom, len(stations), total)
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("zoom %d: station %s assigned %d times", zoom, id, n)
			}
		}
	}
}

func TestComputeClusters_Deterministic(t *testing.T) {
	stations := []Station{
		testStation("1", 48.8566, 2.3522),
		testStation("2", 48.8570, 2.3530),
		testStation("3", 48.8700, 2.3700),
		testStation("4", 45.7640, 4.8357),
	}

	first := ComputeClusters(stations, 9)
	second := ComputeClusters(stations, 9)
	if !reflect.DeepEqual(first, second) {
		t.Error("ComputeClusters is not deterministic for identical input")
	}
}

func TestComputeClusters_DistanceBands(t *testing.T) {
	// Two stations 0.03 degrees apart: clustered in the wide band only.
	stations := []Station{
		testStation("1", 48.00, 2.00),
		testStation("2", 48.03, 2.00),
	}

	if r := ComputeClusters(stations, 6); len(r.Clusters) != 1 {
		t.Errorf("zoom 6 (0.05 band): expected one cluster, got %d clusters / %d singles",
			len(r.Clusters), len(r.Singles))
	}
	if r := ComputeClusters(stations, 9); len(r.Clusters) != 0 || len(r.Singles) != 2 {
		t.Errorf("zoom 9 (0.02 band): expected two singles, got %d clusters / %d singles",
			len(r.Clusters), len(r.Singles))
	}
	if r := ComputeClusters(stations, 11); len(r.Clusters) != 0 || len(r.Singles) != 2 {
		t.Errorf("zoom 11 (0.01 band): expected two singles, got %d clusters / %d singles",
			len(r.Clusters), len(r.Singles))
	}
}

func TestComputeClusters_ParisPair(t *testing.T) {
	// Two stations a street apart with different diesel prices.
	stations := []Station{
		priceStation("1", 48.8566, 2.3522, 1.629),
		priceStation("2", 48.8566, 2.3523, 1.749),
	}

	result := ComputeClusters(stations, 6)
	if len(result.Clusters) != 1 || len(result.Singles) != 0 {
		t.Fatalf("Expected one cluster of 2, got %d clusters / %d singles",
			len(result.Clusters), len(result.Singles))
	}

	c := result.Clusters[0]
	if c.Count() != 2 {
		t.Errorf("Expected 2 members, got %d", c.Count())
	}
	if math.Abs(c.Lat-48.8566) > 1e-9 {
		t.Errorf("Expected centroid lat 48.8566, got %f", c.Lat)
	}
	if math.Abs(c.Lon-2.35225) > 1e-9 {
		t.Errorf("Expected centroid lon 2.35225, got %f", c.Lon)
	}

	rep := c.RepresentativePrice()
	if rep == nil || *rep != 1.629 {
		t.Errorf("Expected representative price 1.629, got %v", rep)
	}
	if c.First().ID != "1" {
		t.Errorf("Expected first member by input order to be station 1, got %s", c.First().ID)
	}
}

func TestCluster_RepresentativePriceSkipsMissing(t *testing.T) {
	noPrice := testStation("1", 48.0, 2.0)
	priced := priceStation("2", 48.0, 2.001, 1.701)
	c := Cluster{Members: []Station{noPrice, priced}}

	rep := c.RepresentativePrice()
	if rep == nil || *rep != 1.701 {
		t.Errorf("Expected representative price 1.701, got %v", rep)
	}

	empty := Cluster{Members: []Station{noPrice}}
	if empty.RepresentativePrice() != nil {
		t.Error("Expected nil representative price when no member has one")
	}
}

func TestComputeClusters_GreedySeedOwnsNeighbors(t *testing.T) {
	// Station 2 sits between 1 and 3; the first station in input order seeds
	// the cluster and owns 2, leaving 3 a singleton even though 2-3 are close.
	stations := []Station{
		testStation("1", 48.000, 2.000),
		testStation("2", 48.009, 2.000),
		testStation("3", 48.018, 2.000),
	}

	result := ComputeClusters(stations, 11) // 0.01 band
	if len(result.Clusters) != 1 || len(result.Singles) != 1 {
		t.Fatalf("Expected 1 cluster + 1 single, got %d clusters / %d singles",
			len(result.Clusters), len(result.Singles))
	}
	if result.Singles[0].ID != "3" {
		t.Errorf("Expected station 3 to be left a singleton, got %s", result.Singles[0].ID)
	}
}

func BenchmarkComputeClusters(b *testing.B) {
	stations := make([]Station, 0, 2000)
	for i := 0; i < 2000; i++ {
		lat := 42.0 + float64(i%200)*0.03
		lon := -1.0 + float64(i/200)*0.03
		stations = append(stations, testStation(string(rune('a'+i%26)), lat, lon))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ComputeClusters(stations, 8)
	}
}
