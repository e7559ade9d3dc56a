package feed

import (
	"strings"
	"testing"
)

const sampleXML = `<?xml version="1.0" encoding="ISO-8859-1" standalone="yes"?>
<pdv_liste>
  <pdv id="1000001" latitude="4885660" longitude="235220" cp="75001" pop="R">
    <adresse>1 RUE DE RIVOLI</adresse>
    <ville>PARIS</ville>
    <prix nom="Gazole" id="1" maj="2026-08-25 06:01:00" valeur="1.629"/>
    <prix nom="SP95" id="2" maj="2026-08-25 06:01:00" valeur="1.799"/>
    <prix nom="E10" id="5" maj="2026-08-24 06:01:00" valeur="1.749"/>
  </pdv>
  <pdv id="1000002" latitude="4576400" longitude="483570" cp="69001" pop="R">
    <adresse>10 QUAI DE LA PECHERIE</adresse>
    <ville>LYON</ville>
    <prix nom="Gazole" id="1" maj="2026-08-25 05:30:00" valeur="1.749"/>
    <prix nom="GPLc" id="4" maj="2026-08-25 05:30:00" valeur="0.999"/>
  </pdv>
  <pdv id="1000003" latitude="not-a-number" longitude="0" cp="00000" pop="R">
    <adresse>NOWHERE</adresse>
    <ville>NULLE PART</ville>
    <prix nom="Gazole" id="1" maj="2026-08-25 05:30:00" valeur="1.500"/>
  </pdv>
</pdv_liste>`

func TestParseStations(t *testing.T) {
	stations, err := ParseStations(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("ParseStations() failed: %v", err)
	}

	// The third point of sale has an unparseable latitude and is skipped.
	if len(stations) != 2 {
		t.Fatalf("Expected 2 stations, got %d", len(stations))
	}

	paris := stations[0]
	if paris.ID != "1000001" {
		t.Errorf("Expected id 1000001, got %s", paris.ID)
	}
	if paris.City != "PARIS" || paris.Address != "1 RUE DE RIVOLI" {
		t.Errorf("Unexpected address fields: %q / %q", paris.Address, paris.City)
	}
	if paris.Lat != 48.8566 || paris.Lon != 2.3522 {
		t.Errorf("Expected scaled coordinates (48.8566, 2.3522), got (%f, %f)", paris.Lat, paris.Lon)
	}
	if paris.Gazole == nil || *paris.Gazole != 1.629 {
		t.Errorf("Expected Gazole 1.629, got %v", paris.Gazole)
	}
	if paris.SP95 == nil || *paris.SP95 != 1.799 {
		t.Errorf("Expected SP95 1.799, got %v", paris.SP95)
	}
	if paris.E10 == nil || *paris.E10 != 1.749 {
		t.Errorf("Expected E10 1.749, got %v", paris.E10)
	}
	// Fuels absent from the element are no-data, never zero.
	if paris.SP98 != nil || paris.E85 != nil || paris.GPLc != nil {
		t.Error("Expected nil prices for fuels missing from the feed")
	}
	if paris.LastUpdated.IsZero() {
		t.Error("Expected LastUpdated from the maj attribute")
	}

	lyon := stations[1]
	if lyon.GPLc == nil || *lyon.GPLc != 0.999 {
		t.Errorf("Expected GPLc 0.999, got %v", lyon.GPLc)
	}
}

func TestParseStations_LastUpdatedIsLatestMaj(t *testing.T) {
	stations, err := ParseStations(strings.NewReader(sampleXML))
	if err != nil {
		t.Fatalf("ParseStations() failed: %v", err)
	}

	paris := stations[0]
	if got := paris.LastUpdated.Format("2006-01-02"); got != "2026-08-25" {
		t.Errorf("Expected the most recent maj date, got %s", got)
	}
}

func TestPointOfSale_Coordinates(t *testing.T) {
	tests := []struct {
		lat, lon string
		wantLat  float64
		wantLon  float64
		hasError bool
	}{
		{"4885660", "235220", 48.8566, 2.3522, false},
		{"4885660,5", "235220", 48.856605, 2.3522, false}, // decimal comma
		{"-4885660", "235220", -48.8566, 2.3522, false},
		{"99999999", "235220", 0, 0, true}, // out of range
		{"invalid", "235220", 0, 0, true},
		{"", "", 0, 0, true},
	}

	for _, test := range tests {
		p := PointOfSale{Latitude: test.lat, Longitude: test.lon}
		lat, lon, err := p.Coordinates()
		if test.hasError {
			if err == nil {
				t.Errorf("Coordinates(%q, %q) expected error", test.lat, test.lon)
			}
			continue
		}
		if err != nil {
			t.Errorf("Coordinates(%q, %q) unexpected error: %v", test.lat, test.lon, err)
			continue
		}
		if lat != test.wantLat || lon != test.wantLon {
			t.Errorf("Coordinates(%q, %q) = (%f, %f), expected (%f, %f)",
				test.lat, test.lon, lat, lon, test.wantLat, test.wantLon)
		}
	}
}

func TestToStation_IgnoresUnknownFuelAndBadValues(t *testing.T) {
	p := PointOfSale{
		ID: "42", Latitude: "4885660", Longitude: "235220", Ville: "PARIS",
		Prix: []Price{
			{Nom: "Hydrogène", Valeur: "12.000"}, // not one of the six kinds
			{Nom: "Gazole", Valeur: "abc"},
			{Nom: "SP95", Valeur: "0"},
			{Nom: "E85", Valeur: "0,899", Maj: "2026-08-25 06:01:00"},
		},
	}

	station, err := p.ToStation()
	if err != nil {
		t.Fatalf("ToStation() failed: %v", err)
	}
	if station.Gazole != nil || station.SP95 != nil {
		t.Error("Expected unparseable and zero prices to stay nil")
	}
	if station.E85 == nil || *station.E85 != 0.899 {
		t.Errorf("Expected E85 0.899 parsed from decimal comma, got %v", station.E85)
	}
}
