package feed

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/carbumap/carbumap/pkg/mapview"
)

// PriceList is the root element of the PrixCarburants instantaneous XML.
type PriceList struct {
	PointsOfSale []PointOfSale `xml:"pdv"`
}

// PointOfSale is a <pdv> element: one station with its current prices.
// Coordinates are PTV_GEODECIMAL, decimal degrees multiplied by 100000.
type PointOfSale struct {
	ID        string  `xml:"id,attr"`
	Latitude  string  `xml:"latitude,attr"`
	Longitude string  `xml:"longitude,attr"`
	CP        string  `xml:"cp,attr"`
	Pop       string  `xml:"pop,attr"`
	Adresse   string  `xml:"adresse"`
	Ville     string  `xml:"ville"`
	Prix      []Price `xml:"prix"`
}

// Price is a <prix> element: one fuel's current price in €/liter.
type Price struct {
	Nom    string `xml:"nom,attr"`
	ID     string `xml:"id,attr"`
	Maj    string `xml:"maj,attr"`
	Valeur string `xml:"valeur,attr"`
}

const geodecimalScale = 100000.0

// feedFuelKinds maps the feed's fuel names to the six supported kinds.
var feedFuelKinds = map[string]mapview.FuelKind{
	"Gazole": mapview.FuelGazole,
	"SP95":   mapview.FuelSP95,
	"SP98":   mapview.FuelSP98,
	"E10":    mapview.FuelE10,
	"E85":    mapview.FuelE85,
	"GPLc":   mapview.FuelGPLc,
}

// majLayouts are the timestamp formats seen in the maj attribute over the
// feed's lifetime.
var majLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// Coordinates parses and scales the PTV_GEODECIMAL attributes.
func (p *PointOfSale) Coordinates() (lat, lon float64, err error) {
	lat, err = parseGeodecimal(p.Latitude)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err = parseGeodecimal(p.Longitude)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing longitude: %w", err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return 0, 0, fmt.Errorf("coordinates out of range: %f, %f", lat, lon)
	}
	return lat, lon, nil
}

// ToStation converts the point of sale to the map core's station model.
// Fuels absent from the element stay nil; LastUpdated is the most recent
// price update timestamp.
func (p *PointOfSale) ToStation() (mapview.Station, error) {
	lat, lon, err := p.Coordinates()
	if err != nil {
		return mapview.Station{}, err
	}

	station := mapview.Station{
		ID:      p.ID,
		Name:    stationName(p),
		Address: p.Adresse,
		City:    p.Ville,
		Lat:     lat,
		Lon:     lon,
	}

	for _, prix := range p.Prix {
		kind, ok := feedFuelKinds[prix.Nom]
		if !ok {
			continue
		}
		value, err := strconv.ParseFloat(strings.Replace(prix.Valeur, ",", ".", 1), 64)
		if err != nil || value <= 0 {
			continue
		}
		station.SetPrice(kind, value)

		if maj, ok := parseMaj(prix.Maj); ok && maj.After(station.LastUpdated) {
			station.LastUpdated = maj
		}
	}

	return station, nil
}

// stationName builds a display name; the feed carries no brand name, so the
// city is the best available label.
func stationName(p *PointOfSale) string {
	if p.Ville != "" {
		return p.Ville
	}
	return "Station " + p.ID
}

func parseGeodecimal(s string) (float64, error) {
	s = strings.Replace(strings.TrimSpace(s), ",", ".", 1)
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	return v / geodecimalScale, nil
}

func parseMaj(s string) (time.Time, bool) {
	for _, layout := range majLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
