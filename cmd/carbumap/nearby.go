package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/muesli/gominatim"
	"github.com/urfave/cli/v2"

	"github.com/carbumap/carbumap/internal/stations"
	"github.com/carbumap/carbumap/pkg/geo"
	"github.com/carbumap/carbumap/pkg/mapview"
)

func nearbyCommand() *cli.Command {
	return &cli.Command{
		Name:  "list-nearby",
		Usage: "List gas stations around a location",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "location",
				Usage: "Place name to geocode",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: "stations.db",
			},
			&cli.Float64Flag{
				Name:  "lat",
				Usage: "Latitude of the location",
			},
			&cli.Float64Flag{
				Name:  "long",
				Usage: "Longitude of the location",
			},
			&cli.Float64Flag{
				Name:    "radius",
				Aliases: []string{"r"},
				Usage:   "Search radius in kilometers",
				Value:   5.0,
			},
			&cli.StringFlag{
				Name:  "fuel",
				Usage: "Only list stations selling this fuel (gazole, sp95, sp98, e10, e85, gplc)",
				Value: string(mapview.FuelAll),
			},
			&cli.StringFlag{
				Name:  "sort",
				Usage: "Sort order: price, distance or name",
				Value: string(mapview.SortByPrice),
			},
		},
		Action: nearbyAction,
	}
}

func nearbyAction(c *cli.Context) error {
	lat := c.Float64("lat")
	lng := c.Float64("long")

	if loc := c.String("location"); loc != "" {
		var err error
		lat, lng, err = geocode(loc)
		if err != nil {
			return err
		}
	} else if lat == 0 && lng == 0 {
		return errors.New("location or latitude and longitude are required")
	}

	return listNearbyStations(c, lat, lng)
}

func geocode(name string) (lat, lon float64, err error) {
	gominatim.SetServer("https://nominatim.openstreetmap.org/")
	qry := gominatim.SearchQuery{Q: name}

	resp, err := qry.Get()
	if err != nil {
		return 0, 0, err
	}
	if len(resp) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", name)
	}
	fmt.Println("Location found:", resp[0].DisplayName)

	lat, err = strconv.ParseFloat(resp[0].Lat, 64)
	if err != nil {
		return 0, 0, err
	}
	lon, err = strconv.ParseFloat(resp[0].Lon, 64)
	if err != nil {
		return 0, 0, err
	}
	return lat, lon, nil
}

func listNearbyStations(c *cli.Context, lat, lng float64) error {
	radius := c.Float64("radius")

	storage, err := stations.NewStorage(c.Context, c.String("db"), slog.New(slog.DiscardHandler))
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	all, err := storage.All(c.Context)
	if err != nil {
		return fmt.Errorf("error fetching stations: %w", err)
	}

	var nearby []mapview.Station
	for _, st := range all {
		if geo.DistanceKm(lat, lng, st.Lat, st.Lon) <= radius {
			nearby = append(nearby, st)
		}
	}

	state := mapview.DefaultSortState()
	state.SortBy = mapview.SortBy(c.String("sort"))
	state.FuelFilter = mapview.FuelKind(c.String("fuel"))
	location := geo.Coordinates{Lat: lat, Lon: lng}
	presented := mapview.PresentSorted(nearby, state, &location)

	tiers := mapview.DefaultTierThresholds
	for i, st := range presented {
		fmt.Printf("%d. %s (%s)\n", i+1, st.Name, st.Address)
		fmt.Printf("   City: %s\n", st.City)
		fmt.Printf("   Distance: %.2f km\n", geo.DistanceKm(lat, lng, st.Lat, st.Lon))
		fmt.Printf("   Gazole: %s € (%s)\n", formatPrice(st.Gazole), tiers.Tier(st.Gazole))
		fmt.Printf("   SP95: %s €\n", formatPrice(st.SP95))
		fmt.Printf("   SP98: %s €\n", formatPrice(st.SP98))
		fmt.Printf("   E10: %s €\n", formatPrice(st.E10))
		fmt.Printf("   E85: %s €\n", formatPrice(st.E85))
		fmt.Printf("   GPLc: %s €\n", formatPrice(st.GPLc))
		fmt.Printf("   Coordinates: %.5f, %.5f\n\n", st.Lat, st.Lon)
	}

	fmt.Printf("Found %d stations within %g km radius\n", len(presented), radius)
	return nil
}

func formatPrice(p *float64) string {
	if p == nil {
		return "n/a"
	}
	return strconv.FormatFloat(*p, 'f', 3, 64)
}
