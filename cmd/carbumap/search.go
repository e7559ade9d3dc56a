package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/carbumap/carbumap/internal/stations"
)

func searchCommand() *cli.Command {
	return &cli.Command{
		Name:      "search",
		Usage:     "Search stations by name, city or address",
		ArgsUsage: "<query>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: "stations.db",
			},
		},
		Action: searchAction,
	}
}

func searchAction(c *cli.Context) error {
	query := c.Args().First()
	if query == "" {
		return errors.New("a search query is required")
	}

	storage, err := stations.NewStorage(c.Context, c.String("db"), slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer storage.Close()

	found, err := storage.Search(c.Context, query)
	if err != nil {
		return err
	}

	for i, st := range found {
		fmt.Printf("%d. %s (%s, %s)\n", i+1, st.Name, st.City, st.ID)
		fmt.Printf("   %s\n", st.Address)
		fmt.Printf("   Gazole: %s €\n", formatPrice(st.Gazole))
	}
	fmt.Printf("Found %d stations\n", len(found))
	return nil
}
