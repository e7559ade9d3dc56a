package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/carbumap/carbumap/internal/stations"
)

func statsCommand() *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show national gazole price statistics",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: "stations.db",
			},
		},
		Action: statsAction,
	}
}

func statsAction(c *cli.Context) error {
	storage, err := stations.NewStorage(c.Context, c.String("db"), slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer storage.Close()

	stats, err := storage.PriceStats(c.Context)
	if err != nil {
		return err
	}

	fmt.Printf("Gazole min: %s €\n", formatPrice(stats.MinGazole))
	fmt.Printf("Gazole max: %s €\n", formatPrice(stats.MaxGazole))
	fmt.Printf("Gazole avg: %s €\n", formatPrice(stats.AvgGazole))

	if updated, err := storage.LastUpdated(c.Context); err == nil && updated != nil {
		fmt.Printf("Last updated: %s\n", updated.Format("2006-01-02 15:04"))
	}
	return nil
}
