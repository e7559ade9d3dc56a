package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"

	"github.com/carbumap/carbumap/internal/stations"
	"github.com/carbumap/carbumap/pkg/feed"
)

func updateCommand() *cli.Command {
	return &cli.Command{
		Name:  "update",
		Usage: "Download the price feed and replace the station database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "db",
				Usage: "Database file",
				Value: "stations.db",
			},
			&cli.StringFlag{
				Name:  "feed-url",
				Usage: "Price feed URL",
				Value: feed.DefaultFeedURL,
			},
		},
		Action: updateAction,
	}
}

func updateAction(c *cli.Context) error {
	storage, err := stations.NewStorage(c.Context, c.String("db"), slog.New(slog.DiscardHandler))
	if err != nil {
		return err
	}
	defer storage.Close()

	client := feed.NewClientWithURL(c.String("feed-url"))
	if err := storage.UpdateFromFeed(c.Context, client); err != nil {
		return err
	}

	all, err := storage.All(c.Context)
	if err != nil {
		return err
	}
	fmt.Printf("Updated %d stations\n", len(all))
	return nil
}
