package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "carbumap",
		Usage: "Serve the French fuel price map and query the station database",
		Commands: []*cli.Command{
			serveCommand(),
			updateCommand(),
			nearbyCommand(),
			searchCommand(),
			statsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
