package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/httplog/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/urfave/cli/v2"

	"github.com/carbumap/carbumap/internal/config"
	"github.com/carbumap/carbumap/internal/favorites"
	"github.com/carbumap/carbumap/internal/metrics"
	"github.com/carbumap/carbumap/internal/server"
	"github.com/carbumap/carbumap/internal/stations"
	"github.com/carbumap/carbumap/pkg/feed"
)

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:   "serve",
		Usage:  "Run the HTTP API server",
		Action: serveAction,
	}
}

func serveAction(c *cli.Context) error {
	cfg := config.MustLoad()
	ctx := c.Context

	logger := httplog.NewLogger("carbumap", httplog.Options{
		JSON:            cfg.Env == "production",
		LogLevel:        slog.LevelDebug,
		Concise:         true,
		QuietDownPeriod: 10 * time.Second,
	})

	storage, err := stations.NewStorage(ctx, cfg.DBPath, logger.Logger)
	if err != nil {
		return fmt.Errorf("error initializing storage: %w", err)
	}
	defer storage.Close()

	favs, err := favorites.NewStore(cfg.FavoritesPath)
	if err != nil {
		return fmt.Errorf("error opening favorites store: %w", err)
	}

	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	client := feed.NewClientWithURL(cfg.FeedURL)
	go server.RunUpdater(ctx, storage, client, m, logger, cfg.UpdateInterval)

	srv := server.New(storage, favs, m, cfg.Tiers, logger)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "addr", addr, "env", cfg.Env)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Router(reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
