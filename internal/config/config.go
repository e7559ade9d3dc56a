// Package config loads runtime settings from the environment, with an
// optional .env file for local development.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/carbumap/carbumap/pkg/feed"
	"github.com/carbumap/carbumap/pkg/mapview"
)

// Config holds the settings for the carbumap server and CLI.
type Config struct {
	Env            string        // local, development or production
	Port           int           // HTTP server port
	DBPath         string        // SQLite database file
	FeedURL        string        // price feed location
	FavoritesPath  string        // favorites JSON file
	UpdateInterval time.Duration // background feed refresh period

	Tiers        mapview.TierThresholds // price tier boundaries, €/liter
	Debounce     time.Duration          // viewport quiescence window
	CacheTTL     time.Duration          // bounds-result cache TTL
	MinFetchZoom int                    // at or below, station fetches are suppressed
}

// MustLoad reads the configuration from the environment, panicking on
// malformed values so misconfiguration fails at startup.
func MustLoad() *Config {
	_ = godotenv.Load()

	return &Config{
		Env:            envOr("CARBUMAP_ENV", "production"),
		Port:           mustInt("CARBUMAP_PORT", 8080),
		DBPath:         envOr("CARBUMAP_DB", "stations.db"),
		FeedURL:        envOr("CARBUMAP_FEED_URL", feed.DefaultFeedURL),
		FavoritesPath:  envOr("CARBUMAP_FAVORITES", "favorites.json"),
		UpdateInterval: mustDuration("CARBUMAP_UPDATE_INTERVAL", 6*time.Hour),
		Tiers: mapview.TierThresholds{
			Low:  mustFloat("CARBUMAP_TIER_LOW", mapview.DefaultTierThresholds.Low),
			High: mustFloat("CARBUMAP_TIER_HIGH", mapview.DefaultTierThresholds.High),
		},
		Debounce:     mustDuration("CARBUMAP_DEBOUNCE", mapview.DefaultDebounce),
		CacheTTL:     mustDuration("CARBUMAP_CACHE_TTL", mapview.DefaultCacheTTL),
		MinFetchZoom: mustInt("CARBUMAP_MIN_FETCH_ZOOM", mapview.DefaultMinFetchZoom),
	}
}

func envOr(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	return value
}

func mustInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		panic("invalid integer for " + key + ": " + value)
	}
	return n
}

func mustFloat(key string, fallback float64) float64 {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		panic("invalid float for " + key + ": " + value)
	}
	return f
}

func mustDuration(key string, fallback time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		panic("invalid duration for " + key + ": " + value)
	}
	return d
}
