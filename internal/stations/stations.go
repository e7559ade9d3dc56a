// Package stations is the data-access layer: a SQLite-backed store of the
// current station snapshot, refreshed from the government feed, with a
// small TTL cache in front of the hot queries.
package stations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
	"github.com/patrickmn/go-cache"

	"github.com/carbumap/carbumap/pkg/feed"
	"github.com/carbumap/carbumap/pkg/mapview"
)

const (
	cacheDefaultExpiry = 5 * time.Minute
	cacheCleanupTime   = 10 * time.Minute

	searchResultLimit = 100
	statsPrecision    = 3
)

// ErrNotFound is returned when a station id does not exist.
var ErrNotFound = errors.New("station not found")

// Storage holds the station snapshot in SQLite and caches query results.
type Storage struct {
	db    *sql.DB
	cache *cache.Cache
	log   *slog.Logger
}

// PriceStatistics summarizes the Gazole price distribution across the
// snapshot. Fields are nil when no station carries a Gazole price.
type PriceStatistics struct {
	MinGazole *float64 `json:"min_gazole"`
	MaxGazole *float64 `json:"max_gazole"`
	AvgGazole *float64 `json:"avg_gazole"`
}

// NewStorage opens (or creates) the station database at dbPath.
func NewStorage(ctx context.Context, dbPath string, logger *slog.Logger) (*Storage, error) {
	db, err := sql.Open("sqlite3", "file:"+dbPath)
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err := configurePragmas(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}

	return &Storage{
		db:    db,
		cache: cache.New(cacheDefaultExpiry, cacheCleanupTime),
		log:   logger,
	}, nil
}

func configurePragmas(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 10000;"); err != nil {
		return fmt.Errorf("error setting busy timeout: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("error setting journal mode: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA synchronous = NORMAL;"); err != nil {
		return fmt.Errorf("error setting synchronous: %w", err)
	}
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	createTableSQL := `
	CREATE TABLE IF NOT EXISTS stations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		address TEXT,
		city TEXT,
		lat REAL NOT NULL,
		lon REAL NOT NULL,
		gazole REAL,
		sp95 REAL,
		sp98 REAL,
		e10 REAL,
		e85 REAL,
		gplc REAL,
		updated_at TEXT
	);
	CREATE INDEX IF NOT EXISTS idx_stations_lat_lon ON stations(lat, lon);
	CREATE INDEX IF NOT EXISTS idx_stations_city ON stations(city);
	`

	_, err := db.ExecContext(ctx, createTableSQL)
	if err != nil {
		return fmt.Errorf("error creating stations table: %w", err)
	}
	return nil
}

// Close flushes the cache and closes the database.
func (s *Storage) Close() error {
	if s.cache != nil {
		s.cache.Flush()
	}
	return s.db.Close()
}

// ReplaceAll swaps the whole snapshot for a fresh one from the feed, in a
// single transaction, and invalidates the cache.
func (s *Storage) ReplaceAll(ctx context.Context, stations []mapview.Station) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Warn("rollback error", "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, "DELETE FROM stations"); err != nil {
		return fmt.Errorf("error clearing stations: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO stations (
			id, name, address, city, lat, lon,
			gazole, sp95, sp98, e10, e85, gplc, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("error preparing statement: %w", err)
	}
	defer stmt.Close()

	for i := range stations {
		st := &stations[i]
		var updatedAt any
		if !st.LastUpdated.IsZero() {
			updatedAt = st.LastUpdated.UTC().Format(time.RFC3339)
		}
		_, err := stmt.ExecContext(ctx,
			st.ID, st.Name, st.Address, st.City, st.Lat, st.Lon,
			nullable(st.Gazole), nullable(st.SP95), nullable(st.SP98),
			nullable(st.E10), nullable(st.E85), nullable(st.GPLc),
			updatedAt,
		)
		if err != nil {
			return fmt.Errorf("error inserting station %s: %w", st.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("error committing transaction: %w", err)
	}

	s.cache.Flush()
	s.log.Info("Station snapshot replaced", "count", len(stations))
	return nil
}

// UpdateFromFeed downloads the current feed and replaces the snapshot.
func (s *Storage) UpdateFromFeed(ctx context.Context, client *feed.Client) error {
	stations, err := client.FetchStations(ctx)
	if err != nil {
		return fmt.Errorf("error fetching feed: %w", err)
	}
	if len(stations) == 0 {
		return fmt.Errorf("feed returned no stations")
	}
	return s.ReplaceAll(ctx, stations)
}

const stationColumns = `id, name, address, city, lat, lon,
	gazole, sp95, sp98, e10, e85, gplc, updated_at`

// All returns every station, ordered by id.
func (s *Storage) All(ctx context.Context) ([]mapview.Station, error) {
	const cacheKey = "all_stations"
	if cached, found := s.cache.Get(cacheKey); found {
		s.log.Debug("Using cached data", "key", cacheKey)
		return cached.([]mapview.Station), nil
	}

	stations, err := s.queryStations(ctx,
		"SELECT "+stationColumns+" FROM stations ORDER BY id")
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, stations, cache.DefaultExpiration)
	return stations, nil
}

// InBounds returns the stations inside the viewport, ordered by id so that
// downstream clustering sees a stable, reproducible order. Degenerate bounds
// simply match nothing.
func (s *Storage) InBounds(ctx context.Context, bounds mapview.Bounds) ([]mapview.Station, error) {
	cacheKey := "bounds_" + bounds.Key()
	if cached, found := s.cache.Get(cacheKey); found {
		s.log.Debug("Using cached data", "key", cacheKey)
		return cached.([]mapview.Station), nil
	}

	stations, err := s.queryStations(ctx,
		"SELECT "+stationColumns+` FROM stations
		 WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		 ORDER BY id`,
		bounds.South, bounds.North, bounds.West, bounds.East)
	if err != nil {
		return nil, err
	}

	s.cache.Set(cacheKey, stations, cache.DefaultExpiration)
	return stations, nil
}

// ByID returns a single station or ErrNotFound.
func (s *Storage) ByID(ctx context.Context, id string) (*mapview.Station, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+stationColumns+" FROM stations WHERE id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("error querying station: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("row error: %w", err)
		}
		return nil, ErrNotFound
	}
	station, err := scanStation(rows)
	if err != nil {
		return nil, err
	}
	return &station, nil
}

// Search matches the query against name, city and address, ordered by name.
func (s *Storage) Search(ctx context.Context, query string) ([]mapview.Station, error) {
	pattern := "%" + query + "%"
	return s.queryStations(ctx,
		"SELECT "+stationColumns+` FROM stations
		 WHERE name LIKE ? OR city LIKE ? OR address LIKE ?
		 ORDER BY name, id LIMIT ?`,
		pattern, pattern, pattern, searchResultLimit)
}

// PriceStats returns min/max/avg Gazole prices across the snapshot, rounded
// to 3 decimals, nil when no station has a Gazole price.
func (s *Storage) PriceStats(ctx context.Context) (*PriceStatistics, error) {
	const cacheKey = "price_stats"
	if cached, found := s.cache.Get(cacheKey); found {
		return cached.(*PriceStatistics), nil
	}

	var minP, maxP, avgP sql.NullFloat64
	err := s.db.QueryRowContext(ctx,
		"SELECT MIN(gazole), MAX(gazole), AVG(gazole) FROM stations WHERE gazole IS NOT NULL",
	).Scan(&minP, &maxP, &avgP)
	if err != nil {
		return nil, fmt.Errorf("error querying price statistics: %w", err)
	}

	stats := &PriceStatistics{
		MinGazole: roundedOrNil(minP),
		MaxGazole: roundedOrNil(maxP),
		AvgGazole: roundedOrNil(avgP),
	}

	s.cache.Set(cacheKey, stats, cache.DefaultExpiration)
	return stats, nil
}

// LastUpdated returns the most recent price timestamp in the snapshot, nil
// when the database is empty.
func (s *Storage) LastUpdated(ctx context.Context) (*time.Time, error) {
	var updated sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT MAX(updated_at) FROM stations").Scan(&updated)
	if err != nil {
		return nil, fmt.Errorf("error querying last update: %w", err)
	}
	if !updated.Valid || updated.String == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, updated.String)
	if err != nil {
		return nil, fmt.Errorf("error parsing last update %q: %w", updated.String, err)
	}
	return &t, nil
}

func (s *Storage) queryStations(ctx context.Context, query string, args ...any) ([]mapview.Station, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying stations: %w", err)
	}
	defer rows.Close()

	var stations []mapview.Station
	for rows.Next() {
		station, err := scanStation(rows)
		if err != nil {
			return nil, err
		}
		stations = append(stations, station)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row error: %w", err)
	}
	return stations, nil
}

func scanStation(rows *sql.Rows) (mapview.Station, error) {
	var st mapview.Station
	var gazole, sp95, sp98, e10, e85, gplc sql.NullFloat64
	var updatedAt sql.NullString

	err := rows.Scan(&st.ID, &st.Name, &st.Address, &st.City, &st.Lat, &st.Lon,
		&gazole, &sp95, &sp98, &e10, &e85, &gplc, &updatedAt)
	if err != nil {
		return mapview.Station{}, fmt.Errorf("error scanning station: %w", err)
	}

	st.Gazole = floatOrNil(gazole)
	st.SP95 = floatOrNil(sp95)
	st.SP98 = floatOrNil(sp98)
	st.E10 = floatOrNil(e10)
	st.E85 = floatOrNil(e85)
	st.GPLc = floatOrNil(gplc)

	if updatedAt.Valid && updatedAt.String != "" {
		if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
			st.LastUpdated = t
		}
	}
	return st, nil
}

func nullable(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func floatOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func roundedOrNil(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	factor := math.Pow(10, statsPrecision)
	r := math.Round(v.Float64*factor) / factor
	return &r
}
