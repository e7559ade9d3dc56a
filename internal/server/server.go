// Package server exposes the station store over a JSON REST API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httplog/v2"
	"github.com/go-chi/httprate"
	"github.com/muesli/gominatim"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/carbumap/carbumap/internal/favorites"
	"github.com/carbumap/carbumap/internal/metrics"
	"github.com/carbumap/carbumap/internal/stations"
	"github.com/carbumap/carbumap/pkg/feed"
	"github.com/carbumap/carbumap/pkg/geo"
	"github.com/carbumap/carbumap/pkg/mapview"
)

const (
	defaultRadiusKm  = 5.0
	rateLimitPerMin  = 60
	geocodeCacheTTL  = 30 * time.Minute
	geocodeCacheSwep = 90 * time.Minute
	nominatimServer  = "https://nominatim.openstreetmap.org/"
)

// Server wires the storage, favorites store and metrics behind a chi router.
type Server struct {
	storage   *stations.Storage
	favorites *favorites.Store
	metrics   *metrics.Metrics
	tiers     mapview.TierThresholds
	logger    *httplog.Logger
	geocache  *cache.Cache
}

// New builds a Server. The tier thresholds come from configuration so
// deployments can move the price color boundaries.
func New(
	storage *stations.Storage,
	favs *favorites.Store,
	m *metrics.Metrics,
	tiers mapview.TierThresholds,
	logger *httplog.Logger,
) *Server {
	return &Server{
		storage:   storage,
		favorites: favs,
		metrics:   m,
		tiers:     tiers,
		logger:    logger,
		geocache:  cache.New(geocodeCacheTTL, geocodeCacheSwep),
	}
}

// Router assembles the HTTP routes.
func (s *Server) Router(reg *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httplog.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	r.Use(httprate.LimitByIP(rateLimitPerMin, time.Minute))

	r.Route("/api", func(r chi.Router) {
		r.Get("/stations", s.handleStationsInBounds)
		r.Get("/stations/{id}", s.handleStationByID)
		r.Get("/search", s.handleSearch)
		r.Get("/nearby", s.handleNearby)
		r.Get("/stats", s.handleStats)
		r.Get("/geocode", s.handleGeocode)
		r.Get("/favorites", s.handleFavoritesList)
		r.Put("/favorites/{id}", s.handleFavoriteAdd)
		r.Delete("/favorites/{id}", s.handleFavoriteRemove)
	})

	r.Get("/healthz", s.handleHealth)
	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return r
}

// stationsResponse is the bounds-query payload. When a zoom is supplied the
// stations are partitioned into clusters and singles for the map layer.
type stationsResponse struct {
	Clusters []clusterJSON `json:"clusters,omitempty"`
	Singles  []stationJSON `json:"singles,omitempty"`
	Stations []stationJSON `json:"stations,omitempty"`
	Count    int           `json:"count"`
}

type clusterJSON struct {
	Lat     float64       `json:"lat"`
	Lon     float64       `json:"lon"`
	Count   int           `json:"count"`
	Price   *float64      `json:"price,omitempty"`
	Tier    mapview.Tier  `json:"tier"`
	FirstID string        `json:"first_id"`
	Members []stationJSON `json:"members"`
}

type stationJSON struct {
	mapview.Station
	Tier       mapview.Tier `json:"tier"`
	DistanceKm *float64     `json:"distance_km,omitempty"`
}

func (s *Server) stationJSON(st mapview.Station) stationJSON {
	return stationJSON{Station: st, Tier: s.tiers.Tier(st.Gazole)}
}

func (s *Server) handleStationsInBounds(w http.ResponseWriter, r *http.Request) {
	s.metrics.StationQueries.WithLabelValues("stations").Inc()
	timer := prometheus.NewTimer(s.metrics.QuerySeconds.WithLabelValues("stations"))
	defer timer.ObserveDuration()

	bounds, err := parseBounds(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	visible, err := s.storage.InBounds(r.Context(), bounds)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	resp := stationsResponse{Count: len(visible)}

	zoomStr := r.URL.Query().Get("zoom")
	if zoomStr == "" {
		resp.Stations = s.stationsJSON(visible)
		writeJSON(w, http.StatusOK, resp)
		return
	}

	zoom, err := strconv.Atoi(zoomStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid zoom value: %q", zoomStr))
		return
	}

	result := mapview.ComputeClusters(visible, zoom)
	resp.Singles = s.stationsJSON(result.Singles)
	for i := range result.Clusters {
		c := &result.Clusters[i]
		price := c.RepresentativePrice()
		resp.Clusters = append(resp.Clusters, clusterJSON{
			Lat:     c.Lat,
			Lon:     c.Lon,
			Count:   c.Count(),
			Price:   price,
			Tier:    s.tiers.Tier(price),
			FirstID: c.First().ID,
			Members: s.stationsJSON(c.Members),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStationByID(w http.ResponseWriter, r *http.Request) {
	s.metrics.StationQueries.WithLabelValues("station").Inc()

	station, err := s.storage.ByID(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, stations.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stationJSON(*station))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	s.metrics.StationQueries.WithLabelValues("search").Inc()

	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing q parameter"))
		return
	}

	found, err := s.storage.Search(r.Context(), query)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": s.stationsJSON(found),
		"count":    len(found),
	})
}

// handleNearby returns the stations within a radius of a point, filtered and
// ordered by the requested sort state.
func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	s.metrics.StationQueries.WithLabelValues("nearby").Inc()
	timer := prometheus.NewTimer(s.metrics.QuerySeconds.WithLabelValues("nearby"))
	defer timer.ObserveDuration()

	q := r.URL.Query()
	lat, err1 := strconv.ParseFloat(q.Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(q.Get("lon"), 64)
	if err1 != nil || err2 != nil {
		writeError(w, http.StatusBadRequest, errors.New("lat and lon are required"))
		return
	}

	radius := defaultRadiusKm
	if v := q.Get("radius"); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed > 0 {
			radius = parsed
		}
	}

	all, err := s.storage.All(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}

	var nearby []mapview.Station
	for _, st := range all {
		if geo.DistanceKm(lat, lon, st.Lat, st.Lon) <= radius {
			nearby = append(nearby, st)
		}
	}

	state := sortStateFromQuery(q)
	location := geo.Coordinates{Lat: lat, Lon: lon}
	presented := mapview.PresentSorted(nearby, state, &location)

	items := make([]stationJSON, 0, len(presented))
	for _, st := range presented {
		item := s.stationJSON(st)
		d := geo.DistanceKm(lat, lon, st.Lat, st.Lon)
		item.DistanceKm = &d
		item.Tier = s.tiers.Tier(st.Price(state.FuelFilter))
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stations": items,
		"count":    len(items),
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	s.metrics.StationQueries.WithLabelValues("stats").Inc()

	stats, err := s.storage.PriceStats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	lastUpdate, err := s.storage.LastUpdated(r.Context())
	if err != nil {
		s.logger.Error("Error getting last update date", "error", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"prices":       stats,
		"last_updated": lastUpdate,
	})
}

func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	location := r.URL.Query().Get("location")
	if location == "" {
		writeError(w, http.StatusBadRequest, errors.New("missing location parameter"))
		return
	}

	lat, lon, err := s.geocodeLocation(location)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	writeJSON(w, http.StatusOK, geo.Coordinates{Lat: lat, Lon: lon})
}

func (s *Server) handleFavoritesList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"favorites": s.favorites.List()})
}

func (s *Server) handleFavoriteAdd(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.storage.ByID(r.Context(), id); errors.Is(err, stations.ErrNotFound) {
		writeError(w, http.StatusNotFound, err)
		return
	} else if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if err := s.favorites.Add(id); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFavoriteRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.favorites.Remove(chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if _, err := s.storage.LastUpdated(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("storage unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) stationsJSON(sts []mapview.Station) []stationJSON {
	out := make([]stationJSON, 0, len(sts))
	for _, st := range sts {
		out = append(out, s.stationJSON(st))
	}
	return out
}

func (s *Server) geocodeLocation(location string) (lat, lon float64, err error) {
	gominatim.SetServer(nominatimServer)
	if cached, ok := s.geocache.Get(location); ok {
		result := cached.(gominatim.SearchResult)
		return gominatimResultToLatLon(result)
	}

	query := gominatim.SearchQuery{Q: url.QueryEscape(location)}
	results, err := query.Get()
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding error: %w", err)
	}
	if len(results) == 0 {
		return 0, 0, fmt.Errorf("no results found for location: %s", location)
	}
	s.geocache.Set(location, results[0], cache.DefaultExpiration)

	return gominatimResultToLatLon(results[0])
}

func gominatimResultToLatLon(result gominatim.SearchResult) (lat, lon float64, err error) {
	lat, err = strconv.ParseFloat(result.Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing latitude: %w", err)
	}
	lon, err = strconv.ParseFloat(result.Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("error parsing longitude: %w", err)
	}
	return lat, lon, nil
}

func parseBounds(q url.Values) (mapview.Bounds, error) {
	var bounds mapview.Bounds
	fields := []struct {
		name string
		dst  *float64
	}{
		{"north", &bounds.North},
		{"south", &bounds.South},
		{"east", &bounds.East},
		{"west", &bounds.West},
	}
	for _, f := range fields {
		v, err := strconv.ParseFloat(q.Get(f.name), 64)
		if err != nil {
			return mapview.Bounds{}, fmt.Errorf("invalid %s value: %q", f.name, q.Get(f.name))
		}
		*f.dst = v
	}
	return bounds, nil
}

func sortStateFromQuery(q url.Values) mapview.SortState {
	state := mapview.DefaultSortState()
	if v := q.Get("sort"); v != "" {
		state.SortBy = mapview.SortBy(v)
	}
	if v := q.Get("order"); v == string(mapview.Descending) {
		state.Order = mapview.Descending
	}
	if v := q.Get("fuel"); v != "" {
		state.FuelFilter = mapview.FuelKind(v)
	}
	return state
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{
		"error":     err.Error(),
		"retryable": status >= http.StatusInternalServerError,
	})
}

// RunUpdater refreshes the snapshot from the feed on a fixed interval until
// the context is canceled. Failures are logged and retried next tick; the
// stored snapshot stays serving meanwhile.
func RunUpdater(
	ctx context.Context,
	storage *stations.Storage,
	client *feed.Client,
	m *metrics.Metrics,
	logger *httplog.Logger,
	interval time.Duration,
) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := storage.UpdateFromFeed(ctx, client); err != nil {
			m.FeedUpdates.WithLabelValues("error").Inc()
			logger.Error("Error updating prices", "error", err)
		} else {
			m.FeedUpdates.WithLabelValues("ok").Inc()
			logger.Info("Price update completed successfully")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
