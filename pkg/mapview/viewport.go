package mapview

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

const (
	// DefaultDebounce is the quiescence window after the last viewport
	// change before a fetch is issued.
	DefaultDebounce = 300 * time.Millisecond

	// DefaultCacheTTL is how long a bounds-keyed result stays fresh;
	// returning to a visited viewport within the TTL does not refetch.
	DefaultCacheTTL = 5 * time.Minute

	// DefaultMinFetchZoom suppresses fetching at or below this zoom so the
	// full national dataset is never requested.
	DefaultMinFetchZoom = 5

	// DefaultFetchTimeout bounds a single bounds-scoped fetch.
	DefaultFetchTimeout = 15 * time.Second

	cacheCleanupInterval = 10 * time.Minute
)

// ViewState is the controller's UI-visible condition.
type ViewState string

const (
	// StateIdle means no viewport has been seen yet.
	StateIdle ViewState = "idle"
	// StateZoomedOut means the zoom is too low; the UI shows a
	// "zoom in to see stations" hint instead of markers.
	StateZoomedOut ViewState = "zoomed_out"
	// StateLoading means a fetch for the current bounds is in flight.
	StateLoading ViewState = "loading"
	// StateReady means Stations reflects the most recently issued fetch.
	StateReady ViewState = "ready"
	// StateError means the latest fetch failed; the last good station set
	// is kept on screen and the condition is retryable.
	StateError ViewState = "error"
)

// FetchFunc loads the stations inside the given bounds.
type FetchFunc func(ctx context.Context, bounds Bounds) ([]Station, error)

// Snapshot is the controller's externally visible state at one moment.
type Snapshot struct {
	Bounds   Bounds
	Zoom     int
	State    ViewState
	Stations []Station
	Err      error
}

// ControllerOptions tune the ViewportController. Zero values pick the
// defaults above.
type ControllerOptions struct {
	Debounce     time.Duration
	CacheTTL     time.Duration
	MinFetchZoom int
	FetchTimeout time.Duration
	Logger       *slog.Logger

	// OnUpdate is invoked after every state change so the owner can rerun
	// the dependent pipeline (re-filter, re-cluster, re-sort). Recomputation
	// is always explicit; the controller never triggers it implicitly.
	OnUpdate func(Snapshot)
}

// ViewportController reacts to map viewport changes, debounces them and
// fetches only the stations inside the new viewport. Results are cached by
// bounds with a TTL, stale in-flight responses are discarded, and a failed
// fetch keeps the previous station set visible.
//
// The controller is constructed once per session and owns its cache; there
// is no ambient global state.
type ViewportController struct {
	fetch        FetchFunc
	results      *cache.Cache
	debounce     time.Duration
	minFetchZoom int
	fetchTimeout time.Duration
	log          *slog.Logger
	onUpdate     func(Snapshot)

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	// seq identifies the latest viewport change. A debounce timer carries
	// the seq it was armed with and fetches only while still current, so a
	// callback that raced past timer.Stop cannot fetch for superseded state.
	seq      uint64
	bounds   Bounds
	zoom     int
	stations []Station
	state    ViewState
	lastErr  error
}

// NewViewportController builds a controller around the given fetch function.
func NewViewportController(fetch FetchFunc, opts ControllerOptions) *ViewportController {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = DefaultCacheTTL
	}
	if opts.MinFetchZoom <= 0 {
		opts.MinFetchZoom = DefaultMinFetchZoom
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = DefaultFetchTimeout
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &ViewportController{
		fetch:        fetch,
		results:      cache.New(opts.CacheTTL, cacheCleanupInterval),
		debounce:     opts.Debounce,
		minFetchZoom: opts.MinFetchZoom,
		fetchTimeout: opts.FetchTimeout,
		log:          opts.Logger,
		onUpdate:     opts.OnUpdate,
		state:        StateIdle,
	}
}

// OnViewportChange records the new bounds and zoom immediately and restarts
// the debounce timer. The map component calls this on every move/zoom end;
// a pending fetch superseded by a newer change is abandoned. The update
// callback fires right away with the recorded viewport so dependent
// pipelines see the new bounds before the debounced fetch settles.
func (vc *ViewportController) OnViewportChange(bounds Bounds, zoom int) {
	vc.mu.Lock()

	vc.bounds = bounds
	vc.zoom = zoom
	vc.seq++
	vc.stopTimerLocked()

	if zoom <= vc.minFetchZoom {
		// Invalidate any in-flight fetch; its late result must not land.
		vc.generation++
		vc.state = StateZoomedOut
		vc.lastErr = nil
		vc.notifyLocked()
		return
	}

	seq := vc.seq
	vc.timer = time.AfterFunc(vc.debounce, func() {
		vc.issueFetch(false, seq)
	})
	vc.notifyLocked()
}

// Refresh clears the entire result cache and refetches the current viewport
// immediately, bypassing the debounce window.
func (vc *ViewportController) Refresh() {
	vc.mu.Lock()
	vc.results.Flush()
	vc.seq++
	vc.stopTimerLocked()
	vc.mu.Unlock()
	vc.issueFetch(true, 0)
}

// Retry refetches the current viewport after a failed fetch, keeping cached
// results for other viewports intact.
func (vc *ViewportController) Retry() {
	vc.mu.Lock()
	vc.seq++
	vc.stopTimerLocked()
	vc.mu.Unlock()
	vc.issueFetch(true, 0)
}

// Snapshot returns the current state. The station slice is shared and must
// be treated as read-only by callers.
func (vc *ViewportController) Snapshot() Snapshot {
	vc.mu.Lock()
	defer vc.mu.Unlock()
	return vc.snapshotLocked()
}

// issueFetch runs when the debounce window elapses (or on explicit
// refresh/retry, with seq 0). It serves from the bounds cache when fresh,
// otherwise fetches and applies the result only if no newer fetch was
// issued meanwhile.
func (vc *ViewportController) issueFetch(skipCache bool, seq uint64) {
	vc.mu.Lock()

	if seq != 0 && seq != vc.seq {
		// The viewport changed again after this timer was armed.
		vc.mu.Unlock()
		return
	}

	if vc.zoom <= vc.minFetchZoom {
		vc.mu.Unlock()
		return
	}

	bounds := vc.bounds
	key := bounds.Key()

	if !skipCache {
		if cached, found := vc.results.Get(key); found {
			// The cached set is now the most recently issued result; any
			// older fetch still in flight must not overwrite it.
			vc.generation++
			vc.log.Debug("viewport served from cache", "bounds", key)
			vc.stations = cached.([]Station)
			vc.state = StateReady
			vc.lastErr = nil
			vc.notifyLocked()
			return
		}
	}

	vc.generation++
	gen := vc.generation
	vc.state = StateLoading
	vc.lastErr = nil
	vc.notifyLocked()

	ctx, cancel := context.WithTimeout(context.Background(), vc.fetchTimeout)
	defer cancel()

	stations, err := vc.fetch(ctx, bounds)

	vc.mu.Lock()
	if gen != vc.generation {
		// A newer fetch was issued while this one was in flight; the UI
		// must reflect the most recently issued fetch only.
		vc.log.Debug("discarding stale fetch result", "bounds", key)
		vc.mu.Unlock()
		return
	}

	if err != nil {
		vc.log.Warn("viewport fetch failed", "bounds", key, "error", err)
		vc.state = StateError
		vc.lastErr = err
		vc.notifyLocked()
		return
	}

	vc.results.Set(key, stations, cache.DefaultExpiration)
	vc.stations = stations
	vc.state = StateReady
	vc.notifyLocked()
}

func (vc *ViewportController) stopTimerLocked() {
	if vc.timer != nil {
		vc.timer.Stop()
		vc.timer = nil
	}
}

func (vc *ViewportController) snapshotLocked() Snapshot {
	return Snapshot{
		Bounds:   vc.bounds,
		Zoom:     vc.zoom,
		State:    vc.state,
		Stations: vc.stations,
		Err:      vc.lastErr,
	}
}

// notifyLocked snapshots state, releases the lock and invokes the update
// callback. Callers must hold the lock and must not touch state afterwards.
func (vc *ViewportController) notifyLocked() {
	snap := vc.snapshotLocked()
	vc.mu.Unlock()
	if vc.onUpdate != nil {
		vc.onUpdate(snap)
	}
}
