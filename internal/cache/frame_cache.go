// Package cache provides an in-memory cache of position snapshots keyed by
// rounded simulated time.
//
// Frames are computed on demand: simulated time is user-scrubbed, so there
// is no meaningful "leading edge" to precompute. The win is fan-out: many
// stream clients rendering the same simulated instant share one
// interpolation pass. When the schedule dataset is reloaded the whole cache
// is dropped in one swap, so no client ever sees positions from a stale
// schedule.
package cache

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cebartling/flightloop/internal/flight"
	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
)

// Config holds frame cache configuration loaded from environment variables.
type Config struct {
	Step       float64 // rounding step in simulated minutes (default: 0.25)
	MaxEntries int     // entry bound before oldest-first eviction (default: 512)
}

// FrameCache caches whole-schedule snapshots by rounded simulated time.
// Safe for concurrent use by multiple goroutines.
type FrameCache struct {
	mu      sync.RWMutex
	entries map[float64]flight.Snapshot
	order   []float64 // insertion order, oldest first

	config Config
	pool   *flight.Pool
	store  *schedule.Store
	logger *slog.Logger

	// Schedule generation the current entries were computed from.
	generation uint64

	// Counters (lock-free).
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// New creates a frame cache backed by the given snapshot pool and schedule
// store.
func New(config Config, pool *flight.Pool, store *schedule.Store, logger *slog.Logger) *FrameCache {
	if config.Step <= 0 {
		config.Step = 0.25
	}
	if config.MaxEntries <= 0 {
		config.MaxEntries = 512
	}

	logger.Info("frame cache initialized",
		"step_minutes", config.Step,
		"max_entries", config.MaxEntries,
	)

	return &FrameCache{
		entries: make(map[float64]flight.Snapshot),
		config:  config,
		pool:    pool,
		store:   store,
		logger:  logger,
	}
}

// RoundToStep rounds a simulated time down to the nearest step boundary so
// lookups from different clients hit the same frame.
func (c *FrameCache) RoundToStep(t float64) float64 {
	return math.Floor(t/c.config.Step) * c.config.Step
}

// Snapshot returns the positions of all airborne flights at simulated time
// t, serving from cache when possible. Airport-filtered requests bypass the
// cache: the per-airport key space is unbounded and filtered computes are
// cheap relative to full ones.
func (c *FrameCache) Snapshot(ctx context.Context, t float64, airport string) flight.Snapshot {
	ds := c.store.Get()
	if ds == nil {
		return flight.Snapshot{Time: t, Positions: []flight.Position{}}
	}

	if airport != "" {
		return c.pool.Snapshot(ctx, ds.Flights, t, airport)
	}

	c.invalidateIfStale()

	key := c.RoundToStep(t)

	c.mu.RLock()
	snap, ok := c.entries[key]
	c.mu.RUnlock()

	if ok {
		c.hits.Add(1)
		metrics.IncCacheHits()
		return snap
	}

	c.misses.Add(1)
	metrics.IncCacheMisses()

	snap = c.pool.Snapshot(ctx, ds.Flights, key, "")

	// A cancelled context yields a partial snapshot; returning it to the
	// departing caller is fine, but it must never enter the shared cache
	// where other clients would see it as a complete frame.
	if ctx.Err() == nil {
		c.put(key, snap)
	}
	return snap
}

// invalidateIfStale drops all entries when the schedule dataset has been
// swapped since they were computed.
func (c *FrameCache) invalidateIfStale() {
	gen := c.store.Generation()

	c.mu.Lock()
	defer c.mu.Unlock()

	if gen == c.generation {
		return
	}

	dropped := len(c.entries)
	c.entries = make(map[float64]flight.Snapshot)
	c.order = c.order[:0]
	c.generation = gen

	if dropped > 0 {
		c.evictions.Add(int64(dropped))
		metrics.AddCacheEvictions(dropped)
		c.logger.Info("frame cache invalidated by schedule reload",
			"entries_dropped", dropped,
			"generation", gen,
		)
	}
	metrics.SetCacheEntries(0)
}

// put stores a computed frame and evicts oldest entries past the bound.
func (c *FrameCache) put(key float64, snap flight.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = snap

	var removed int
	for len(c.order) > c.config.MaxEntries {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
		removed++
	}
	if removed > 0 {
		c.evictions.Add(int64(removed))
		metrics.AddCacheEvictions(removed)
		c.logger.Debug("frame cache eviction", "entries_removed", removed)
	}

	metrics.SetCacheEntries(len(c.entries))
}

// Stats holds frame cache statistics for the stats endpoint.
type Stats struct {
	Entries   int   `json:"entries"`
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
}

// Stats returns current cache statistics.
func (c *FrameCache) Stats() Stats {
	c.mu.RLock()
	count := len(c.entries)
	c.mu.RUnlock()

	return Stats{
		Entries:   count,
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Evictions: c.evictions.Load(),
	}
}
