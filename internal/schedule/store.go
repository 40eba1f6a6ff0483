package schedule

import (
	"sync"
	"sync/atomic"
	"time"
)

// Store provides thread-safe access to the current schedule dataset.
//
// The dataset pointer is swapped atomically so readers on the per-frame path
// never block. Each swap bumps a generation counter; consumers that derive
// state from the schedule (the frame cache) compare generations to detect
// that a reload happened.
type Store struct {
	dataset    atomic.Pointer[Dataset]
	generation atomic.Uint64
	mu         sync.Mutex // serializes fetch/reload operations
}

// NewStore creates a new empty Store.
func NewStore() *Store {
	return &Store{}
}

// Get returns the current dataset, or nil if none has been loaded.
func (s *Store) Get() *Dataset {
	return s.dataset.Load()
}

// Set atomically replaces the current dataset and advances the generation.
func (s *Store) Set(ds *Dataset) {
	s.dataset.Store(ds)
	s.generation.Add(1)
}

// Generation returns the current dataset generation. Zero means no dataset
// has ever been loaded.
func (s *Store) Generation() uint64 {
	return s.generation.Load()
}

// FlightCount returns the number of flights in the current dataset,
// or 0 if none is loaded.
func (s *Store) FlightCount() int {
	ds := s.dataset.Load()
	if ds == nil {
		return 0
	}
	return len(ds.Flights)
}

// AgeSeconds returns the age of the current dataset in seconds.
// Returns -1 if no dataset is loaded.
func (s *Store) AgeSeconds() float64 {
	ds := s.dataset.Load()
	if ds == nil {
		return -1
	}
	return time.Since(ds.FetchedAt).Seconds()
}

// Lock acquires the fetch mutex for serializing fetch operations.
func (s *Store) Lock() {
	s.mu.Lock()
}

// Unlock releases the fetch mutex.
func (s *Store) Unlock() {
	s.mu.Unlock()
}
