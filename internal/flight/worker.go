package flight

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
)

// Pool computes whole-schedule snapshots across a fixed number of
// goroutines. Interpolating one flight is cheap, but with thousands of
// scheduled flights and many concurrent stream clients the batch path is the
// hot path, so the work is spread over the pool. Each worker writes into its
// own slots of a preallocated results slice, which keeps output in schedule
// order without any post-sort.
type Pool struct {
	workers int
	logger  *slog.Logger
}

// NewPool creates a snapshot pool with the given number of workers.
func NewPool(workers int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{
		workers: workers,
		logger:  logger,
	}
}

type slot struct {
	pos Position
	ok  bool
}

// Snapshot computes the positions of all flights airborne at simulated time
// t, optionally restricted to flights touching the given airport. Results
// follow schedule order. Cancelling ctx abandons unprocessed flights and
// returns what has been computed so far.
func (p *Pool) Snapshot(ctx context.Context, flights []schedule.Flight, t float64, airport string) Snapshot {
	if len(flights) == 0 {
		return Snapshot{Time: t, Positions: []Position{}}
	}

	start := time.Now()

	slots := make([]slot, len(flights))
	jobs := make(chan int, p.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				f := flights[idx]
				if airport != "" && f.Origin.Code != airport && f.Destination.Code != airport {
					continue
				}
				pos, ok := Compute(f, t)
				slots[idx] = slot{pos: pos, ok: ok}
			}
		}()
	}

	// Feed indices, bailing out if the caller gives up.
feed:
	for idx := range flights {
		select {
		case jobs <- idx:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	positions := make([]Position, 0, len(flights))
	for _, s := range slots {
		if s.ok {
			positions = append(positions, s.pos)
		}
	}

	duration := time.Since(start)
	metrics.RecordSnapshot(duration, len(flights), len(positions))

	p.logger.Debug("snapshot computed",
		"time", t,
		"flights", len(flights),
		"airborne", len(positions),
		"duration_us", duration.Microseconds(),
	)

	return Snapshot{Time: t, Positions: positions}
}
