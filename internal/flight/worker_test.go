package flight

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cebartling/flightloop/internal/schedule"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// TestPoolMatchesSerial verifies the pooled snapshot agrees with the serial
// ActivePositions path, including ordering.
func TestPoolMatchesSerial(t *testing.T) {
	// Build a larger synthetic schedule so all workers get jobs.
	var flights []schedule.Flight
	for i := 0; i < 200; i++ {
		dep := (i * 7) % schedule.MinutesPerDay
		arr := (dep + 90 + i%240) % schedule.MinutesPerDay
		if arr == dep {
			arr = (arr + 1) % schedule.MinutesPerDay
		}
		flights = append(flights, schedule.Flight{
			ID:     fmt.Sprintf("f-%d", i),
			Number: fmt.Sprintf("FL%03d", i),
			Origin: schedule.Airport{
				Code: fmt.Sprintf("A%02d", i%40), Longitude: float64(i%90 - 45), Latitude: float64(i%60 - 30),
			},
			Destination: schedule.Airport{
				Code: fmt.Sprintf("B%02d", i%40), Longitude: float64(i%80 - 40), Latitude: float64(i%50 - 25),
			},
			DepartureTime: dep,
			ArrivalTime:   arr,
		})
	}

	pool := NewPool(4, testLogger())

	for _, tm := range []float64{0, 123.5, 720, 1439.5} {
		serial := ActivePositions(flights, tm, "")
		pooled := pool.Snapshot(context.Background(), flights, tm, "")

		if pooled.Time != tm {
			t.Errorf("snapshot time = %v, want %v", pooled.Time, tm)
		}
		if len(pooled.Positions) != len(serial) {
			t.Fatalf("t=%v: pooled %d positions, serial %d", tm, len(pooled.Positions), len(serial))
		}
		for i := range serial {
			if pooled.Positions[i] != serial[i] {
				t.Errorf("t=%v: position %d differs: %+v vs %+v", tm, i, pooled.Positions[i], serial[i])
			}
		}
	}
}

func TestPoolEmptySchedule(t *testing.T) {
	pool := NewPool(2, testLogger())
	snap := pool.Snapshot(context.Background(), nil, 500, "")
	if snap.Positions == nil || len(snap.Positions) != 0 {
		t.Errorf("empty schedule snapshot = %v, want empty non-nil", snap.Positions)
	}
}

func TestPoolAirportFilter(t *testing.T) {
	flights := fixtureSchedule()
	pool := NewPool(2, testLogger())

	snap := pool.Snapshot(context.Background(), flights, 630, "LAX")
	if len(snap.Positions) != 1 || snap.Positions[0].Number != "FL100" {
		t.Errorf("filtered snapshot = %+v, want just FL100", snap.Positions)
	}
}

func TestPoolCancelledContext(t *testing.T) {
	flights := fixtureSchedule()
	pool := NewPool(1, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Must return without hanging; partial results are acceptable.
	snap := pool.Snapshot(ctx, flights, 630, "")
	if len(snap.Positions) > len(flights) {
		t.Errorf("got more positions than flights: %d", len(snap.Positions))
	}
}

func BenchmarkPoolSnapshot(b *testing.B) {
	var flights []schedule.Flight
	for i := 0; i < 1000; i++ {
		flights = append(flights, schedule.Flight{
			ID:            fmt.Sprintf("f-%d", i),
			Number:        fmt.Sprintf("FL%04d", i),
			Origin:        schedule.Airport{Code: "AAA", Longitude: -118, Latitude: 34},
			Destination:   schedule.Airport{Code: "BBB", Longitude: -73, Latitude: 40},
			DepartureTime: (i * 3) % 1440,
			ArrivalTime:   ((i * 3) + 300) % 1440,
		})
	}

	pool := NewPool(4, testLogger())
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		pool.Snapshot(ctx, flights, 720, "")
	}
}
