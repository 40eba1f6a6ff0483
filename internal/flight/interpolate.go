// Package flight computes aircraft positions from a static daily schedule
// and an instant of simulated time. Everything here is pure: the same
// (flight, time) input always yields the same output, so callers may compute
// positions concurrently and at arbitrary times out of sequence (scrubbing
// backward is as cheap as playing forward).
package flight

import (
	"math"

	"github.com/cebartling/flightloop/internal/geo"
	"github.com/cebartling/flightloop/internal/schedule"
)

const (
	// CruiseAltitude is the altitude flights hold in feet between climb
	// and descent.
	CruiseAltitude = 35000

	// climbFraction is the share of a flight's duration spent climbing;
	// the same share at the end is spent descending.
	climbFraction = 0.1
)

// Compute returns the flight's position at simulated time t (minutes from
// midnight, [0, 1440)). ok is false when the flight is not airborne at t.
// Departure and arrival instants are inclusive: a flight exactly at either
// boundary is airborne.
//
// The schedule loader validates flights; zero-duration or malformed entries
// are a caller precondition violation and are not handled here.
func Compute(f schedule.Flight, t float64) (Position, bool) {
	elapsed, ok := elapsedMinutes(f, t)
	if !ok {
		return Position{}, false
	}

	progress := elapsed / float64(f.Duration())

	return Position{
		FlightID:    f.ID,
		Number:      f.Number,
		Origin:      f.Origin.Code,
		Destination: f.Destination.Code,
		Longitude:   geo.Lerp(f.Origin.Longitude, f.Destination.Longitude, progress),
		Latitude:    geo.Lerp(f.Origin.Latitude, f.Destination.Latitude, progress),
		Bearing: geo.InitialBearing(
			f.Origin.Latitude, f.Origin.Longitude,
			f.Destination.Latitude, f.Destination.Longitude,
		),
		Altitude: altitudeAt(progress),
		Progress: progress,
	}, true
}

// elapsedMinutes returns how many minutes the flight has been airborne at t,
// or ok=false if t falls outside the flight's active window. Overnight
// flights span [departure, 1440) ∪ [0, arrival].
func elapsedMinutes(f schedule.Flight, t float64) (float64, bool) {
	dep := float64(f.DepartureTime)
	arr := float64(f.ArrivalTime)

	if !f.Overnight() {
		if t < dep || t > arr {
			return 0, false
		}
		return t - dep, true
	}

	switch {
	case t >= dep:
		return t - dep, true
	case t <= arr:
		return (schedule.MinutesPerDay - dep) + t, true
	default:
		return 0, false
	}
}

// altitudeAt maps progress to an estimated altitude in feet: an eased climb
// over the first 10% of the flight, cruise pinned at CruiseAltitude, and a
// mirrored descent over the final 10%. The sine ramp is monotonic within
// each phase and meets the cruise altitude exactly at the phase boundaries.
func altitudeAt(progress float64) float64 {
	switch {
	case progress < climbFraction:
		return CruiseAltitude * math.Sin(progress/climbFraction*math.Pi/2)
	case progress > 1-climbFraction:
		return CruiseAltitude * math.Sin((1-progress)/climbFraction*math.Pi/2)
	default:
		return CruiseAltitude
	}
}
