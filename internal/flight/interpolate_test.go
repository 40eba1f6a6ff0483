package flight

import (
	"math"
	"testing"

	"github.com/cebartling/flightloop/internal/schedule"
)

var (
	lax = schedule.Airport{Code: "LAX", Name: "Los Angeles Intl", Longitude: -118.4081, Latitude: 33.9425}
	jfk = schedule.Airport{Code: "JFK", Name: "John F. Kennedy Intl", Longitude: -73.7781, Latitude: 40.6413}
	sfo = schedule.Airport{Code: "SFO", Name: "San Francisco Intl", Longitude: -122.379, Latitude: 37.6213}
	sea = schedule.Airport{Code: "SEA", Name: "Seattle-Tacoma Intl", Longitude: -122.3088, Latitude: 47.4502}
)

// laxJFK departs 06:00, arrives 11:00.
var laxJFK = schedule.Flight{
	ID: "f-1", Number: "FL100",
	Origin: lax, Destination: jfk,
	DepartureTime: 360, ArrivalTime: 660,
}

// redEye departs 23:00, arrives 02:00 the next day.
var redEye = schedule.Flight{
	ID: "f-2", Number: "FL200",
	Origin: sfo, Destination: sea,
	DepartureTime: 1380, ArrivalTime: 120,
}

// TestComputeBoundaryInclusion verifies a flight is airborne at exactly its
// departure and arrival instants, at the endpoints' positions.
func TestComputeBoundaryInclusion(t *testing.T) {
	dep, ok := Compute(laxJFK, 360)
	if !ok {
		t.Fatal("flight not airborne at departure instant")
	}
	if dep.Progress != 0 {
		t.Errorf("progress at departure = %v, want 0", dep.Progress)
	}
	if math.Abs(dep.Longitude-lax.Longitude) > 1e-9 || math.Abs(dep.Latitude-lax.Latitude) > 1e-9 {
		t.Errorf("departure position = (%v, %v), want origin (%v, %v)",
			dep.Longitude, dep.Latitude, lax.Longitude, lax.Latitude)
	}

	arr, ok := Compute(laxJFK, 660)
	if !ok {
		t.Fatal("flight not airborne at arrival instant")
	}
	if arr.Progress != 1 {
		t.Errorf("progress at arrival = %v, want 1", arr.Progress)
	}
	if math.Abs(arr.Longitude-jfk.Longitude) > 1e-9 || math.Abs(arr.Latitude-jfk.Latitude) > 1e-9 {
		t.Errorf("arrival position = (%v, %v), want destination (%v, %v)",
			arr.Longitude, arr.Latitude, jfk.Longitude, jfk.Latitude)
	}
}

// TestComputeOutsideWindow verifies times strictly before departure or after
// arrival yield no position.
func TestComputeOutsideWindow(t *testing.T) {
	times := []float64{0, 300, 359.99, 660.01, 700, 1439}
	for _, tm := range times {
		if _, ok := Compute(laxJFK, tm); ok {
			t.Errorf("flight reported airborne at %v, outside [360, 660]", tm)
		}
	}
}

// TestComputeMidFlightScenario checks the LAX-JFK reference scenario at
// 08:30: halfway, northeast-bound, at cruise.
func TestComputeMidFlightScenario(t *testing.T) {
	pos, ok := Compute(laxJFK, 510)
	if !ok {
		t.Fatal("flight not airborne at 08:30")
	}
	if math.Abs(pos.Progress-0.5) > 1e-9 {
		t.Errorf("progress = %v, want 0.5", pos.Progress)
	}
	if pos.Longitude <= lax.Longitude || pos.Longitude >= jfk.Longitude {
		t.Errorf("longitude %v not strictly between %v and %v", pos.Longitude, lax.Longitude, jfk.Longitude)
	}
	if pos.Bearing < 50 || pos.Bearing > 80 {
		t.Errorf("bearing = %v, want northeast (50-80)", pos.Bearing)
	}
	if pos.Altitude != CruiseAltitude {
		t.Errorf("altitude = %v, want %d", pos.Altitude, CruiseAltitude)
	}
	if pos.FlightID != "f-1" || pos.Number != "FL100" || pos.Origin != "LAX" || pos.Destination != "JFK" {
		t.Errorf("identifier passthrough wrong: %+v", pos)
	}
}

// TestComputeOvernight covers the midnight-crossing cases: airborne just
// after midnight, not airborne before departure or after arrival.
func TestComputeOvernight(t *testing.T) {
	pos, ok := Compute(redEye, 30)
	if !ok {
		t.Fatal("overnight flight not airborne at 00:30")
	}
	if pos.Progress <= 0 || pos.Progress >= 1 {
		t.Errorf("progress at 00:30 = %v, want strictly inside (0, 1)", pos.Progress)
	}
	// 90 minutes in of a 180 minute flight.
	if math.Abs(pos.Progress-0.5) > 1e-9 {
		t.Errorf("progress = %v, want 0.5", pos.Progress)
	}

	if _, ok := Compute(redEye, 1320); ok {
		t.Error("overnight flight reported airborne at 22:00, before departure")
	}
	if _, ok := Compute(redEye, 180); ok {
		t.Error("overnight flight reported airborne at 03:00, after arrival")
	}
}

// TestComputeOvernightBoundaries verifies inclusive boundaries across
// midnight, including the instant just before the wrap.
func TestComputeOvernightBoundaries(t *testing.T) {
	dep, ok := Compute(redEye, 1380)
	if !ok || dep.Progress != 0 {
		t.Errorf("departure instant: ok=%v progress=%v, want ok with 0", ok, dep.Progress)
	}

	arr, ok := Compute(redEye, 120)
	if !ok || arr.Progress != 1 {
		t.Errorf("arrival instant: ok=%v progress=%v, want ok with 1", ok, arr.Progress)
	}

	late, ok := Compute(redEye, 1439.9)
	if !ok {
		t.Fatal("not airborne at 23:59.9")
	}
	if late.Progress <= 0 || late.Progress >= 0.5 {
		t.Errorf("progress at 23:59.9 = %v, want in (0, 0.5)", late.Progress)
	}
}

// TestProgressMonotonic verifies progress never decreases as time advances
// forward through the active window, for both normal and overnight flights.
func TestProgressMonotonic(t *testing.T) {
	check := func(t_ *testing.T, f schedule.Flight, times []float64) {
		last := -1.0
		for _, tm := range times {
			pos, ok := Compute(f, tm)
			if !ok {
				t_.Fatalf("not airborne at %v", tm)
			}
			if pos.Progress < last {
				t_.Errorf("progress decreased at %v: %v < %v", tm, pos.Progress, last)
			}
			last = pos.Progress
		}
	}

	t.Run("normal", func(t *testing.T) {
		var times []float64
		for tm := 360.0; tm <= 660; tm += 7.5 {
			times = append(times, tm)
		}
		check(t, laxJFK, times)
	})

	t.Run("overnight", func(t *testing.T) {
		var times []float64
		for tm := 1380.0; tm < 1440; tm += 5 {
			times = append(times, tm)
		}
		for tm := 0.0; tm <= 120; tm += 5 {
			times = append(times, tm)
		}
		check(t, redEye, times)
	})
}

// TestAltitudeProfile verifies the three-phase shape: below cruise near the
// endpoints, pinned at cruise through the middle.
func TestAltitudeProfile(t *testing.T) {
	if alt := altitudeAt(0.5); alt != CruiseAltitude {
		t.Errorf("altitude(0.5) = %v, want exactly %d", alt, CruiseAltitude)
	}

	for _, p := range []float64{0.01, 0.05, 0.95, 0.99} {
		alt := altitudeAt(p)
		if alt <= 0 {
			t.Errorf("altitude(%v) = %v, want > 0", p, alt)
		}
		if alt >= CruiseAltitude {
			t.Errorf("altitude(%v) = %v, want < %d", p, alt, CruiseAltitude)
		}
	}

	if alt := altitudeAt(0); alt >= CruiseAltitude {
		t.Errorf("altitude(0) = %v, want < %d", alt, CruiseAltitude)
	}
	if alt := altitudeAt(1); alt >= CruiseAltitude {
		t.Errorf("altitude(1) = %v, want < %d", alt, CruiseAltitude)
	}

	// Phase boundaries meet cruise exactly.
	for _, p := range []float64{0.1, 0.3, 0.7, 0.9} {
		if alt := altitudeAt(p); alt != CruiseAltitude {
			t.Errorf("altitude(%v) = %v, want %d", p, alt, CruiseAltitude)
		}
	}
}

// TestAltitudeMonotonicRamps verifies climb strictly increases and descent
// strictly decreases.
func TestAltitudeMonotonicRamps(t *testing.T) {
	last := -1.0
	for p := 0.0; p <= 0.1+1e-9; p += 0.005 {
		alt := altitudeAt(p)
		if alt <= last {
			t.Fatalf("climb not increasing at progress %v: %v <= %v", p, alt, last)
		}
		last = alt
	}

	last = CruiseAltitude + 1
	for p := 0.9; p <= 1.0+1e-9; p += 0.005 {
		alt := altitudeAt(p)
		if alt >= last {
			t.Fatalf("descent not decreasing at progress %v: %v >= %v", p, alt, last)
		}
		last = alt
	}
}

// TestBearingConstantOverFlight verifies the bearing does not vary with
// progress.
func TestBearingConstantOverFlight(t *testing.T) {
	first, _ := Compute(laxJFK, 360)
	for _, tm := range []float64{400, 510, 600, 660} {
		pos, _ := Compute(laxJFK, tm)
		if pos.Bearing != first.Bearing {
			t.Errorf("bearing at %v = %v, want constant %v", tm, pos.Bearing, first.Bearing)
		}
	}
}
