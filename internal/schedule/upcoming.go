package schedule

import (
	"math"
	"sort"
)

// EventKind distinguishes departures from arrivals in upcoming-event queries.
type EventKind string

const (
	EventDeparture EventKind = "departure"
	EventArrival   EventKind = "arrival"
)

// Event is a departure or arrival due within an upcoming-event window.
type Event struct {
	Flight       Flight    `json:"flight"`
	Kind         EventKind `json:"kind"`
	Airport      string    `json:"airport"`
	Time         int       `json:"time"`
	MinutesUntil float64   `json:"minutesUntil"`
}

// Upcoming returns the departures and arrivals due within window simulated
// minutes after from, wraparound-aware (an event "tomorrow morning" is
// upcoming late in the simulated day). If airport is non-empty only events at
// that airport are returned. Results are sorted soonest first; ties keep
// schedule order. max <= 0 means no limit.
func Upcoming(flights []Flight, from, window float64, airport string, max int) []Event {
	events := make([]Event, 0)

	add := func(f Flight, kind EventKind, code string, minute int) {
		if airport != "" && code != airport {
			return
		}
		until := math.Mod(float64(minute)-from, MinutesPerDay)
		if until < 0 {
			until += MinutesPerDay
		}
		if until > window {
			return
		}
		events = append(events, Event{
			Flight:       f,
			Kind:         kind,
			Airport:      code,
			Time:         minute,
			MinutesUntil: until,
		})
	}

	for _, f := range flights {
		add(f, EventDeparture, f.Origin.Code, f.DepartureTime)
		add(f, EventArrival, f.Destination.Code, f.ArrivalTime)
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].MinutesUntil < events[j].MinutesUntil
	})

	if max > 0 && len(events) > max {
		events = events[:max]
	}
	return events
}
