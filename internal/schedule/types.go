package schedule

import "time"

// MinutesPerDay is the span of the simulated day. Schedule times and the
// simulation clock both live in minutes-from-midnight [0, MinutesPerDay).
const MinutesPerDay = 1440

// Airport is a schedule endpoint with its geographic location.
type Airport struct {
	Code      string  `json:"code" yaml:"code"`
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Longitude float64 `json:"longitude" yaml:"longitude"`
	Latitude  float64 `json:"latitude" yaml:"latitude"`
}

// Flight is a single scheduled flight. Departure and arrival times are
// integer minutes from local midnight; an arrival numerically before the
// departure means the flight crosses midnight and lands the next day.
type Flight struct {
	ID            string  `json:"id" yaml:"id"`
	Number        string  `json:"flightNumber" yaml:"flightNumber"`
	Origin        Airport `json:"origin" yaml:"origin"`
	Destination   Airport `json:"destination" yaml:"destination"`
	DepartureTime int     `json:"departureTime" yaml:"departureTime"`
	ArrivalTime   int     `json:"arrivalTime" yaml:"arrivalTime"`
}

// Overnight reports whether the flight crosses the midnight boundary.
func (f Flight) Overnight() bool {
	return f.ArrivalTime < f.DepartureTime
}

// Duration returns the flight duration in minutes, accounting for
// midnight crossings.
func (f Flight) Duration() int {
	if f.Overnight() {
		return (MinutesPerDay - f.DepartureTime) + f.ArrivalTime
	}
	return f.ArrivalTime - f.DepartureTime
}

// Dataset is a complete schedule loaded from a source.
type Dataset struct {
	Source    string
	FetchedAt time.Time
	Flights   []Flight
}
