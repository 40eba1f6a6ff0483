package flight

// Position is a single aircraft's computed state at an instant of simulated
// time. It is derived entirely from the flight's schedule entry and the
// simulated clock; it is recomputed per frame and never stored beyond the
// frame cache.
type Position struct {
	FlightID    string  `json:"flightId"`
	Number      string  `json:"flightNumber"`
	Origin      string  `json:"origin"`
	Destination string  `json:"destination"`
	Longitude   float64 `json:"longitude"`
	Latitude    float64 `json:"latitude"`
	Bearing     float64 `json:"bearing"`
	Altitude    float64 `json:"altitude"`
	Progress    float64 `json:"progress"`
}

// Snapshot holds the positions of all airborne flights at a single instant
// of simulated time.
type Snapshot struct {
	Time      float64
	Positions []Position
}
