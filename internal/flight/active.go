package flight

import "github.com/cebartling/flightloop/internal/schedule"

// ActivePositions computes positions for every flight airborne at simulated
// time t. If airport is non-empty, only flights with that airport as either
// endpoint are included. Results follow schedule order, so output is stable
// for a fixed input. An empty schedule, a quiet time of day, or an unmatched
// filter all yield an empty slice.
func ActivePositions(flights []schedule.Flight, t float64, airport string) []Position {
	positions := make([]Position, 0)
	for _, f := range flights {
		if airport != "" && f.Origin.Code != airport && f.Destination.Code != airport {
			continue
		}
		if pos, ok := Compute(f, t); ok {
			positions = append(positions, pos)
		}
	}
	return positions
}
