package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// Format identifies a schedule wire format.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat picks a Format from a file path or URL suffix.
// Defaults to JSON.
func DetectFormat(path string) Format {
	switch {
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		return FormatYAML
	default:
		return FormatJSON
	}
}

// scheduleDocument is the top-level wire structure for both formats.
type scheduleDocument struct {
	Flights []Flight `json:"flights" yaml:"flights"`
}

// Parse decodes a schedule document from r and validates every entry.
// Malformed flights are skipped with a warning log; validation here is the
// loader's responsibility so the interpolation core never re-checks its
// input. Flights without an ID are assigned a generated one.
func Parse(r io.Reader, format Format, logger *slog.Logger) ([]Flight, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading schedule data: %w", err)
	}

	var doc scheduleDocument
	switch format {
	case FormatYAML:
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding YAML schedule: %w", err)
		}
	case Format(""), FormatJSON:
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decoding JSON schedule: %w", err)
		}
	default:
		return nil, fmt.Errorf("unknown schedule format %q", format)
	}

	flights := make([]Flight, 0, len(doc.Flights))
	for i, f := range doc.Flights {
		if err := validate(f); err != nil {
			logger.Warn("skipping malformed schedule entry",
				"index", i,
				"flight_number", f.Number,
				"error", err,
			)
			continue
		}
		if f.ID == "" {
			f.ID = uuid.NewString()
		}
		flights = append(flights, f)
	}

	return flights, nil
}

// validate checks a single flight entry against the schedule invariants.
func validate(f Flight) error {
	if err := validateAirport(f.Origin, "origin"); err != nil {
		return err
	}
	if err := validateAirport(f.Destination, "destination"); err != nil {
		return err
	}
	if f.Origin.Code == f.Destination.Code {
		return fmt.Errorf("origin and destination are both %q", f.Origin.Code)
	}
	if err := validateMinute(f.DepartureTime, "departureTime"); err != nil {
		return err
	}
	if err := validateMinute(f.ArrivalTime, "arrivalTime"); err != nil {
		return err
	}
	if f.DepartureTime == f.ArrivalTime {
		return fmt.Errorf("zero-duration flight (departure == arrival == %d)", f.DepartureTime)
	}
	return nil
}

func validateAirport(a Airport, field string) error {
	if strings.TrimSpace(a.Code) == "" {
		return fmt.Errorf("%s: missing airport code", field)
	}
	if a.Longitude < -180 || a.Longitude > 180 {
		return fmt.Errorf("%s %s: longitude %f out of range [-180, 180]", field, a.Code, a.Longitude)
	}
	if a.Latitude < -90 || a.Latitude > 90 {
		return fmt.Errorf("%s %s: latitude %f out of range [-90, 90]", field, a.Code, a.Latitude)
	}
	return nil
}

func validateMinute(m int, field string) error {
	if m < 0 || m >= MinutesPerDay {
		return fmt.Errorf("%s %d out of range [0, %d)", field, m, MinutesPerDay)
	}
	return nil
}
