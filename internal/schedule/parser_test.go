package schedule

import (
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

const validJSON = `{
  "flights": [
    {
      "id": "f-1",
      "flightNumber": "FL100",
      "origin": {"code": "LAX", "longitude": -118.4081, "latitude": 33.9425},
      "destination": {"code": "JFK", "longitude": -73.7781, "latitude": 40.6413},
      "departureTime": 360,
      "arrivalTime": 660
    },
    {
      "flightNumber": "FL200",
      "origin": {"code": "SFO", "longitude": -122.379, "latitude": 37.6213},
      "destination": {"code": "SEA", "longitude": -122.3088, "latitude": 47.4502},
      "departureTime": 1380,
      "arrivalTime": 120
    }
  ]
}`

const validYAML = `flights:
  - id: f-1
    flightNumber: FL100
    origin: {code: LAX, longitude: -118.4081, latitude: 33.9425}
    destination: {code: JFK, longitude: -73.7781, latitude: 40.6413}
    departureTime: 360
    arrivalTime: 660
`

func TestParseJSON(t *testing.T) {
	flights, err := Parse(strings.NewReader(validJSON), FormatJSON, testLogger())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(flights) != 2 {
		t.Fatalf("got %d flights, want 2", len(flights))
	}

	if flights[0].ID != "f-1" {
		t.Errorf("flight 0 ID = %q, want f-1", flights[0].ID)
	}
	if flights[0].Number != "FL100" {
		t.Errorf("flight 0 number = %q, want FL100", flights[0].Number)
	}
	if flights[0].Origin.Code != "LAX" || flights[0].Destination.Code != "JFK" {
		t.Errorf("flight 0 route = %s-%s, want LAX-JFK", flights[0].Origin.Code, flights[0].Destination.Code)
	}
	if flights[0].Overnight() {
		t.Error("FL100 should not be overnight")
	}
	if d := flights[0].Duration(); d != 300 {
		t.Errorf("FL100 duration = %d, want 300", d)
	}

	// The second entry has no ID and must be assigned one.
	if flights[1].ID == "" {
		t.Error("flight without id should get a generated one")
	}
	if !flights[1].Overnight() {
		t.Error("FL200 (dep 1380, arr 120) should be overnight")
	}
	if d := flights[1].Duration(); d != 180 {
		t.Errorf("FL200 duration = %d, want 180", d)
	}
}

func TestParseYAML(t *testing.T) {
	flights, err := Parse(strings.NewReader(validYAML), FormatYAML, testLogger())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(flights) != 1 {
		t.Fatalf("got %d flights, want 1", len(flights))
	}
	if flights[0].Origin.Code != "LAX" {
		t.Errorf("origin = %q, want LAX", flights[0].Origin.Code)
	}
}

func TestParseSkipsMalformedEntries(t *testing.T) {
	tests := []struct {
		name  string
		entry string
	}{
		{
			"departure out of range",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":0,"latitude":0},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":1440,"arrivalTime":100}`,
		},
		{
			"negative arrival",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":0,"latitude":0},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":100,"arrivalTime":-1}`,
		},
		{
			"same endpoints",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":0,"latitude":0},"destination":{"code":"AAA","longitude":0,"latitude":0},"departureTime":100,"arrivalTime":200}`,
		},
		{
			"zero duration",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":0,"latitude":0},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":100,"arrivalTime":100}`,
		},
		{
			"missing airport code",
			`{"flightNumber":"X","origin":{"code":"","longitude":0,"latitude":0},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":100,"arrivalTime":200}`,
		},
		{
			"longitude out of range",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":-200,"latitude":0},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":100,"arrivalTime":200}`,
		},
		{
			"latitude out of range",
			`{"flightNumber":"X","origin":{"code":"AAA","longitude":0,"latitude":95},"destination":{"code":"BBB","longitude":1,"latitude":1},"departureTime":100,"arrivalTime":200}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := `{"flights":[` + tt.entry + `]}`
			flights, err := Parse(strings.NewReader(doc), FormatJSON, testLogger())
			if err != nil {
				t.Fatalf("Parse failed: %v", err)
			}
			if len(flights) != 0 {
				t.Errorf("malformed entry was not skipped: %+v", flights)
			}
		})
	}
}

func TestParseInvalidDocument(t *testing.T) {
	if _, err := Parse(strings.NewReader("{not json"), FormatJSON, testLogger()); err == nil {
		t.Error("expected error for invalid JSON document")
	}
	if _, err := Parse(strings.NewReader("\t- bad yaml"), FormatYAML, testLogger()); err == nil {
		t.Error("expected error for invalid YAML document")
	}
}

func TestDetectFormat(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"schedule.json", FormatJSON},
		{"schedule.yaml", FormatYAML},
		{"schedule.yml", FormatYAML},
		{"https://example.com/flights.yaml", FormatYAML},
		{"no-extension", FormatJSON},
	}
	for _, tt := range tests {
		if got := DetectFormat(tt.path); got != tt.want {
			t.Errorf("DetectFormat(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}
