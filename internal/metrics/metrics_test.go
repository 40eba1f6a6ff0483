package metrics

import "testing"

func TestNormalizeRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		// Known exact routes.
		{"/healthz", "/healthz"},
		{"/readyz", "/readyz"},
		{"/metrics", "/metrics"},
		{"/", "/"},
		{"/api/v1/positions", "/api/v1/positions"},
		{"/api/v1/clock", "/api/v1/clock"},
		{"/api/v1/schedule/metadata", "/api/v1/schedule/metadata"},
		{"/api/v1/schedule/fetch", "/api/v1/schedule/fetch"},
		{"/api/v1/schedule/upcoming", "/api/v1/schedule/upcoming"},
		{"/api/v1/stream/positions", "/api/v1/stream/positions"},
		{"/api/v1/ws", "/api/v1/ws"},

		// Clock control actions collapse to one label.
		{"/api/v1/clock/play", "/api/v1/clock/{action}"},
		{"/api/v1/clock/pause", "/api/v1/clock/{action}"},
		{"/api/v1/clock/toggle", "/api/v1/clock/{action}"},
		{"/api/v1/clock/seek", "/api/v1/clock/{action}"},
		{"/api/v1/clock/speed", "/api/v1/clock/{action}"},
		{"/api/v1/clock/loop", "/api/v1/clock/{action}"},
		{"/api/v1/clock/bogus", "/api/v1/clock/{action}"},

		// Unknown/bot paths collapse to "other".
		{"/wp-admin", "other"},
		{"/robots.txt", "other"},
		{"/.env", "other"},
		{"/api/v2/something", "other"},
		{"/favicon.ico", "other"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got := normalizeRoute(tt.path)
			if got != tt.want {
				t.Errorf("normalizeRoute(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

// TestClockActionCardinality verifies arbitrary clock action paths produce
// exactly one distinct path label.
func TestClockActionCardinality(t *testing.T) {
	seen := make(map[string]bool)
	for _, action := range []string{"play", "pause", "toggle", "seek", "speed", "loop", "zzz", "123"} {
		seen[normalizeRoute("/api/v1/clock/"+action)] = true
	}
	if len(seen) != 1 {
		t.Errorf("expected 1 unique label for clock action paths, got %d: %v", len(seen), seen)
	}
}
