package api

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/flight"
	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
)

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}

// parseMinutes parses a minutes-from-midnight query value. ParseFloat accepts
// "NaN" and "Inf" spellings, which corrupt the interpolation window math and
// the frame cache keys, so non-finite values are rejected here at the
// boundary along with unparsable ones.
func parseMinutes(v string) (float64, bool) {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// positionsResponse is the payload for GET /api/v1/positions.
type positionsResponse struct {
	T       float64           `json:"t"`
	Count   int               `json:"count"`
	Flights []flight.Position `json:"flights"`
}

// handlePositions returns the interpolated positions for a single instant.
// GET /api/v1/positions?t=510&airport=LAX
// With no t parameter the simulation clock's current time is used.
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	t := s.clk.Snapshot().CurrentTime
	if v := r.URL.Query().Get("t"); v != "" {
		parsed, ok := parseMinutes(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid t parameter, must be a finite number")
			return
		}
		t = clock.Normalize(parsed)
	}

	airport := r.URL.Query().Get("airport")
	snap := s.frames.Snapshot(r.Context(), t, airport)

	writeJSON(w, http.StatusOK, positionsResponse{
		T:       snap.Time,
		Count:   len(snap.Positions),
		Flights: snap.Positions,
	})
}

// handleClockGet returns the current clock state.
// GET /api/v1/clock
func (s *Server) handleClockGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.clk.Snapshot())
}

// clockRequest carries the optional value for seek, speed and loop.
type clockRequest struct {
	Value float64 `json:"value"`
}

// handleClockAction applies a clock command and returns the updated state.
// POST /api/v1/clock/{play,pause,toggle,reset,seek,speed,loop}
func (s *Server) handleClockAction(w http.ResponseWriter, r *http.Request) {
	action := r.PathValue("action")

	var req clockRequest
	switch action {
	case "seek", "speed", "loop":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body, expected {\"value\": <number>}")
			return
		}
	}

	switch action {
	case "play":
		s.clk.Play()
	case "pause":
		s.clk.Pause()
	case "toggle":
		s.clk.TogglePlayback()
	case "reset":
		s.clk.Reset()
	case "seek":
		s.clk.Seek(req.Value)
	case "speed":
		if err := s.clk.SetSpeed(req.Value); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	case "loop":
		s.clk.SetLoop(req.Value != 0)
	default:
		writeError(w, http.StatusNotFound, "unknown clock action: "+action)
		return
	}

	metrics.IncClockCommand(action)
	writeJSON(w, http.StatusOK, s.clk.Snapshot())
}

// metadataResponse is the payload for GET /api/v1/schedule/metadata.
type metadataResponse struct {
	Source      string  `json:"source"`
	FlightCount int     `json:"flight_count"`
	FetchedAt   string  `json:"fetched_at"`
	AgeSeconds  float64 `json:"age_seconds"`
	Generation  uint64  `json:"generation"`
}

// handleScheduleMetadata describes the loaded schedule.
// GET /api/v1/schedule/metadata
func (s *Server) handleScheduleMetadata(w http.ResponseWriter, r *http.Request) {
	ds := s.store.Get()
	if ds == nil {
		writeError(w, http.StatusNotFound, "no schedule loaded")
		return
	}
	writeJSON(w, http.StatusOK, metadataResponse{
		Source:      ds.Source,
		FlightCount: len(ds.Flights),
		FetchedAt:   ds.FetchedAt.Format(time.RFC3339),
		AgeSeconds:  s.store.AgeSeconds(),
		Generation:  s.store.Generation(),
	})
}

// handleScheduleFetch refetches the schedule from the configured source,
// swaps the dataset and writes a disk snapshot.
// POST /api/v1/schedule/fetch
func (s *Server) handleScheduleFetch(w http.ResponseWriter, r *http.Request) {
	if !s.scheduleCfg.EnableFetch || s.scheduleCfg.Source == "" {
		writeError(w, http.StatusForbidden, "schedule fetching is disabled")
		return
	}

	// Serialize concurrent fetches; the last writer would win anyway but
	// this keeps the disk cache consistent.
	s.store.Lock()
	defer s.store.Unlock()

	fetcher := schedule.NewFetcher(s.scheduleCfg.Source)
	data, err := fetcher.Fetch(r.Context())
	if err != nil {
		s.logger.Error("schedule fetch failed", "source", s.scheduleCfg.Source, "error", err)
		writeError(w, http.StatusBadGateway, "schedule fetch failed: "+err.Error())
		return
	}

	format := schedule.DetectFormat(s.scheduleCfg.Source)
	flights, err := schedule.Parse(bytes.NewReader(data), format, s.logger)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "schedule parse failed: "+err.Error())
		return
	}

	now := time.Now()
	s.store.Set(&schedule.Dataset{
		Source:    s.scheduleCfg.Source,
		FetchedAt: now,
		Flights:   flights,
	})
	metrics.SetScheduleFlightCount(len(flights))
	metrics.SetScheduleAge(0)

	if err := s.diskCache.Write(data, string(format), now); err != nil {
		s.logger.Warn("schedule cache write failed", "error", err)
	}

	s.logger.Info("schedule refreshed", "source", s.scheduleCfg.Source, "flights", len(flights))
	writeJSON(w, http.StatusOK, map[string]any{
		"source":       s.scheduleCfg.Source,
		"flight_count": len(flights),
		"generation":   s.store.Generation(),
	})
}

// handleCacheStats reports frame cache hit/miss/eviction counters.
// GET /api/v1/cache/stats
func (s *Server) handleCacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.frames.Stats())
}

// upcomingResponse is the payload for GET /api/v1/schedule/upcoming.
type upcomingResponse struct {
	From   float64          `json:"from"`
	Window float64          `json:"window"`
	Events []schedule.Event `json:"events"`
}

// handleScheduleUpcoming lists departures and arrivals inside a window of
// simulated minutes, soonest first.
// GET /api/v1/schedule/upcoming?from=510&window=60&airport=LAX&limit=20
func (s *Server) handleScheduleUpcoming(w http.ResponseWriter, r *http.Request) {
	from := s.clk.Snapshot().CurrentTime
	if v := r.URL.Query().Get("from"); v != "" {
		parsed, ok := parseMinutes(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid from parameter, must be a finite number")
			return
		}
		from = clock.Normalize(parsed)
	}

	window := 60.0
	if v := r.URL.Query().Get("window"); v != "" {
		parsed, ok := parseMinutes(v)
		if !ok || parsed < 0 || parsed > schedule.MinutesPerDay {
			writeError(w, http.StatusBadRequest, "invalid window parameter, must be 0-1440")
			return
		}
		window = parsed
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter, must be a positive integer")
			return
		}
		limit = n
	}

	var flights []schedule.Flight
	if ds := s.store.Get(); ds != nil {
		flights = ds.Flights
	}

	events := schedule.Upcoming(flights, from, window, r.URL.Query().Get("airport"), limit)
	writeJSON(w, http.StatusOK, upcomingResponse{From: from, Window: window, Events: events})
}
