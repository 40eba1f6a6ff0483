// Package stream pushes the animation to browsers: a Server-Sent Events
// stream of interpolated flight positions, and a WebSocket channel for
// controlling the simulation clock.
//
// SSE message format:
//
//	data: {"type":"positions","t":510.25,"playing":true,"speed":60,"flights":[...]}\n\n
//
// First message is always metadata:
//
//	data: {"type":"metadata","source":"...","flight_count":120,"schedule_age_seconds":30}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent
// timeout. Reconnecting clients receive a fresh metadata message on each
// connection.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/cebartling/flightloop/internal/cache"
	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/flight"
	"github.com/cebartling/flightloop/internal/httputil"
	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 10).
	MaxMessagesPerSec  float64       // Per-stream send rate cap (default: 120).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Trust X-Forwarded-For / X-Real-IP.
}

// Handler manages SSE and WebSocket streaming connections.
type Handler struct {
	frames  *cache.FrameCache
	store   *schedule.Store
	clk     *clock.Clock
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler.
func NewHandler(frames *cache.FrameCache, store *schedule.Store, clk *clock.Clock, config Config, logger *slog.Logger) *Handler {
	return &Handler{
		frames:  frames,
		store:   store,
		clk:     clk,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// HandlePositions serves the SSE position stream.
// GET /api/v1/stream/positions?fps=30&airport=LAX
func (h *Handler) HandlePositions(w http.ResponseWriter, r *http.Request) {
	fps := 30
	if v := r.URL.Query().Get("fps"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 60 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "invalid fps parameter, must be 1-60"})
			return
		}
		fps = n
	}

	airport := r.URL.Query().Get("airport")

	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.IncStreamErrors("rate_limit")
		h.logger.Warn("stream rate limit exceeded",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
		json.NewEncoder(w).Encode(map[string]string{"error": "too many concurrent streams"})
		return
	}

	metrics.IncStreamConnections("sse", "connect")
	metrics.IncStreamsActive()

	startTime := time.Now()
	h.logger.Info("sse stream connected",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"fps", fps,
		"airport", airport,
	)

	defer func() {
		h.limiter.release(ip)
		metrics.IncStreamConnections("sse", "disconnect")
		metrics.DecStreamsActive()
		h.logger.Info("sse stream disconnected",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		)
	}()

	flusher, ok := w.(http.Flusher)
	if !ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		json.NewEncoder(w).Encode(map[string]string{"error": "streaming not supported"})
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this long-lived response.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c := &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		limiter: rate.NewLimiter(rate.Limit(h.config.MaxMessagesPerSec), int(h.config.MaxMessagesPerSec)),
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnects after a restart.
	retryMs := 3000 + rand.Intn(4000)
	fmt.Fprintf(w, "retry: %d\n\n", retryMs)
	flusher.Flush()

	if err := c.sendJSON(h.metadataMessage()); err != nil {
		metrics.IncStreamErrors("send_error")
		h.logger.Warn("sse send error (metadata)", "remote_ip", ip, "error", err)
		return
	}

	frameTicker := time.NewTicker(time.Second / time.Duration(fps))
	defer frameTicker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()

	for {
		select {
		case <-ctx.Done():
			return

		case <-frameTicker.C:
			if !c.limiter.Allow() {
				metrics.IncStreamErrors("throttled")
				continue
			}

			state := h.clk.Snapshot()
			snap := h.frames.Snapshot(ctx, state.CurrentTime, airport)

			if err := c.sendJSON(buildPositionsMessage(state, snap)); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("sse send error", "remote_ip", ip, "error", err)
				return
			}

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				metrics.IncStreamErrors("send_error")
				h.logger.Warn("sse keepalive error", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

// metadataMessage describes the loaded schedule; it opens every connection.
func (h *Handler) metadataMessage() metadataPayload {
	meta := metadataPayload{Type: "metadata"}
	if ds := h.store.Get(); ds != nil {
		meta.Source = ds.Source
		meta.FlightCount = len(ds.Flights)
		meta.ScheduleAge = int(time.Since(ds.FetchedAt).Seconds())
	}
	return meta
}

// buildPositionsMessage formats a snapshot plus clock state into the SSE
// frame payload.
func buildPositionsMessage(state clock.State, snap flight.Snapshot) positionsPayload {
	return positionsPayload{
		Type:    "positions",
		T:       state.CurrentTime,
		Playing: state.Playing,
		Speed:   state.Speed,
		Flights: snap.Positions,
	}
}

// SSE message payload types.

type metadataPayload struct {
	Type        string `json:"type"`
	Source      string `json:"source"`
	FlightCount int    `json:"flight_count"`
	ScheduleAge int    `json:"schedule_age_seconds"`
}

type positionsPayload struct {
	Type    string            `json:"type"`
	T       float64           `json:"t"`
	Playing bool              `json:"playing"`
	Speed   float64           `json:"speed"`
	Flights []flight.Position `json:"flights"`
}
