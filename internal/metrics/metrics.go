// Package metrics defines the Prometheus collectors for flightloop and the
// HTTP middleware that feeds the request-level ones. Route labels are
// normalized through a known-route table so scanner traffic cannot blow up
// label cardinality.
package metrics

import (
	"bufio"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightloop_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "flightloop_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	snapshotDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "flightloop_snapshot_duration_seconds",
			Help:    "Time to compute one whole-schedule position snapshot.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		},
	)

	positionsComputedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_positions_computed_total",
			Help: "Total flight positions interpolated by the snapshot path.",
		},
	)

	activeFlights = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_active_flights",
			Help: "Airborne flights in the most recent snapshot.",
		},
	)

	clockCurrentTime = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_clock_current_time_minutes",
			Help: "Simulated time in minutes from midnight.",
		},
	)

	clockPlaying = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_clock_playing",
			Help: "1 while the simulation clock is running, 0 while stopped.",
		},
	)

	clockSpeed = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_clock_playback_speed",
			Help: "Playback speed multiplier (simulated minutes per real minute).",
		},
	)

	clockCommandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightloop_clock_commands_total",
			Help: "Clock control commands received, by action.",
		},
		[]string{"action"},
	)

	scheduleFlightCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_schedule_flights",
			Help: "Flights in the loaded schedule dataset.",
		},
	)

	scheduleAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_schedule_age_seconds",
			Help: "Age of the loaded schedule dataset in seconds.",
		},
	)

	cacheHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_frame_cache_hits_total",
			Help: "Frame cache hits.",
		},
	)

	cacheMissesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_frame_cache_misses_total",
			Help: "Frame cache misses.",
		},
	)

	cacheEvictionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_frame_cache_evictions_total",
			Help: "Frame cache entries evicted.",
		},
	)

	cacheEntries = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_frame_cache_entries",
			Help: "Entries currently in the frame cache.",
		},
	)

	streamConnectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightloop_stream_connections_total",
			Help: "Stream connection events by transport and direction.",
		},
		[]string{"transport", "event"},
	)

	streamsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "flightloop_streams_active",
			Help: "Currently connected stream clients.",
		},
	)

	streamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flightloop_stream_errors_total",
			Help: "Stream errors by reason.",
		},
		[]string{"reason"},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_stream_messages_total",
			Help: "Messages sent to stream clients.",
		},
	)

	streamBytesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "flightloop_stream_bytes_total",
			Help: "Bytes sent to stream clients.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		snapshotDurationSeconds,
		positionsComputedTotal,
		activeFlights,
		clockCurrentTime,
		clockPlaying,
		clockSpeed,
		clockCommandsTotal,
		scheduleFlightCount,
		scheduleAgeSeconds,
		cacheHitsTotal,
		cacheMissesTotal,
		cacheEvictionsTotal,
		cacheEntries,
		streamConnectionsTotal,
		streamsActive,
		streamErrorsTotal,
		streamMessagesTotal,
		streamBytesTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordSnapshot records one batch position computation.
func RecordSnapshot(d time.Duration, computed, airborne int) {
	snapshotDurationSeconds.Observe(d.Seconds())
	positionsComputedTotal.Add(float64(computed))
	activeFlights.Set(float64(airborne))
}

// SetClockState publishes the clock gauges.
func SetClockState(currentTime float64, playing bool, speed float64) {
	clockCurrentTime.Set(currentTime)
	if playing {
		clockPlaying.Set(1)
	} else {
		clockPlaying.Set(0)
	}
	clockSpeed.Set(speed)
}

// IncClockCommand counts one control command by action name.
func IncClockCommand(action string) {
	clockCommandsTotal.WithLabelValues(action).Inc()
}

// SetScheduleFlightCount publishes the loaded schedule size.
func SetScheduleFlightCount(n int) {
	scheduleFlightCount.Set(float64(n))
}

// SetScheduleAge publishes the schedule dataset age in seconds.
func SetScheduleAge(seconds float64) {
	scheduleAgeSeconds.Set(seconds)
}

// IncCacheHits counts a frame cache hit.
func IncCacheHits() { cacheHitsTotal.Inc() }

// IncCacheMisses counts a frame cache miss.
func IncCacheMisses() { cacheMissesTotal.Inc() }

// AddCacheEvictions counts evicted frame cache entries.
func AddCacheEvictions(n int) { cacheEvictionsTotal.Add(float64(n)) }

// SetCacheEntries publishes the current frame cache size.
func SetCacheEntries(n int) { cacheEntries.Set(float64(n)) }

// IncStreamConnections counts a stream connect/disconnect for a transport
// ("sse" or "ws").
func IncStreamConnections(transport, event string) {
	streamConnectionsTotal.WithLabelValues(transport, event).Inc()
}

// IncStreamsActive increments the active stream gauge.
func IncStreamsActive() { streamsActive.Inc() }

// DecStreamsActive decrements the active stream gauge.
func DecStreamsActive() { streamsActive.Dec() }

// IncStreamErrors counts a stream error by reason.
func IncStreamErrors(reason string) {
	streamErrorsTotal.WithLabelValues(reason).Inc()
}

// IncStreamMessages counts one message sent to a stream client.
func IncStreamMessages() { streamMessagesTotal.Inc() }

// AddStreamBytes counts bytes sent to stream clients.
func AddStreamBytes(n int64) { streamBytesTotal.Add(float64(n)) }

// knownRoutes are the exact paths the server registers.
var knownRoutes = map[string]bool{
	"/":                         true,
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/api/v1/positions":         true,
	"/api/v1/clock":             true,
	"/api/v1/schedule/metadata": true,
	"/api/v1/schedule/fetch":    true,
	"/api/v1/schedule/upcoming": true,
	"/api/v1/cache/stats":       true,
	"/api/v1/stream/positions":  true,
	"/api/v1/ws":                true,
	"/index.html":               true,
	"/app.js":                   true,
	"/styles.css":               true,
}

// normalizeRoute maps a request path to a bounded label set: known routes
// pass through, clock control actions collapse to one label, and everything
// else (bots, scanners) becomes "other".
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/api/v1/clock/") {
		return "/api/v1/clock/{action}"
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working through the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Hijack supports the WebSocket upgrade through the middleware.
func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := rw.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		route := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
