// Package api wires the HTTP surface: REST endpoints for positions, clock
// control and schedule management, the streaming endpoints, probes, metrics
// and the embedded web UI.
package api

import (
	"bufio"
	"embed"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/cebartling/flightloop/internal/auth"
	"github.com/cebartling/flightloop/internal/cache"
	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/health"
	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
	"github.com/cebartling/flightloop/internal/stream"
)

// ScheduleConfig controls where schedule data comes from and how refetches
// behave.
type ScheduleConfig struct {
	Source      string // File path or http(s) URL; empty disables fetching.
	EnableFetch bool   // Allow POST /api/v1/schedule/fetch.
	CacheDir    string // Directory for on-disk schedule snapshots.
	MaxFiles    int    // Snapshots kept on disk before pruning.
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer  *http.Server
	logger      *slog.Logger
	store       *schedule.Store
	frames      *cache.FrameCache
	clk         *clock.Clock
	scheduleCfg ScheduleConfig
	diskCache   *schedule.Cache
}

// NewServer creates a configured HTTP server.
func NewServer(
	addr string,
	logger *slog.Logger,
	authCfg auth.Config,
	store *schedule.Store,
	scheduleCfg ScheduleConfig,
	frames *cache.FrameCache,
	clk *clock.Clock,
	streamHandler *stream.Handler,
	webContent embed.FS,
) *Server {
	s := &Server{
		logger:      logger,
		store:       store,
		frames:      frames,
		clk:         clk,
		scheduleCfg: scheduleCfg,
		diskCache:   schedule.NewCache(scheduleCfg.CacheDir, scheduleCfg.MaxFiles),
	}

	mux := http.NewServeMux()

	// Register routes.
	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(store))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/clock", s.handleClockGet)
	mux.HandleFunc("POST /api/v1/clock/{action}", s.handleClockAction)
	mux.HandleFunc("GET /api/v1/schedule/metadata", s.handleScheduleMetadata)
	mux.HandleFunc("POST /api/v1/schedule/fetch", s.handleScheduleFetch)
	mux.HandleFunc("GET /api/v1/schedule/upcoming", s.handleScheduleUpcoming)
	mux.HandleFunc("GET /api/v1/cache/stats", s.handleCacheStats)

	mux.HandleFunc("GET /api/v1/stream/positions", streamHandler.HandlePositions)
	mux.HandleFunc("GET /api/v1/ws", streamHandler.HandleControl)

	mux.Handle("GET /", http.FileServerFS(webContent))

	// Build middleware chain: metrics -> logging -> auth -> mux.
	var handler http.Handler = mux
	handler = auth.Middleware(authCfg)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = metrics.Middleware(handler)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE streaming working behind the recorder.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer for
// deadline control on streaming responses.
func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

// Hijack supports the WebSocket upgrade through the recorder.
func (sr *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := sr.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, http.ErrNotSupported
	}
	return h.Hijack()
}

func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", r.RemoteAddr,
			)
		})
	}
}
