package main

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/cebartling/flightloop/internal/api"
	"github.com/cebartling/flightloop/internal/auth"
	"github.com/cebartling/flightloop/internal/cache"
	"github.com/cebartling/flightloop/internal/clock"
	"github.com/cebartling/flightloop/internal/flight"
	"github.com/cebartling/flightloop/internal/metrics"
	"github.com/cebartling/flightloop/internal/schedule"
	"github.com/cebartling/flightloop/internal/stream"
	"github.com/cebartling/flightloop/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(),
	}))

	addr := os.Getenv("FLIGHTLOOP_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	authCfg, err := loadAuthConfig(logger)
	if err != nil {
		logger.Error("invalid auth configuration", "error", err)
		os.Exit(1)
	}

	scheduleCfg := loadScheduleConfig(logger)
	store := schedule.NewStore()
	diskCache := schedule.NewCache(scheduleCfg.CacheDir, scheduleCfg.MaxFiles)

	// Attempt to load a cached schedule on startup.
	if data, format, ts, err := diskCache.LoadLatest(); err != nil {
		logger.Info("no schedule cache found, starting without schedule data", "error", err)
	} else {
		flights, err := schedule.Parse(bytes.NewReader(data), format, logger)
		if err != nil {
			logger.Warn("failed to parse cached schedule", "error", err)
		} else if len(flights) > 0 {
			store.Set(&schedule.Dataset{
				Source:    "cache",
				FetchedAt: ts,
				Flights:   flights,
			})
			metrics.SetScheduleFlightCount(len(flights))
			logger.Info("loaded schedule from cache", "flights", len(flights), "cached_at", ts.Format(time.RFC3339))
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initial fetch when a source is configured and the cache gave us nothing.
	if scheduleCfg.Source != "" && store.Get() == nil {
		if err := initialFetch(ctx, scheduleCfg, store, diskCache, logger); err != nil {
			logger.Warn("initial schedule fetch failed, continuing without schedule data", "error", err)
		}
	}

	workers := loadPoolWorkers(logger)
	pool := flight.NewPool(workers, logger)

	frames := cache.New(loadFrameCacheConfig(logger), pool, store, logger)

	clk := clock.New(logger)

	streamCfg := loadStreamConfig(logger)
	streamHandler := stream.NewHandler(frames, store, clk, streamCfg, logger)

	srv := api.NewServer(addr, logger, authCfg, store, scheduleCfg, frames, clk, streamHandler, web.Content)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting server",
			"addr", addr,
			"auth_enabled", authCfg.Enabled,
			"schedule_source", scheduleCfg.Source,
			"workers", workers,
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		logger.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.HTTPServer().Shutdown(shutdownCtx)
	})

	// The simulation clock ticks for the whole process lifetime.
	g.Go(func() error {
		clk.Run(ctx)
		return nil
	})

	// Keep the schedule age gauge current.
	g.Go(func() error {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if age := store.AgeSeconds(); age >= 0 {
					metrics.SetScheduleAge(age)
				}
			case <-ctx.Done():
				return nil
			}
		}
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// initialFetch pulls the schedule from the configured source once at startup
// and seeds both the store and the disk cache.
func initialFetch(ctx context.Context, cfg api.ScheduleConfig, store *schedule.Store, diskCache *schedule.Cache, logger *slog.Logger) error {
	fetchCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	fetcher := schedule.NewFetcher(cfg.Source)
	data, err := fetcher.Fetch(fetchCtx)
	if err != nil {
		return err
	}

	format := schedule.DetectFormat(cfg.Source)
	flights, err := schedule.Parse(bytes.NewReader(data), format, logger)
	if err != nil {
		return err
	}

	now := time.Now()
	store.Set(&schedule.Dataset{
		Source:    cfg.Source,
		FetchedAt: now,
		Flights:   flights,
	})
	metrics.SetScheduleFlightCount(len(flights))

	if err := diskCache.Write(data, string(format), now); err != nil {
		logger.Warn("schedule cache write failed", "error", err)
	}

	logger.Info("loaded schedule from source", "source", cfg.Source, "flights", len(flights))
	return nil
}

func logLevel() slog.Level {
	switch os.Getenv("FLIGHTLOOP_LOG_LEVEL") {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func loadAuthConfig(logger *slog.Logger) (auth.Config, error) {
	cfg := auth.Config{}

	enabledStr := os.Getenv("FLIGHTLOOP_AUTH_ENABLED")
	if enabledStr != "" {
		enabled, err := strconv.ParseBool(enabledStr)
		if err != nil {
			return cfg, errors.New("FLIGHTLOOP_AUTH_ENABLED must be a boolean value (true/false/1/0)")
		}
		cfg.Enabled = enabled
	}

	if cfg.Enabled {
		cfg.Token = os.Getenv("FLIGHTLOOP_AUTH_TOKEN")
		if cfg.Token == "" {
			return cfg, errors.New("FLIGHTLOOP_AUTH_TOKEN is required when auth is enabled")
		}
		logger.Info("auth enabled")
	}

	return cfg, nil
}

func loadScheduleConfig(logger *slog.Logger) api.ScheduleConfig {
	cfg := api.ScheduleConfig{
		EnableFetch: true,
		CacheDir:    "/tmp/flightloop/schedule",
		MaxFiles:    5,
	}

	cfg.Source = os.Getenv("FLIGHTLOOP_SCHEDULE_SOURCE")
	if cfg.Source == "" {
		cfg.EnableFetch = false
	}

	if v := os.Getenv("FLIGHTLOOP_ENABLE_SCHEDULE_FETCH"); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid FLIGHTLOOP_ENABLE_SCHEDULE_FETCH value, defaulting to false", "value", v)
			cfg.EnableFetch = false
		} else {
			cfg.EnableFetch = enabled
		}
	}

	if v := os.Getenv("FLIGHTLOOP_SCHEDULE_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}

	if v := os.Getenv("FLIGHTLOOP_SCHEDULE_MAX_FILES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid FLIGHTLOOP_SCHEDULE_MAX_FILES value, using default", "value", v, "default", cfg.MaxFiles)
		} else {
			cfg.MaxFiles = n
		}
	}

	logger.Info("schedule config",
		"source", cfg.Source,
		"fetch_enabled", cfg.EnableFetch,
		"cache_dir", cfg.CacheDir,
	)

	return cfg
}

func loadPoolWorkers(logger *slog.Logger) int {
	workers := runtime.NumCPU()

	if v := os.Getenv("FLIGHTLOOP_POOL_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid FLIGHTLOOP_POOL_WORKERS value, using default", "value", v, "default", workers)
		} else {
			workers = n
		}
	}

	return workers
}

func loadFrameCacheConfig(logger *slog.Logger) cache.Config {
	cfg := cache.Config{
		Step:       0.25,
		MaxEntries: 512,
	}

	if v := os.Getenv("FLIGHTLOOP_FRAME_CACHE_STEP"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f <= 0 {
			logger.Warn("invalid FLIGHTLOOP_FRAME_CACHE_STEP value, using default", "value", v, "default", cfg.Step)
		} else {
			cfg.Step = f
		}
	}

	if v := os.Getenv("FLIGHTLOOP_FRAME_CACHE_MAX_ENTRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid FLIGHTLOOP_FRAME_CACHE_MAX_ENTRIES value, using default", "value", v, "default", cfg.MaxEntries)
		} else {
			cfg.MaxEntries = n
		}
	}

	return cfg
}

func loadStreamConfig(logger *slog.Logger) stream.Config {
	cfg := stream.Config{
		MaxConcurrentPerIP: 10,
		MaxMessagesPerSec:  120,
		KeepaliveInterval:  30 * time.Second,
	}

	if v := os.Getenv("FLIGHTLOOP_STREAM_MAX_CONCURRENT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid FLIGHTLOOP_STREAM_MAX_CONCURRENT value, using default", "value", v, "default", 10)
		} else {
			cfg.MaxConcurrentPerIP = n
		}
	}

	if v := os.Getenv("FLIGHTLOOP_STREAM_MAX_MESSAGES_PER_SEC"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 1 {
			logger.Warn("invalid FLIGHTLOOP_STREAM_MAX_MESSAGES_PER_SEC value, using default", "value", v, "default", 120)
		} else {
			cfg.MaxMessagesPerSec = f
		}
	}

	if v := os.Getenv("FLIGHTLOOP_STREAM_KEEPALIVE_INTERVAL"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			logger.Warn("invalid FLIGHTLOOP_STREAM_KEEPALIVE_INTERVAL value, using default", "value", v, "default", 30)
		} else {
			cfg.KeepaliveInterval = time.Duration(n) * time.Second
		}
	}

	if v := os.Getenv("FLIGHTLOOP_TRUST_PROXY"); v != "" {
		trust, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn("invalid FLIGHTLOOP_TRUST_PROXY value, defaulting to false", "value", v)
		} else {
			cfg.TrustProxy = trust
		}
	}

	logger.Info("stream config",
		"max_concurrent_per_ip", cfg.MaxConcurrentPerIP,
		"max_messages_per_sec", cfg.MaxMessagesPerSec,
		"keepalive_interval_seconds", cfg.KeepaliveInterval.Seconds(),
		"trust_proxy", cfg.TrustProxy,
	)

	return cfg
}
