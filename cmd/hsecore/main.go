// Command hsecore serves the HSE records API.
//
// Configuration is read from the environment:
//
//	HSE_HTTP_ADDR: listen address (default :8080)
//	HSE_LOG_LEVEL: debug|info|warn|error (default info)
//	HSE_METRICS: none|prometheus|expvar (default prometheus)
//	HSE_TRACE: none|json, json writes one line per service span to stderr (default none)
//	HSE_SEED: install the default accounts and records (default true)
//
// Storage, blob and event backends use the HSE_STORAGE_*, HSE_BLOB_* and
// HSE_EVENTS_* variables documented on their packages.
package main

import (
	"context"
	"database/sql"
	"errors"
	"expvar"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hsecore/internal/adapters/httpapi"
	"hsecore/internal/blob"
	"hsecore/internal/core"
	"hsecore/internal/infra/events"
)

const shutdownTimeout = 10 * time.Second

type config struct {
	Addr     string
	LogLevel slog.Level
	Metrics  string
	Trace    string
	Seed     bool
}

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{Addr: ":8080", LogLevel: slog.LevelInfo, Metrics: "prometheus", Trace: "none", Seed: true}
	if v := strings.TrimSpace(getenv("HSE_HTTP_ADDR")); v != "" {
		cfg.Addr = v
	}
	if v := strings.TrimSpace(getenv("HSE_LOG_LEVEL")); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return config{}, fmt.Errorf("HSE_LOG_LEVEL: %w", err)
		}
	}
	if v := strings.ToLower(strings.TrimSpace(getenv("HSE_METRICS"))); v != "" {
		switch v {
		case "none", "prometheus", "expvar":
			cfg.Metrics = v
		default:
			return config{}, fmt.Errorf("HSE_METRICS: unknown exporter %q", v)
		}
	}
	if v := strings.ToLower(strings.TrimSpace(getenv("HSE_TRACE"))); v != "" {
		switch v {
		case "none", "json":
			cfg.Trace = v
		default:
			return config{}, fmt.Errorf("HSE_TRACE: unknown tracer %q", v)
		}
	}
	if v := strings.TrimSpace(getenv("HSE_SEED")); v != "" {
		seed, err := strconv.ParseBool(v)
		if err != nil {
			return config{}, fmt.Errorf("HSE_SEED: %w", err)
		}
		cfg.Seed = seed
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, os.Getenv, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, getenv func(string) string, logOut io.Writer) error {
	cfg, err := loadConfig(getenv)
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewJSONHandler(logOut, &slog.HandlerOptions{Level: cfg.LogLevel}))

	store, err := core.OpenPersistentStore(nil)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logger.Warn("close store", "error", err)
			}
		}()
	}

	mux := http.NewServeMux()
	opts := []core.ServiceOption{core.WithLogger(logger)}
	switch cfg.Metrics {
	case "prometheus":
		reg := prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(reg)
		if err != nil {
			return fmt.Errorf("metrics: %w", err)
		}
		opts = append(opts, core.WithMetricsRecorder(rec))
		mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	case "expvar":
		opts = append(opts, core.WithMetricsRecorder(core.NewExpvarMetricsRecorder("hse_service_metrics")))
		mux.Handle("GET /debug/vars", expvar.Handler())
	}
	if cfg.Trace == "json" {
		opts = append(opts, core.WithTracer(core.NewJSONTracer(logOut)))
	}

	publisher, err := events.Open(ctx, logger)
	if err != nil {
		return fmt.Errorf("open events: %w", err)
	}
	if publisher != nil {
		defer func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("close events", "error", err)
			}
		}()
		opts = append(opts, core.WithEventPublisher(publisher))
	}

	svc := core.NewService(store, opts...)
	if cfg.Seed {
		if _, err := svc.Seed(ctx); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	blobs, err := blob.Open(ctx)
	if err != nil {
		return fmt.Errorf("open blob store: %w", err)
	}
	worker := httpapi.NewWorker(svc, blobs, httpapi.WithWorkerLogger(logger))
	worker.Start()

	api := httpapi.NewHandler(svc,
		httpapi.WithExports(worker),
		httpapi.WithLogger(logger),
		httpapi.WithReadiness(readiness(store)),
	)
	mux.Handle("/", api)

	srv := &http.Server{Addr: cfg.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", cfg.Addr, "blob_driver", blobs.Driver(), "metrics", cfg.Metrics)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = worker.Stop(context.Background())
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	<-errCh
	return worker.Stop(shutdownCtx)
}

// readiness pings the database behind persistent stores. The memory store
// is always ready.
func readiness(store core.PersistentStore) func(context.Context) error {
	switch s := store.(type) {
	case interface{ DB() *sqlx.DB }:
		return s.DB().PingContext
	case interface{ DB() *sql.DB }:
		return s.DB().PingContext
	}
	return nil
}
