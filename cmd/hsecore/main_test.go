package main

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"hsecore/internal/core"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envMap(nil))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != ":8080" || cfg.LogLevel != slog.LevelInfo || cfg.Metrics != "prometheus" || cfg.Trace != "none" || !cfg.Seed {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"HSE_HTTP_ADDR": "127.0.0.1:9000",
		"HSE_LOG_LEVEL": "debug",
		"HSE_METRICS":   " EXPVAR ",
		"HSE_TRACE":     "JSON",
		"HSE_SEED":      "false",
	}))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Addr != "127.0.0.1:9000" || cfg.LogLevel != slog.LevelDebug || cfg.Metrics != "expvar" || cfg.Trace != "json" || cfg.Seed {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	tests := map[string]map[string]string{
		"log level": {"HSE_LOG_LEVEL": "loud"},
		"metrics":   {"HSE_METRICS": "statsd"},
		"trace":     {"HSE_TRACE": "otlp"},
		"seed":      {"HSE_SEED": "maybe"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(envMap(env)); err == nil {
				t.Fatalf("expected error for %v", env)
			}
		})
	}
}

func TestRunRejectsBadConfig(t *testing.T) {
	var logs bytes.Buffer
	err := run(context.Background(), envMap(map[string]string{"HSE_METRICS": "statsd"}), &logs)
	if err == nil || !strings.Contains(err.Error(), "HSE_METRICS") {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	t.Setenv("HSE_STORAGE_DRIVER", "memory")
	t.Setenv("HSE_BLOB_DRIVER", "memory")
	t.Setenv("HSE_EVENTS_DRIVER", "none")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var logs bytes.Buffer
	err := run(ctx, envMap(map[string]string{"HSE_HTTP_ADDR": "127.0.0.1:0", "HSE_METRICS": "none"}), &logs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logs.String(), "shutting down") {
		t.Fatalf("expected shutdown log, got %s", logs.String())
	}
}

func TestReadinessForMemoryStore(t *testing.T) {
	if readiness(core.NewInMemoryService(nil).Store()) != nil {
		t.Fatalf("memory store should not need a readiness check")
	}
}

func TestRunWritesTraceSpans(t *testing.T) {
	t.Setenv("HSE_STORAGE_DRIVER", "memory")
	t.Setenv("HSE_BLOB_DRIVER", "memory")
	t.Setenv("HSE_EVENTS_DRIVER", "none")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var logs bytes.Buffer
	err := run(ctx, envMap(map[string]string{"HSE_HTTP_ADDR": "127.0.0.1:0", "HSE_METRICS": "none", "HSE_TRACE": "json"}), &logs)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(logs.String(), `"operation":"seed"`) {
		t.Fatalf("expected a seed span in the output, got %s", logs.String())
	}
}
