package config

import (
	"context"
	"testing"
	"time"

	"github.com/signalsfoundry/groundtrack/internal/observability"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(context.Background(), nil)
	def := Default()
	if cfg.HTTPAddr != def.HTTPAddr || cfg.FrameStride != 60 || cfg.TickInterval != time.Second || cfg.PositionSource != SourceRemote {
		t.Fatalf("FromEnv without env = %+v", cfg)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("GROUNDTRACK_HTTP_ADDR", ":9000")
	t.Setenv("GROUNDTRACK_POSITION_SOURCE", "SGP4")
	t.Setenv("GROUNDTRACK_API_KEY", "KEY")
	t.Setenv("GROUNDTRACK_CACHE_TTL", "0s")
	t.Setenv("GROUNDTRACK_FRAME_STRIDE", "30")
	t.Setenv("GROUNDTRACK_TICK_INTERVAL", "250ms")
	t.Setenv("GROUNDTRACK_CORS_ORIGINS", "http://localhost:3000, https://example.com ,")
	t.Setenv("GROUNDTRACK_METRICS_ENABLED", "false")
	t.Setenv("GROUNDTRACK_MAX_DURATION_MINUTES", "90")

	cfg := FromEnv(context.Background(), nil)
	if cfg.HTTPAddr != ":9000" || cfg.PositionSource != SourceSGP4 || cfg.APIKey != "KEY" {
		t.Fatalf("string overrides not applied: %+v", cfg)
	}
	if cfg.CacheTTL != 0 || cfg.FrameStride != 30 || cfg.TickInterval != 250*time.Millisecond {
		t.Fatalf("numeric overrides not applied: %+v", cfg)
	}
	if cfg.MaxDurationMinutes != 90 {
		t.Fatalf("max duration = %d, want 90", cfg.MaxDurationMinutes)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[1] != "https://example.com" {
		t.Fatalf("CORS origins = %q", cfg.CORSOrigins)
	}
	if cfg.MetricsEnabled {
		t.Fatalf("metrics should be disabled")
	}
}

func TestFromEnvInvalidValuesFallBack(t *testing.T) {
	t.Setenv("GROUNDTRACK_FRAME_STRIDE", "0")
	t.Setenv("GROUNDTRACK_TICK_INTERVAL", "0s")
	t.Setenv("GROUNDTRACK_RATE_LIMIT", "-1")
	t.Setenv("GROUNDTRACK_RATE_BURST", "many")
	t.Setenv("GROUNDTRACK_POSITION_SOURCE", "carrier-pigeon")
	t.Setenv("GROUNDTRACK_METRICS_ENABLED", "maybe")
	t.Setenv("GROUNDTRACK_MAX_DURATION_MINUTES", "-5")

	cfg := FromEnv(context.Background(), nil)
	def := Default()
	if cfg.FrameStride != def.FrameStride || cfg.TickInterval != def.TickInterval {
		t.Fatalf("invalid animation values kept: %+v", cfg)
	}
	if cfg.RateLimit != def.RateLimit || cfg.RateBurst != def.RateBurst {
		t.Fatalf("invalid rate values kept: %+v", cfg)
	}
	if cfg.MaxDurationMinutes != def.MaxDurationMinutes {
		t.Fatalf("invalid max duration kept: %d", cfg.MaxDurationMinutes)
	}
	if cfg.PositionSource != SourceRemote || !cfg.MetricsEnabled {
		t.Fatalf("invalid source/metrics values kept: %+v", cfg)
	}
}

func TestFromEnvTracing(t *testing.T) {
	t.Setenv("GROUNDTRACK_TRACING_ENABLED", "true")
	t.Setenv("GROUNDTRACK_TRACING_EXPORTER", "OTLP")
	t.Setenv("GROUNDTRACK_OTLP_ENDPOINT", "collector:4317")

	cfg := FromEnv(context.Background(), nil)
	if !cfg.Tracing.Enabled || cfg.Tracing.Exporter != observability.ExporterOTLP || cfg.Tracing.Endpoint != "collector:4317" {
		t.Fatalf("unexpected tracing config: %+v", cfg.Tracing)
	}
	if cfg.Tracing.ServiceName != "groundtrack" || cfg.Tracing.SampleRatio != 1 {
		t.Fatalf("unset tracing values should keep defaults: %+v", cfg.Tracing)
	}
}

func TestFromEnvTracingInvalidValues(t *testing.T) {
	t.Setenv("GROUNDTRACK_TRACING_EXPORTER", "zipkin")
	t.Setenv("GROUNDTRACK_TRACING_SAMPLE_RATIO", "2")

	cfg := FromEnv(context.Background(), nil)
	if cfg.Tracing.Exporter != observability.ExporterStdout || cfg.Tracing.SampleRatio != 1 {
		t.Fatalf("invalid tracing values kept: %+v", cfg.Tracing)
	}
}
