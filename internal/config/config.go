// Package config loads runtime settings from GROUNDTRACK_* environment
// variables. Invalid values are reported and replaced by their defaults.
package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/observability"
	"github.com/signalsfoundry/groundtrack/model"
)

// Position source kinds.
const (
	SourceRemote = "remote"
	SourceSGP4   = "sgp4"
)

// Config is the full runtime configuration.
type Config struct {
	HTTPAddr       string
	GRPCAddr       string
	MetricsEnabled bool
	CORSOrigins    []string

	WorldMapSource string
	CatalogPath    string

	PositionSource string
	APIBaseURL     string
	PositionsPath  string
	APIKey         string
	CacheTTL       time.Duration
	RateLimit      float64
	RateBurst      int
	RequestTimeout time.Duration

	MaxDurationMinutes int

	TickInterval time.Duration
	FrameStride  int
	Speedup      float64
	TimeLayout   string

	Tracing observability.TracingConfig
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:       ":8080",
		GRPCAddr:       ":50051",
		MetricsEnabled: true,
		CORSOrigins:    []string{"*"},
		WorldMapSource: "https://unpkg.com/world-atlas@1/world/110m.json",
		PositionSource: SourceRemote,
		APIBaseURL:     "https://api.n2yo.com",
		PositionsPath:  "rest/v1/satellite/positions",
		CacheTTL:       5 * time.Minute,
		RateLimit:      1,
		RateBurst:      2,
		RequestTimeout: 30 * time.Second,

		MaxDurationMinutes: model.DefaultMaxDurationMinutes,

		TickInterval: time.Second,
		FrameStride:  60,
		Speedup:      60,
		TimeLayout:   "Mon Jan 02 2006 15:04:05 GMT-0700 (MST)",
		Tracing:      observability.DefaultTracingConfig(),
	}
}

// FromEnv overlays environment variables on Default.
func FromEnv(ctx context.Context, log logging.Logger) Config {
	if log == nil {
		log = logging.Noop()
	}
	e := envReader{ctx: ctx, log: log}
	cfg := Default()

	cfg.HTTPAddr = e.str("GROUNDTRACK_HTTP_ADDR", cfg.HTTPAddr)
	cfg.GRPCAddr = e.str("GROUNDTRACK_GRPC_ADDR", cfg.GRPCAddr)
	cfg.MetricsEnabled = e.boolean("GROUNDTRACK_METRICS_ENABLED", cfg.MetricsEnabled)
	cfg.CORSOrigins = e.list("GROUNDTRACK_CORS_ORIGINS", cfg.CORSOrigins)

	cfg.WorldMapSource = e.str("GROUNDTRACK_WORLD_MAP_URL", cfg.WorldMapSource)
	cfg.CatalogPath = e.str("GROUNDTRACK_TLE_PATH", cfg.CatalogPath)

	cfg.PositionSource = strings.ToLower(e.str("GROUNDTRACK_POSITION_SOURCE", cfg.PositionSource))
	if cfg.PositionSource != SourceRemote && cfg.PositionSource != SourceSGP4 {
		log.Warn(ctx, "unknown position source; using default",
			logging.String("value", cfg.PositionSource), logging.String("default", SourceRemote))
		cfg.PositionSource = SourceRemote
	}
	cfg.APIBaseURL = e.str("GROUNDTRACK_API_BASE_URL", cfg.APIBaseURL)
	cfg.PositionsPath = e.str("GROUNDTRACK_POSITIONS_PATH", cfg.PositionsPath)
	cfg.APIKey = e.str("GROUNDTRACK_API_KEY", cfg.APIKey)
	cfg.CacheTTL = e.duration("GROUNDTRACK_CACHE_TTL", cfg.CacheTTL, true)
	cfg.RateLimit = e.float("GROUNDTRACK_RATE_LIMIT", cfg.RateLimit)
	cfg.RateBurst = e.integer("GROUNDTRACK_RATE_BURST", cfg.RateBurst, 1)
	cfg.RequestTimeout = e.duration("GROUNDTRACK_REQUEST_TIMEOUT", cfg.RequestTimeout, false)

	cfg.MaxDurationMinutes = e.integer("GROUNDTRACK_MAX_DURATION_MINUTES", cfg.MaxDurationMinutes, 1)

	cfg.TickInterval = e.duration("GROUNDTRACK_TICK_INTERVAL", cfg.TickInterval, false)
	cfg.FrameStride = e.integer("GROUNDTRACK_FRAME_STRIDE", cfg.FrameStride, 1)
	cfg.Speedup = e.float("GROUNDTRACK_TIME_SPEEDUP", cfg.Speedup)
	cfg.TimeLayout = e.str("GROUNDTRACK_TIME_LAYOUT", cfg.TimeLayout)

	cfg.Tracing.Enabled = e.boolean("GROUNDTRACK_TRACING_ENABLED", cfg.Tracing.Enabled)
	cfg.Tracing.ServiceName = e.str("GROUNDTRACK_TRACING_SERVICE_NAME", cfg.Tracing.ServiceName)
	cfg.Tracing.Endpoint = e.str("GROUNDTRACK_OTLP_ENDPOINT", cfg.Tracing.Endpoint)
	cfg.Tracing.Exporter = strings.ToLower(e.str("GROUNDTRACK_TRACING_EXPORTER", cfg.Tracing.Exporter))
	if cfg.Tracing.Exporter != observability.ExporterStdout && cfg.Tracing.Exporter != observability.ExporterOTLP {
		e.invalid("GROUNDTRACK_TRACING_EXPORTER", cfg.Tracing.Exporter, observability.ExporterStdout)
		cfg.Tracing.Exporter = observability.ExporterStdout
	}
	if ratio := e.float("GROUNDTRACK_TRACING_SAMPLE_RATIO", cfg.Tracing.SampleRatio); ratio <= 1 {
		cfg.Tracing.SampleRatio = ratio
	} else {
		e.invalid("GROUNDTRACK_TRACING_SAMPLE_RATIO", fmt.Sprint(ratio), cfg.Tracing.SampleRatio)
	}
	return cfg
}

type envReader struct {
	ctx context.Context
	log logging.Logger
}

func (e envReader) invalid(key, raw string, def any) {
	e.log.Warn(e.ctx, "invalid environment value; using default",
		logging.String("key", key), logging.String("value", raw), logging.Any("default", def))
}

func (e envReader) str(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (e envReader) list(key string, def []string) []string {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}

func (e envReader) boolean(key string, def bool) bool {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		e.invalid(key, raw, def)
		return def
	}
	return v
}

func (e envReader) integer(key string, def, least int) int {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < least {
		e.invalid(key, raw, def)
		return def
	}
	return v
}

// float accepts only non-negative values.
func (e envReader) float(key string, def float64) float64 {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		e.invalid(key, raw, def)
		return def
	}
	return v
}

func (e envReader) duration(key string, def time.Duration, allowZero bool) time.Duration {
	raw := e.str(key, "")
	if raw == "" {
		return def
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v < 0 || (v == 0 && !allowZero) {
		e.invalid(key, raw, def)
		return def
	}
	return v
}
