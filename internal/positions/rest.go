package positions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/model"
)

// DefaultPositionsPath is the position endpoint below {base}/api/.
const DefaultPositionsPath = "rest/v1/satellite/positions"

// RESTConfig configures a RESTClient.
type RESTConfig struct {
	BaseURL       string
	PositionsPath string
	Timeout       time.Duration
	// RatePerSecond caps outbound requests; zero or less disables the cap.
	RatePerSecond float64
	Burst         int
}

// RESTClient fetches position series from the remote position service.
type RESTClient struct {
	base    string
	path    string
	client  *http.Client
	limiter *rate.Limiter
	log     logging.Logger
	metrics Metrics
}

// RESTOption customises a RESTClient.
type RESTOption func(*RESTClient)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(c *http.Client) RESTOption {
	return func(r *RESTClient) { r.client = c }
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) RESTOption {
	return func(r *RESTClient) {
		if l != nil {
			r.log = l
		}
	}
}

// WithMetrics attaches a metrics sink.
func WithMetrics(m Metrics) RESTOption {
	return func(r *RESTClient) {
		if m != nil {
			r.metrics = m
		}
	}
}

// NewRESTClient builds a client for cfg.
func NewRESTClient(cfg RESTConfig, opts ...RESTOption) *RESTClient {
	path := strings.Trim(cfg.PositionsPath, "/")
	if path == "" {
		path = DefaultPositionsPath
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limit := rate.Inf
	burst := cfg.Burst
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if burst < 1 {
		burst = 1
	}
	r := &RESTClient{
		base:    strings.TrimRight(cfg.BaseURL, "/"),
		path:    path,
		client:  &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		log:     logging.Noop(),
		metrics: noopMetrics{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// URL renders the request URL for q:
// {base}/api/{path}/{id}/{lat}/{lon}/{elev}/{endTime}/&apiKey={key}.
func (r *RESTClient) URL(q Query) string {
	return fmt.Sprintf("%s/api/%s/%d/%s/%s/%s/%d/&apiKey=%s",
		r.base, r.path, q.SatelliteID,
		formatNumber(q.ObserverLatitude),
		formatNumber(q.ObserverLongitude),
		formatNumber(q.ObserverElevation),
		q.EndTimeSeconds, q.APIKey)
}

type positionsPayload struct {
	model.SatelliteTrack
	Error string `json:"error,omitempty"`
}

// Positions implements Source.
func (r *RESTClient) Positions(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	ctx, span := otel.Tracer("groundtrack/positions").Start(ctx, "positions.Fetch")
	defer span.End()
	span.SetAttributes(
		attribute.Int("satellite.id", q.SatelliteID),
		attribute.Int("positions.end_time_seconds", q.EndTimeSeconds),
	)

	start := time.Now()
	track, err := r.fetch(ctx, q)
	if err != nil {
		r.metrics.ObserveFetch("remote", outcomeError, time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logging.FromContext(ctx, r.log).Warn(ctx, "fetch satellite positions failed",
			logging.Source("remote"), logging.SatelliteID(q.SatelliteID), logging.Err(err))
		return model.SatelliteTrack{}, fmt.Errorf("%w: satellite %d: %v", model.ErrDataFetch, q.SatelliteID, err)
	}
	r.metrics.ObserveFetch("remote", outcomeOK, time.Since(start))
	r.metrics.AddSamples(len(track.Positions))
	span.SetAttributes(attribute.Int("positions.samples", len(track.Positions)))
	return track, nil
}

func (r *RESTClient) fetch(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return model.SatelliteTrack{}, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.URL(q), nil)
	if err != nil {
		return model.SatelliteTrack{}, err
	}
	req.Header.Set("Accept", "application/json")
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return model.SatelliteTrack{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return model.SatelliteTrack{}, fmt.Errorf("unexpected status %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var payload positionsPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return model.SatelliteTrack{}, fmt.Errorf("decode positions: %w", err)
	}
	if payload.Error != "" {
		return model.SatelliteTrack{}, fmt.Errorf("service error: %s", payload.Error)
	}
	return payload.SatelliteTrack, nil
}

// formatNumber prints f the shortest way that round-trips, as a browser
// would when building the URL.
func formatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
