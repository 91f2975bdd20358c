package observability

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/groundtrack/model"
)

// Session outcomes recorded by AnimationCollector.ObserveSession.
const (
	SessionStarted   = "started"
	SessionRejected  = "rejected"
	SessionInvalid   = "invalid"
	SessionFinished  = "finished"
	SessionCancelled = "cancelled"
)

// AnimationCollector bundles Prometheus metrics for the tracking animation
// and the ops gRPC surface, and provides helpers to wire them into gRPC
// servers and HTTP handlers.
type AnimationCollector struct {
	gatherer prometheus.Gatherer

	RPCRequests   *prometheus.CounterVec
	RPCDurations  *prometheus.HistogramVec
	HTTPRequests  *prometheus.CounterVec
	HTTPDurations *prometheus.HistogramVec

	Ticks          prometheus.Counter
	MarkersDrawn   prometheus.Counter
	MarkersSkipped prometheus.Counter
	Sessions       *prometheus.CounterVec
	LoadingState   prometheus.Gauge
	ActiveTracks   prometheus.Gauge
}

// NewAnimationCollector registers animation metrics against the provided
// registerer, defaulting to the global Prometheus registry when nil.
func NewAnimationCollector(reg prometheus.Registerer) (*AnimationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ops_rpc_requests_total",
		Help: "Total number of handled ops gRPC calls, labeled by service, method, and gRPC status code.",
	}, []string{"service", "method", "code"}), "ops_rpc_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ops_rpc_duration_seconds",
		Help:    "Ops gRPC latency in seconds.",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"service", "method"}), "ops_rpc_duration_seconds")
	if err != nil {
		return nil, err
	}

	httpRequests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests, labeled by route pattern, method, and status code.",
	}, []string{"route", "method", "code"}), "http_requests_total")
	if err != nil {
		return nil, err
	}
	httpDurations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method"}), "http_request_duration_seconds")
	if err != nil {
		return nil, err
	}

	ticks, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animation_ticks_total",
		Help: "Animation ticks processed, including the final tick of each session.",
	}), "animation_ticks_total")
	if err != nil {
		return nil, err
	}
	drawn, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animation_markers_drawn_total",
		Help: "Satellite markers drawn on the overlay.",
	}), "animation_markers_drawn_total")
	if err != nil {
		return nil, err
	}
	skipped, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "animation_markers_skipped_total",
		Help: "Satellite samples skipped because a coordinate was missing or unplottable.",
	}), "animation_markers_skipped_total")
	if err != nil {
		return nil, err
	}
	sessions, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "animation_sessions_total",
		Help: "Animation session lifecycle events, labeled by outcome.",
	}, []string{"outcome"}), "animation_sessions_total")
	if err != nil {
		return nil, err
	}
	state, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "tracking_loading_state",
		Help: "Current loading state: 0 idle, 1 loading, 2 drawing.",
	}), "tracking_loading_state")
	if err != nil {
		return nil, err
	}
	tracks, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "animation_active_tracks",
		Help: "Number of satellite tracks in the running animation session.",
	}), "animation_active_tracks")
	if err != nil {
		return nil, err
	}

	return &AnimationCollector{
		gatherer:       gatherer,
		RPCRequests:    requests,
		RPCDurations:   durations,
		HTTPRequests:   httpRequests,
		HTTPDurations:  httpDurations,
		Ticks:          ticks,
		MarkersDrawn:   drawn,
		MarkersSkipped: skipped,
		Sessions:       sessions,
		LoadingState:   state,
		ActiveTracks:   tracks,
	}, nil
}

// ObserveHTTP records one served HTTP request under its route pattern.
func (c *AnimationCollector) ObserveHTTP(route, method string, code int, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	c.HTTPDurations.WithLabelValues(route, method).Observe(d.Seconds())
}

// UnaryServerInterceptor records request counts and durations for unary RPCs.
func (c *AnimationCollector) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req interface{}, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (interface{}, error) {
		start := time.Now()
		resp, err := handler(ctx, req)

		if c == nil {
			return resp, err
		}

		fullMethod := ""
		if info != nil {
			fullMethod = info.FullMethod
		}
		service, method := SplitMethod(fullMethod)
		code := status.Code(err).String()

		if c.RPCRequests != nil {
			c.RPCRequests.WithLabelValues(service, method, code).Inc()
		}
		if c.RPCDurations != nil {
			c.RPCDurations.WithLabelValues(service, method).Observe(time.Since(start).Seconds())
		}

		return resp, err
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *AnimationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *AnimationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveTick counts one animation tick.
func (c *AnimationCollector) ObserveTick() {
	if c == nil || c.Ticks == nil {
		return
	}
	c.Ticks.Inc()
}

// ObserveMarker counts a drawn or skipped satellite marker.
func (c *AnimationCollector) ObserveMarker(drawn bool) {
	if c == nil {
		return
	}
	if drawn {
		if c.MarkersDrawn != nil {
			c.MarkersDrawn.Inc()
		}
		return
	}
	if c.MarkersSkipped != nil {
		c.MarkersSkipped.Inc()
	}
}

// ObserveSession counts a session lifecycle event and keeps the active track
// gauge in step: tracks is the session's track count for "started", ignored
// otherwise.
func (c *AnimationCollector) ObserveSession(outcome string, tracks int) {
	if c == nil {
		return
	}
	if c.Sessions != nil {
		c.Sessions.WithLabelValues(outcome).Inc()
	}
	if c.ActiveTracks == nil {
		return
	}
	switch outcome {
	case SessionStarted:
		c.ActiveTracks.Set(float64(tracks))
	case SessionFinished, SessionCancelled:
		c.ActiveTracks.Set(0)
	}
}

// SetLoadingState mirrors the controller's loading state.
func (c *AnimationCollector) SetLoadingState(s model.LoadingState) {
	if c == nil || c.LoadingState == nil {
		return
	}
	c.LoadingState.Set(float64(s))
}

// SplitMethod parses a fully-qualified gRPC method name into service and method
// components. It tolerates empty strings and partial paths, returning
// "unknown"/"unknown" when parsing fails.
func SplitMethod(fullMethod string) (string, string) {
	if fullMethod == "" {
		return "unknown", "unknown"
	}
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	parts := strings.Split(fullMethod, "/")
	if len(parts) < 2 {
		return "unknown", "unknown"
	}
	service := parts[len(parts)-2]
	method := parts[len(parts)-1]
	if dot := strings.LastIndex(service, "."); dot >= 0 && dot+1 < len(service) {
		service = service[dot+1:]
	}
	if service == "" {
		service = "unknown"
	}
	if method == "" {
		method = "unknown"
	}
	return service, method
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}
