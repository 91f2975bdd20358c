package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Fetch outcomes recorded by FetchCollector.ObserveFetch.
const (
	FetchOK       = "ok"
	FetchError    = "error"
	FetchCacheHit = "cache_hit"
)

// FetchCollector exposes metrics for the external data sources: position
// series and land geometry.
type FetchCollector struct {
	gatherer prometheus.Gatherer

	Requests        *prometheus.CounterVec
	Duration        *prometheus.HistogramVec
	SamplesReceived prometheus.Counter
}

// NewFetchCollector registers fetch metrics against the provided registerer.
func NewFetchCollector(reg prometheus.Registerer) (*FetchCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "source_fetches_total",
		Help: "Data source fetches, labeled by source and outcome.",
	}, []string{"source", "outcome"}), "source_fetches_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "source_fetch_duration_seconds",
		Help:    "Duration of data source fetches in seconds.",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
	}, []string{"source"}), "source_fetch_duration_seconds")
	if err != nil {
		return nil, err
	}

	samples := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "position_samples_received_total",
		Help: "Position samples received across all fetched tracks.",
	})
	samples, err = registerCounter(reg, samples, "position_samples_received_total")
	if err != nil {
		return nil, err
	}

	return &FetchCollector{
		gatherer:        gatherer,
		Requests:        requests,
		Duration:        durations,
		SamplesReceived: samples,
	}, nil
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *FetchCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFetch records one fetch against source.
func (c *FetchCollector) ObserveFetch(source, outcome string, d time.Duration) {
	if c == nil {
		return
	}
	if c.Requests != nil {
		c.Requests.WithLabelValues(source, outcome).Inc()
	}
	if c.Duration != nil && outcome != FetchCacheHit {
		c.Duration.WithLabelValues(source).Observe(d.Seconds())
	}
}

// AddSamples counts received position samples.
func (c *FetchCollector) AddSamples(n int) {
	if c == nil || c.SamplesReceived == nil || n <= 0 {
		return
	}
	c.SamplesReceived.Add(float64(n))
}
