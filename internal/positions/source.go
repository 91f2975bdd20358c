// Package positions provides satellite position series: a client for the
// remote position service, a TTL cache in front of any source, and a local
// SGP4 propagator over the satellite catalogue.
package positions

import (
	"context"
	"fmt"
	"time"

	"github.com/signalsfoundry/groundtrack/model"
)

// Query asks for the position series of one satellite as seen from an
// observer, one sample per second for EndTimeSeconds seconds.
type Query struct {
	SatelliteID       int
	ObserverLatitude  float64
	ObserverLongitude float64
	ObserverElevation float64
	EndTimeSeconds    int
	APIKey            string
}

// QueryFor builds the query for satellite id from the observer settings.
func QueryFor(id int, obs model.Observer, apiKey string) Query {
	return Query{
		SatelliteID:       id,
		ObserverLatitude:  obs.Latitude,
		ObserverLongitude: obs.Longitude,
		ObserverElevation: obs.Elevation,
		EndTimeSeconds:    obs.EndTimeSeconds(),
		APIKey:            apiKey,
	}
}

func (q Query) String() string {
	return fmt.Sprintf("sat=%d obs=(%g,%g,%g) end=%ds", q.SatelliteID,
		q.ObserverLatitude, q.ObserverLongitude, q.ObserverElevation, q.EndTimeSeconds)
}

// Source fetches a position series. Implementations wrap every failure with
// model.ErrDataFetch.
type Source interface {
	Positions(ctx context.Context, q Query) (model.SatelliteTrack, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, q Query) (model.SatelliteTrack, error)

// Positions calls f.
func (f SourceFunc) Positions(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	return f(ctx, q)
}

// Metrics receives fetch outcomes. *observability.FetchCollector implements
// it.
type Metrics interface {
	ObserveFetch(source, outcome string, d time.Duration)
	AddSamples(n int)
}

// Fetch outcomes reported to Metrics.
const (
	outcomeOK       = "ok"
	outcomeError    = "error"
	outcomeCacheHit = "cache_hit"
)

type noopMetrics struct{}

func (noopMetrics) ObserveFetch(string, string, time.Duration) {}
func (noopMetrics) AddSamples(int)                             {}
