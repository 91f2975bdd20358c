package positions

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/kb"
	"github.com/signalsfoundry/groundtrack/model"
	"github.com/signalsfoundry/groundtrack/timectrl"
)

// SGP4Source propagates catalogue element sets locally instead of calling
// the remote service. Samples the propagator cannot produce have no
// coordinates.
type SGP4Source struct {
	catalog *kb.KnowledgeBase
	clock   timectrl.Clock
	metrics Metrics
}

// NewSGP4Source builds a source over catalog. A nil clock means wall time.
func NewSGP4Source(catalog *kb.KnowledgeBase, clock timectrl.Clock, m Metrics) *SGP4Source {
	if clock == nil {
		clock = timectrl.SystemClock{}
	}
	if m == nil {
		m = noopMetrics{}
	}
	return &SGP4Source{catalog: catalog, clock: clock, metrics: m}
}

// Positions implements Source.
func (s *SGP4Source) Positions(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	ctx, span := otel.Tracer("groundtrack/positions").Start(ctx, "positions.Propagate")
	defer span.End()
	span.SetAttributes(attribute.Int("satellite.id", q.SatelliteID))

	start := time.Now()
	track, err := s.propagate(ctx, q)
	if err != nil {
		s.metrics.ObserveFetch("sgp4", outcomeError, time.Since(start))
		span.RecordError(err)
		return model.SatelliteTrack{}, fmt.Errorf("%w: satellite %d: %v", model.ErrDataFetch, q.SatelliteID, err)
	}
	s.metrics.ObserveFetch("sgp4", outcomeOK, time.Since(start))
	s.metrics.AddSamples(len(track.Positions))
	return track, nil
}

func (s *SGP4Source) propagate(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	entry, ok := s.catalog.GetSatellite(q.SatelliteID)
	if !ok {
		return model.SatelliteTrack{}, kb.ErrSatelliteNotFound
	}
	if entry.Line1 == "" || entry.Line2 == "" {
		return model.SatelliteTrack{}, fmt.Errorf("no element set for %s", entry.Name)
	}
	if q.EndTimeSeconds <= 0 {
		return model.SatelliteTrack{}, fmt.Errorf("end time must be positive, got %d", q.EndTimeSeconds)
	}
	gt, err := core.NewGroundTrackModel(entry.Line1, entry.Line2)
	if err != nil {
		return model.SatelliteTrack{}, err
	}

	obs := model.Observer{
		Latitude:  q.ObserverLatitude,
		Longitude: q.ObserverLongitude,
		Elevation: q.ObserverElevation,
	}
	t0 := s.clock.Now().Truncate(time.Second)
	positions := make([]model.PositionSample, q.EndTimeSeconds)
	for i := range positions {
		if i%600 == 0 {
			if err := ctx.Err(); err != nil {
				return model.SatelliteTrack{}, err
			}
		}
		at := t0.Add(time.Duration(i) * time.Second)
		sample := model.PositionSample{Timestamp: at.Unix()}
		if sp, ok := gt.At(at, obs); ok {
			lat, lon := sp.Latitude, sp.Longitude
			sample.SatLatitude = &lat
			sample.SatLongitude = &lon
			sample.SatAltitude = sp.AltitudeKm
			sample.Azimuth = sp.Azimuth
			sample.Elevation = sp.Elevation
		}
		positions[i] = sample
	}
	return model.SatelliteTrack{
		Info:      model.SatelliteInfo{ID: entry.ID, Name: entry.Name},
		Positions: positions,
	}, nil
}
