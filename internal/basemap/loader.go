package basemap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/model"
)

// DefaultObject is the TopoJSON object holding country shapes in the
// world atlas files.
const DefaultObject = "countries"

// FetchObserver receives fetch outcomes. *observability.FetchCollector
// implements it.
type FetchObserver interface {
	ObserveFetch(source, outcome string, d time.Duration)
}

// Loader obtains land geometry from a local file or an http(s) URL. The
// document may be a TopoJSON topology or a GeoJSON FeatureCollection.
type Loader struct {
	Source  string
	Object  string
	Client  *http.Client
	Log     logging.Logger
	Metrics FetchObserver
}

// Load fetches and decodes the land features. Every failure wraps
// model.ErrDataFetch.
func (l *Loader) Load(ctx context.Context) ([]orb.Geometry, error) {
	ctx, span := otel.Tracer("groundtrack/basemap").Start(ctx, "basemap.Load")
	defer span.End()
	span.SetAttributes(attribute.String("basemap.source", l.Source))

	start := time.Now()
	land, err := l.load(ctx)
	if l.Metrics != nil {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		l.Metrics.ObserveFetch("land", outcome, time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, fmt.Errorf("%w: land geometry from %s: %v", model.ErrDataFetch, l.Source, err)
	}
	span.SetAttributes(attribute.Int("basemap.features", len(land)))
	return land, nil
}

func (l *Loader) load(ctx context.Context) ([]orb.Geometry, error) {
	if l.Source == "" {
		return nil, fmt.Errorf("no source configured")
	}
	data, err := l.read(ctx)
	if err != nil {
		return nil, err
	}
	object := l.Object
	if object == "" {
		object = DefaultObject
	}
	return Decode(data, object)
}

func (l *Loader) read(ctx context.Context) ([]byte, error) {
	if !strings.HasPrefix(l.Source, "http://") && !strings.HasPrefix(l.Source, "https://") {
		return os.ReadFile(l.Source)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.Source, nil)
	if err != nil {
		return nil, err
	}
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

// Decode parses a TopoJSON topology (taking the named object) or a GeoJSON
// FeatureCollection into one geometry per feature.
func Decode(data []byte, object string) ([]orb.Geometry, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(bytes.TrimSpace(data), &probe); err != nil {
		return nil, fmt.Errorf("decode land geometry: %w", err)
	}
	var (
		fc  *geojson.FeatureCollection
		err error
	)
	switch probe.Type {
	case "Topology":
		fc, err = decodeTopology(data, object)
	case "FeatureCollection":
		fc, err = geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			err = fmt.Errorf("decode feature collection: %w", err)
		}
	default:
		err = fmt.Errorf("decode land geometry: unsupported document type %q", probe.Type)
	}
	if err != nil {
		return nil, err
	}
	out := make([]orb.Geometry, 0, len(fc.Features))
	for _, f := range fc.Features {
		if f.Geometry != nil {
			out = append(out, f.Geometry)
		}
	}
	return out, nil
}

// LoadAndRender loads land geometry and renders it. A load failure is logged
// and returned; the base map then stays blank.
func LoadAndRender(ctx context.Context, l *Loader, r *Renderer) error {
	log := logging.FromContext(ctx, l.Log)
	land, err := l.Load(ctx)
	if err != nil {
		log.Error(ctx, "fetch world map data failed", logging.Source(l.Source), logging.Err(err))
		return err
	}
	return r.Render(land)
}
