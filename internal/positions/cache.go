package positions

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/signalsfoundry/groundtrack/model"
)

// CachedSource serves repeated queries from memory for a TTL. Failures are
// never cached.
type CachedSource struct {
	next    Source
	cache   *gocache.Cache
	metrics Metrics
}

// NewCachedSource wraps next. A ttl of zero or less returns a source that
// caches nothing.
func NewCachedSource(next Source, ttl time.Duration, m Metrics) *CachedSource {
	if m == nil {
		m = noopMetrics{}
	}
	c := &CachedSource{next: next, metrics: m}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

func cacheKey(q Query) string {
	return fmt.Sprintf("%d/%g/%g/%g/%d", q.SatelliteID,
		q.ObserverLatitude, q.ObserverLongitude, q.ObserverElevation, q.EndTimeSeconds)
}

// Positions implements Source.
func (c *CachedSource) Positions(ctx context.Context, q Query) (model.SatelliteTrack, error) {
	if c.cache == nil {
		return c.next.Positions(ctx, q)
	}
	key := cacheKey(q)
	if v, ok := c.cache.Get(key); ok {
		c.metrics.ObserveFetch("cache", outcomeCacheHit, 0)
		return cloneTrack(v.(model.SatelliteTrack)), nil
	}
	track, err := c.next.Positions(ctx, q)
	if err != nil {
		return model.SatelliteTrack{}, err
	}
	c.cache.SetDefault(key, cloneTrack(track))
	return track, nil
}

// Flush drops every cached series.
func (c *CachedSource) Flush() {
	if c.cache != nil {
		c.cache.Flush()
	}
}

// Len returns the number of cached series.
func (c *CachedSource) Len() int {
	if c.cache == nil {
		return 0
	}
	return c.cache.ItemCount()
}

func cloneTrack(t model.SatelliteTrack) model.SatelliteTrack {
	if t.Positions != nil {
		t.Positions = append([]model.PositionSample(nil), t.Positions...)
	}
	return t
}
