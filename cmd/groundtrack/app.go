package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/internal/basemap"
	"github.com/signalsfoundry/groundtrack/internal/config"
	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/observability"
	"github.com/signalsfoundry/groundtrack/internal/palette"
	"github.com/signalsfoundry/groundtrack/internal/positions"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/internal/track"
	"github.com/signalsfoundry/groundtrack/kb"
	"github.com/signalsfoundry/groundtrack/timectrl"
)

// app is the wired tracking view shared by serve and render.
type app struct {
	cfg config.Config
	log logging.Logger

	animMetrics  *observability.AnimationCollector
	fetchMetrics *observability.FetchCollector

	base     *render.Canvas
	overlay  *render.Canvas
	catalog  *kb.KnowledgeBase
	loader   *basemap.Loader
	renderer *basemap.Renderer
	anim     *track.Animator
	ctrl     *session.Controller
}

// clockScheduler is what drives an animation: ticks and the time they see.
type clockScheduler interface {
	timectrl.Scheduler
	timectrl.Clock
}

func newApp(ctx context.Context, cfg config.Config, log logging.Logger, reg prometheus.Registerer, sched clockScheduler) (*app, error) {
	a := &app{cfg: cfg, log: log, catalog: kb.NewKnowledgeBase()}

	var err error
	if a.animMetrics, err = observability.NewAnimationCollector(reg); err != nil {
		return nil, fmt.Errorf("animation metrics: %w", err)
	}
	if a.fetchMetrics, err = observability.NewFetchCollector(reg); err != nil {
		return nil, fmt.Errorf("fetch metrics: %w", err)
	}
	if a.base, err = render.NewCanvas(core.CanvasWidth, core.CanvasHeight); err != nil {
		return nil, err
	}
	if a.overlay, err = render.NewCanvas(core.CanvasWidth, core.CanvasHeight); err != nil {
		return nil, err
	}

	if cfg.CatalogPath != "" {
		if err := a.loadCatalog(ctx, cfg.CatalogPath); err != nil {
			return nil, err
		}
	}

	source, err := a.newSource(sched)
	if err != nil {
		return nil, err
	}

	proj := core.NewProjection(core.DefaultProjectionConfig())
	a.loader = &basemap.Loader{
		Source:  cfg.WorldMapSource,
		Object:  basemap.DefaultObject,
		Client:  &http.Client{Timeout: cfg.RequestTimeout},
		Log:     log,
		Metrics: a.fetchMetrics,
	}
	a.renderer = basemap.NewRenderer(a.base, proj, basemap.WithLogger(log))

	tc := track.DefaultConfig()
	tc.TickInterval = cfg.TickInterval
	tc.FrameStride = cfg.FrameStride
	tc.Speedup = cfg.Speedup
	tc.TimeLayout = cfg.TimeLayout
	a.anim = track.NewAnimator(a.overlay, proj, palette.NewAssigner(), sched,
		track.WithConfig(tc),
		track.WithClock(sched),
		track.WithLogger(log),
		track.WithMetrics(a.animMetrics),
	)
	a.ctrl = session.NewController(source, a.anim,
		session.WithAPIKey(cfg.APIKey),
		session.WithMaxDuration(cfg.MaxDurationMinutes),
		session.WithLogger(log),
		session.WithStateObserver(a.animMetrics),
	)
	return a, nil
}

func (a *app) loadCatalog(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalogue: %w", err)
	}
	defer f.Close()

	n, err := a.catalog.LoadTLE(f)
	if err != nil {
		return fmt.Errorf("load catalogue %s: %w", path, err)
	}
	a.log.Info(ctx, "satellite catalogue loaded", logging.String("path", path), logging.Int("satellites", n))
	return nil
}

// newSource builds the configured position source behind the TTL cache.
func (a *app) newSource(clock timectrl.Clock) (positions.Source, error) {
	var next positions.Source
	switch a.cfg.PositionSource {
	case config.SourceSGP4:
		if a.catalog.Len() == 0 {
			return nil, fmt.Errorf("position source %q needs a TLE catalogue", config.SourceSGP4)
		}
		next = positions.NewSGP4Source(a.catalog, clock, a.fetchMetrics)
	case config.SourceRemote, "":
		next = positions.NewRESTClient(positions.RESTConfig{
			BaseURL:       a.cfg.APIBaseURL,
			PositionsPath: a.cfg.PositionsPath,
			Timeout:       a.cfg.RequestTimeout,
			RatePerSecond: a.cfg.RateLimit,
			Burst:         a.cfg.RateBurst,
		}, positions.WithLogger(a.log), positions.WithMetrics(a.fetchMetrics))
	default:
		return nil, fmt.Errorf("unknown position source %q", a.cfg.PositionSource)
	}
	return positions.NewCachedSource(next, a.cfg.CacheTTL, a.fetchMetrics), nil
}

// loadBaseMap draws the land once. Failures leave the map blank.
func (a *app) loadBaseMap(ctx context.Context) bool {
	if err := basemap.LoadAndRender(ctx, a.loader, a.renderer); err != nil {
		return false
	}
	a.log.Info(ctx, "base map rendered", logging.Int("features", a.renderer.Features()))
	return true
}
