// Package httpapi exposes the tracking session over HTTP: selections, the UI
// state (polled or streamed), the satellite catalogue and both drawing
// surfaces as PNG.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/internal/session"
	"github.com/signalsfoundry/groundtrack/kb"
)

// Deps are the collaborators the router serves from. Catalog, Metrics,
// Observer and Ready may be nil.
type Deps struct {
	Controller *session.Controller
	Catalog    *kb.KnowledgeBase
	Base       *render.Canvas
	Overlay    *render.Canvas

	// Ready reports whether the base map has been drawn.
	Ready func() bool
	// Metrics serves /metrics when set.
	Metrics  http.Handler
	Observer RequestObserver
	// StreamKeepalive is the comment interval on /api/state/stream;
	// DefaultStreamKeepalive when zero.
	StreamKeepalive time.Duration

	CORSOrigins []string
	Log         logging.Logger
}

// NewRouter builds the chi router for d.
func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logging.Noop()
	}
	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	h := &handlers{deps: d}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(d.Log))
	r.Use(instrument(d.Observer))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.health)
	if d.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", d.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/selection", h.selection)
		r.Get("/state", h.state)
		r.Get("/state/stream", h.stream)
		r.Get("/satellites", h.satellites)
		r.Get("/satellites/{id}", h.satellite)
		if d.Catalog != nil {
			r.Post("/satellites", h.addSatellite)
			r.Delete("/satellites/{id}", h.removeSatellite)
		}
	})

	r.Get("/map.png", h.frame)
	r.Get("/map/base.png", h.layer(d.Base))
	r.Get("/map/overlay.png", h.layer(d.Overlay))

	return r
}
