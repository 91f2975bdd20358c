// Package basemap draws the static world map: land polygons and the
// graticule, projected once onto the base surface.
package basemap

import (
	"context"
	"errors"
	"image/color"
	"sync"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/internal/logging"
	"github.com/signalsfoundry/groundtrack/internal/render"
)

// ErrAlreadyRendered is returned when Render is called a second time.
var ErrAlreadyRendered = errors.New("base map already rendered")

// Style controls how land and the graticule are painted.
type Style struct {
	LandAlpha       float64
	LandFill        color.Color
	LandStroke      color.Color
	GraticuleStroke color.Color
	GraticuleWidth  float64
	OutlineWidth    float64
}

// DefaultStyle is the light-blue land on a faint grey grid.
func DefaultStyle() Style {
	return Style{
		LandAlpha:       0.7,
		LandFill:        render.MustHex("#B3DDEF"),
		LandStroke:      render.MustHex("#000000"),
		GraticuleStroke: render.RGBA(220, 220, 220, 0.1),
		GraticuleWidth:  0.1,
		OutlineWidth:    0.5,
	}
}

// Renderer paints the base map exactly once.
type Renderer struct {
	mu       sync.Mutex
	surface  render.Surface
	path     *core.GeoPath
	grid     core.Graticule
	style    Style
	log      logging.Logger
	rendered bool
	features int
}

// Option customises a Renderer.
type Option func(*Renderer)

// WithStyle overrides DefaultStyle.
func WithStyle(s Style) Option {
	return func(r *Renderer) { r.style = s }
}

// WithLogger attaches a logger.
func WithLogger(l logging.Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.log = l
		}
	}
}

// NewRenderer binds a renderer to the base surface and projection.
func NewRenderer(surface render.Surface, proj *core.Projection, opts ...Option) *Renderer {
	r := &Renderer{
		surface: surface,
		path:    core.NewGeoPath(proj),
		grid:    proj.Graticule(),
		style:   DefaultStyle(),
		log:     logging.Noop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render draws every land feature, each followed by the graticule grid and
// its outline. A second call draws nothing and returns ErrAlreadyRendered.
func (r *Renderer) Render(land []orb.Geometry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rendered {
		return ErrAlreadyRendered
	}
	r.rendered = true

	s := r.surface
	render.Atomically(s, func() {
		for _, feature := range land {
			if feature == nil {
				continue
			}
			s.SetFillColor(r.style.LandFill)
			s.SetStrokeColor(r.style.LandStroke)
			s.SetGlobalAlpha(r.style.LandAlpha)
			s.BeginPath()
			r.path.Draw(feature, s)
			s.Fill()
			s.Stroke()

			s.SetStrokeColor(r.style.GraticuleStroke)
			s.BeginPath()
			r.path.DrawLines(r.grid.Lines(), s)
			s.SetLineWidth(r.style.GraticuleWidth)
			s.Stroke()

			s.BeginPath()
			s.SetLineWidth(r.style.OutlineWidth)
			r.path.Draw(r.grid.Outline(), s)
			s.Stroke()

			r.features++
		}
	})

	r.log.Info(context.Background(), "base map rendered", logging.Int("features", r.features))
	return nil
}

// Rendered reports whether Render has run.
func (r *Renderer) Rendered() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rendered
}

// Features is the number of land features drawn.
func (r *Renderer) Features() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.features
}
