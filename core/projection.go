package core

import (
	"math"

	"github.com/signalsfoundry/groundtrack/model"
)

const (
	// CanvasWidth and CanvasHeight are the fixed logical dimensions of both
	// drawing surfaces.
	CanvasWidth  = 960
	CanvasHeight = 600

	defaultScale     = 170
	defaultPrecision = 0.1

	// Resampling limits, matching the usual adaptive resampling of
	// projected great-circle segments.
	maxResampleDepth = 16
)

var cosMinDistance = math.Cos(30 * radians)

// ProjectionConfig fixes the projection for the life of a map.
type ProjectionConfig struct {
	Scale      float64
	TranslateX float64
	TranslateY float64
	// Precision is the resampling tolerance in canvas units.
	Precision float64
}

// DefaultProjectionConfig centres the map on the 960x600 canvas.
func DefaultProjectionConfig() ProjectionConfig {
	return ProjectionConfig{
		Scale:      defaultScale,
		TranslateX: CanvasWidth / 2,
		TranslateY: CanvasHeight / 2,
		Precision:  defaultPrecision,
	}
}

// Projection is a Kavrayskiy VII world projection. It is immutable once
// built, so Project is safe for concurrent use.
type Projection struct {
	cfg    ProjectionConfig
	delta2 float64
}

// NewProjection builds a projection. Zero fields fall back to the defaults.
func NewProjection(cfg ProjectionConfig) *Projection {
	def := DefaultProjectionConfig()
	if cfg.Scale == 0 {
		cfg.Scale = def.Scale
	}
	if cfg.TranslateX == 0 && cfg.TranslateY == 0 {
		cfg.TranslateX, cfg.TranslateY = def.TranslateX, def.TranslateY
	}
	if cfg.Precision <= 0 {
		cfg.Precision = def.Precision
	}
	return &Projection{cfg: cfg, delta2: cfg.Precision * cfg.Precision}
}

// Config returns the configuration the projection was built with.
func (p *Projection) Config() ProjectionConfig { return p.cfg }

// Project maps a geographic point to canvas coordinates. ok is false when the
// point cannot be plotted; callers skip such points.
func (p *Projection) Project(pt model.GeoPoint) (model.PixelPoint, bool) {
	if !finite(pt.Longitude) || !finite(pt.Latitude) {
		return model.PixelPoint{}, false
	}
	if math.Abs(pt.Latitude) > 90 || math.Abs(pt.Longitude) > 180 {
		return model.PixelPoint{}, false
	}
	return p.projectRadians(pt.Longitude*radians, pt.Latitude*radians)
}

func (p *Projection) projectRadians(lambda, phi float64) (model.PixelPoint, bool) {
	x, y := kavrayskiy7(lambda, phi)
	px := p.cfg.TranslateX + p.cfg.Scale*x
	py := p.cfg.TranslateY - p.cfg.Scale*y
	if !finite(px) || !finite(py) {
		return model.PixelPoint{}, false
	}
	return model.PixelPoint{X: px, Y: py}, true
}

func kavrayskiy7(lambda, phi float64) (float64, float64) {
	return 3 * lambda / (2 * math.Pi) * math.Sqrt(math.Pi*math.Pi/3-phi*phi), phi
}

// Graticule returns the default graticule. A fresh value is returned on each
// call; its sequences are regenerated whenever they are ranged over.
func (p *Projection) Graticule() Graticule {
	return DefaultGraticule()
}

// resample emits the projected points strictly between a and b followed by b
// itself, subdividing along the great circle until the projected polyline is
// within the configured precision.
func (p *Projection) resample(a, b model.PixelPoint, va, vb Vec3, depth int, emit func(model.PixelPoint)) {
	p.resampleInner(a, b, va, vb, depth, emit)
	emit(b)
}

func (p *Projection) resampleInner(a, b model.PixelPoint, va, vb Vec3, depth int, emit func(model.PixelPoint)) {
	dx := b.X - a.X
	dy := b.Y - a.Y
	d2 := dx*dx + dy*dy
	if d2 <= 4*p.delta2 || depth <= 0 {
		return
	}

	mid := va.Add(vb).Unit()
	if mid.Norm() == 0 {
		return
	}
	lambda, phi := spherical(mid)
	m, ok := p.projectRadians(lambda, phi)
	if !ok {
		return
	}

	dx2 := m.X - a.X
	dy2 := m.Y - a.Y
	dz := dy*dx2 - dx*dy2
	if dz*dz/d2 > p.delta2 ||
		math.Abs((dx*dx2+dy*dy2)/d2-0.5) > 0.3 ||
		va.Dot(vb) < cosMinDistance {
		depth--
		p.resampleInner(a, m, va, mid, depth, emit)
		emit(m)
		p.resampleInner(m, b, mid, vb, depth, emit)
	}
}
