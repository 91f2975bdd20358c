package core

import (
	"iter"
	"math"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/groundtrack/model"
)

// PathSink receives projected path commands. Drawing surfaces implement it.
type PathSink interface {
	MoveTo(x, y float64)
	LineTo(x, y float64)
	ClosePath()
}

// GeoPath streams geographic geometry through a projection into a PathSink.
// Segments are resampled along great circles and cut where they cross the
// antimeridian so no line is drawn across the whole map. Cut rings are closed
// along the map edge so filled polygons keep their area.
type GeoPath struct {
	proj *Projection
}

// NewGeoPath binds a path generator to a projection.
func NewGeoPath(p *Projection) *GeoPath {
	return &GeoPath{proj: p}
}

// Draw emits g into sink. Points are ignored; every other orb geometry type
// is supported, collections recursively.
func (gp *GeoPath) Draw(g orb.Geometry, sink PathSink) {
	switch geom := g.(type) {
	case orb.LineString:
		gp.line(geom, sink, false)
	case orb.MultiLineString:
		for _, ls := range geom {
			gp.line(ls, sink, false)
		}
	case orb.Ring:
		gp.ring(geom, sink)
	case orb.Polygon:
		for _, r := range geom {
			gp.ring(r, sink)
		}
	case orb.MultiPolygon:
		for _, poly := range geom {
			for _, r := range poly {
				gp.ring(r, sink)
			}
		}
	case orb.Collection:
		for _, sub := range geom {
			gp.Draw(sub, sink)
		}
	case orb.Bound:
		gp.Draw(geom.ToPolygon(), sink)
	}
}

// DrawLines emits every line produced by seq.
func (gp *GeoPath) DrawLines(seq iter.Seq[orb.LineString], sink PathSink) {
	for ls := range seq {
		gp.line(ls, sink, false)
	}
}

type lineState struct {
	gp     *GeoPath
	sink   PathSink
	open   bool
	prev   orb.Point
	prevXY model.PixelPoint
	prevV  Vec3
}

func (gp *GeoPath) line(ls orb.LineString, sink PathSink, closed bool) {
	if len(ls) == 0 {
		return
	}
	st := gp.trace(ls, sink)
	if closed && st.open {
		sink.ClosePath()
	}
}

func (gp *GeoPath) trace(ls orb.LineString, sink PathSink) *lineState {
	st := &lineState{gp: gp, sink: sink}
	for i, pt := range ls {
		if i == 0 {
			st.start(pt)
			continue
		}
		st.segment(pt)
	}
	return st
}

// ring draws a closed ring. A ring crossing the antimeridian is cut into
// pieces that each start and end on the map edge; every piece is closed by
// walking the edge back to its start, through the enclosed pole when its ends
// lie on opposite edges.
func (gp *GeoPath) ring(r orb.Ring, sink PathSink) {
	pieces := cutRing(r)
	if pieces == nil {
		gp.line(orb.LineString(r), sink, true)
		return
	}
	pole := enclosedPole(r)
	for _, piece := range pieces {
		st := gp.trace(piece, sink)
		if !st.open {
			continue
		}
		gp.walkEdge(sink, piece[len(piece)-1], piece[0], pole)
		sink.ClosePath()
	}
}

// edgeStep is the latitude spacing, in degrees, of points emitted along the
// curved map edge.
const edgeStep = 2.0

func (gp *GeoPath) walkEdge(sink PathSink, from, to orb.Point, pole float64) {
	if from[0] == to[0] {
		gp.meridian(sink, from[0], from[1], to[1])
		return
	}
	gp.meridian(sink, from[0], from[1], pole)
	if xy, ok := gp.proj.Project(model.GeoPoint{Longitude: to[0], Latitude: pole}); ok {
		sink.LineTo(xy.X, xy.Y)
	}
	gp.meridian(sink, to[0], pole, to[1])
}

// meridian emits points along the given edge meridian, excluding lat0.
func (gp *GeoPath) meridian(sink PathSink, lon, lat0, lat1 float64) {
	n := int(math.Ceil(math.Abs(lat1-lat0) / edgeStep))
	for i := 1; i <= n; i++ {
		lat := lat0 + (lat1-lat0)*float64(i)/float64(n)
		if xy, ok := gp.proj.Project(model.GeoPoint{Longitude: lon, Latitude: lat}); ok {
			sink.LineTo(xy.X, xy.Y)
		}
	}
}

func crossesAntimeridian(a, b orb.Point) bool {
	return math.Abs(b[0]-a[0]) > 180
}

// antimeridianCrossing returns the edge longitude on a's side and the
// latitude where segment ab meets it.
func antimeridianCrossing(a, b orb.Point) (edge, lat float64) {
	edge = 180
	unwrapped := b[0] + 360
	if a[0] < 0 {
		edge = -180
		unwrapped = b[0] - 360
	}
	d := unwrapped - a[0]
	if d == 0 {
		// a sits on the edge and b is the same meridian seen from the other side.
		return edge, a[1]
	}
	return edge, a[1] + (edge-a[0])/d*(b[1]-a[1])
}

// cutRing splits r at every antimeridian crossing. It returns nil when r
// never crosses. Each piece begins and ends on an edge meridian.
func cutRing(r orb.Ring) []orb.LineString {
	if len(r) < 2 {
		return nil
	}
	pts := orb.LineString(r)
	if !r.Closed() {
		pts = append(orb.LineString{}, r...)
		pts = append(pts, r[0])
	}
	first := -1
	for i := 0; i+1 < len(pts); i++ {
		if crossesAntimeridian(pts[i], pts[i+1]) {
			first = i
			break
		}
	}
	if first < 0 {
		return nil
	}

	m := len(pts) - 1
	var pieces []orb.LineString
	var cur orb.LineString
	for k := 0; k < m; k++ {
		i := (first + k) % m
		a, b := pts[i], pts[i+1]
		if crossesAntimeridian(a, b) {
			edge, lat := antimeridianCrossing(a, b)
			if cur != nil {
				pieces = append(pieces, append(cur, orb.Point{edge, lat}))
			}
			cur = orb.LineString{{-edge, lat}}
		}
		cur = append(cur, b)
	}
	edge, lat := antimeridianCrossing(pts[first], pts[first+1])
	return append(pieces, append(cur, orb.Point{edge, lat}))
}

// enclosedPole picks the pole a ring wrapping the globe encloses: the one on
// the hemisphere holding most of its vertices.
func enclosedPole(r orb.Ring) float64 {
	var sum float64
	for _, pt := range r {
		sum += pt[1]
	}
	if sum < 0 {
		return -90
	}
	return 90
}

func (st *lineState) start(pt orb.Point) {
	xy, ok := st.gp.proj.Project(model.GeoPoint{Longitude: pt[0], Latitude: pt[1]})
	st.open = ok
	st.prev = pt
	if !ok {
		return
	}
	st.prevXY = xy
	st.prevV = cartesian(pt[0]*radians, pt[1]*radians)
	st.sink.MoveTo(xy.X, xy.Y)
}

func (st *lineState) segment(pt orb.Point) {
	if !st.open {
		st.start(pt)
		return
	}

	if crossesAntimeridian(st.prev, pt) {
		// Crossing the antimeridian: finish on this side, resume on the other.
		edge, lat := antimeridianCrossing(st.prev, pt)
		st.lineTo(orb.Point{edge, lat})
		st.start(orb.Point{-edge, lat})
		if !st.open {
			return
		}
	}
	st.lineTo(pt)
}

func (st *lineState) lineTo(pt orb.Point) {
	xy, ok := st.gp.proj.Project(model.GeoPoint{Longitude: pt[0], Latitude: pt[1]})
	if !ok {
		st.open = false
		st.prev = pt
		return
	}
	v := cartesian(pt[0]*radians, pt[1]*radians)
	st.gp.proj.resample(st.prevXY, xy, st.prevV, v, maxResampleDepth, func(p model.PixelPoint) {
		st.sink.LineTo(p.X, p.Y)
	})
	st.prev = pt
	st.prevXY = xy
	st.prevV = v
}
