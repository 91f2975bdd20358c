package core

import (
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/groundtrack/model"
)

type pathOp struct {
	kind string
	x, y float64
}

type recordingSink struct {
	ops []pathOp
}

func (r *recordingSink) MoveTo(x, y float64) { r.ops = append(r.ops, pathOp{"M", x, y}) }
func (r *recordingSink) LineTo(x, y float64) { r.ops = append(r.ops, pathOp{"L", x, y}) }
func (r *recordingSink) ClosePath()          { r.ops = append(r.ops, pathOp{kind: "Z"}) }

func (r *recordingSink) count(kind string) int {
	n := 0
	for _, op := range r.ops {
		if op.kind == kind {
			n++
		}
	}
	return n
}

func TestGeoPathPolygonClosesEachRing(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	poly := orb.Polygon{
		{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}},
		{{2, 2}, {4, 2}, {4, 4}, {2, 2}},
	}
	gp.Draw(poly, sink)

	if got := sink.count("M"); got != 2 {
		t.Fatalf("MoveTo count = %d, want 2", got)
	}
	if got := sink.count("Z"); got != 2 {
		t.Fatalf("ClosePath count = %d, want 2", got)
	}
	if sink.ops[0].x != 480 || sink.ops[0].y != 300 {
		t.Fatalf("first point = (%v, %v), want canvas centre", sink.ops[0].x, sink.ops[0].y)
	}
}

func TestGeoPathResamplesLongSegments(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	gp.Draw(orb.LineString{{-100, 60}, {100, 60}}, sink)

	if got := sink.count("L"); got < 10 {
		t.Fatalf("long segment produced %d LineTo commands, want resampling", got)
	}
}

func TestGeoPathCutsAtAntimeridian(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	gp.Draw(orb.LineString{{170, 0}, {-170, 0}}, sink)

	if got := sink.count("M"); got != 2 {
		t.Fatalf("MoveTo count = %d, want 2 (one per side)", got)
	}
	for _, op := range sink.ops {
		if op.kind == "L" && op.x > 480 && op.x < 900 {
			t.Fatalf("segment drawn across the map interior at x=%v", op.x)
		}
	}
}

func TestGeoPathDrawLinesFromGraticule(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	gp.DrawLines(DefaultGraticule().Lines(), sink)

	if got := sink.count("M"); got != 53 {
		t.Fatalf("MoveTo count = %d, want one per graticule line", got)
	}
	if got := sink.count("Z"); got != 0 {
		t.Fatalf("graticule lines must not be closed, got %d ClosePath", got)
	}
}

func TestGeoPathClosesRingCutAtAntimeridian(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	gp.Draw(orb.Polygon{{{170, 60}, {-170, 60}, {-170, 70}, {170, 70}, {170, 60}}}, sink)

	if got := sink.count("M"); got != 2 {
		t.Fatalf("MoveTo count = %d, want one per side", got)
	}
	if got := sink.count("Z"); got != 2 {
		t.Fatalf("ClosePath count = %d, want each piece closed", got)
	}
	for _, op := range sink.ops {
		if op.kind == "Z" {
			continue
		}
		if op.x > 300 && op.x < 660 {
			t.Fatalf("point drawn across the map interior at x=%v", op.x)
		}
	}
}

func TestCutRingPieces(t *testing.T) {
	pieces := cutRing(orb.Ring{{170, 60}, {-170, 60}, {-170, 70}, {170, 70}, {170, 60}})
	if len(pieces) != 2 {
		t.Fatalf("pieces = %d, want 2", len(pieces))
	}
	for _, p := range pieces {
		first, last := p[0], p[len(p)-1]
		if math.Abs(first[0]) != 180 || first[0] != last[0] {
			t.Fatalf("piece %v must start and end on the same edge", p)
		}
	}
	if cutRing(orb.Ring{{0, 0}, {10, 0}, {10, 10}, {0, 0}}) != nil {
		t.Fatalf("ring away from the antimeridian must not be cut")
	}
}

func TestGeoPathRingOnEdgeHasNoNaN(t *testing.T) {
	gp := NewGeoPath(NewProjection(DefaultProjectionConfig()))
	sink := &recordingSink{}

	// (180, 10) -> (-180, 10) is the same place seen from both edges.
	gp.Draw(orb.Polygon{{{170, 0}, {180, 10}, {-180, 10}, {-170, 0}, {170, 0}}}, sink)

	if len(sink.ops) == 0 {
		t.Fatalf("ring on the edge was dropped")
	}
	for _, op := range sink.ops {
		if math.IsNaN(op.x) || math.IsNaN(op.y) {
			t.Fatalf("NaN coordinate in %v", sink.ops)
		}
	}
}

func TestGeoPathPolarRingWalksThroughPole(t *testing.T) {
	proj := NewProjection(DefaultProjectionConfig())
	gp := NewGeoPath(proj)
	sink := &recordingSink{}

	gp.Draw(orb.Ring{{-170, -60}, {-90, -60}, {0, -60}, {90, -60}, {170, -60}, {-170, -60}}, sink)

	pole, _ := proj.Project(model.GeoPoint{Longitude: 0, Latitude: -90})
	reached := false
	for _, op := range sink.ops {
		if op.kind == "L" && math.Abs(op.y-pole.Y) < 1e-6 {
			reached = true
		}
	}
	if !reached {
		t.Fatalf("ring around the south pole was not closed through the pole")
	}
	if got := sink.count("Z"); got != 1 {
		t.Fatalf("ClosePath count = %d, want 1", got)
	}
}
