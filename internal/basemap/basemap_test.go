package basemap

import (
	"context"
	"errors"
	"image/color"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/signalsfoundry/groundtrack/core"
	"github.com/signalsfoundry/groundtrack/internal/render"
	"github.com/signalsfoundry/groundtrack/model"
)

const squareTopology = `{
  "type": "Topology",
  "transform": {"scale": [1, 1], "translate": [0, 0]},
  "objects": {
    "countries": {
      "type": "GeometryCollection",
      "geometries": [
        {"type": "Polygon", "arcs": [[0]]},
        {"type": "MultiPolygon", "arcs": [[[-1]]]},
        {"type": "Point", "coordinates": [5, 5]}
      ]
    }
  },
  "arcs": [[[0, 0], [10, 0], [0, 10], [-10, 0], [0, -10]]]
}`

const squareFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "square"},
     "geometry": {"type": "Polygon", "coordinates": [[[0,0],[10,0],[10,10],[0,10],[0,0]]]}}
  ]
}`

func square() orb.Polygon {
	return orb.Polygon{{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {0, 0}}}
}

func TestRenderDrawsLandThenGraticule(t *testing.T) {
	rec := render.NewRecorder(core.CanvasWidth, core.CanvasHeight)
	r := NewRenderer(rec, core.NewProjection(core.DefaultProjectionConfig()))

	if err := r.Render([]orb.Geometry{square()}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	fills := rec.OpsOfKind(render.OpFill)
	if len(fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(fills))
	}
	if fills[0].Alpha != 0.7 {
		t.Fatalf("land alpha = %v, want 0.7", fills[0].Alpha)
	}
	want := color.NRGBAModel.Convert(render.MustHex("#B3DDEF"))
	if got := color.NRGBAModel.Convert(fills[0].Color); got != want {
		t.Fatalf("land fill = %v, want %v", got, want)
	}

	strokes := rec.OpsOfKind(render.OpStroke)
	if len(strokes) != 3 {
		t.Fatalf("strokes = %d, want land, graticule, outline", len(strokes))
	}
	if strokes[1].LineWidth != 0.1 || strokes[2].LineWidth != 0.5 {
		t.Fatalf("line widths = %v, %v; want 0.1, 0.5", strokes[1].LineWidth, strokes[2].LineWidth)
	}
	if got := strokes[1].Color.(color.NRGBA); got.R != 220 || got.A != 26 {
		t.Fatalf("graticule stroke = %+v", got)
	}
	if strokes[1].Segments == 0 || strokes[2].Segments == 0 {
		t.Fatalf("graticule and outline should have path segments: %+v", strokes)
	}
	if !r.Rendered() || r.Features() != 1 {
		t.Fatalf("Rendered=%v Features=%d", r.Rendered(), r.Features())
	}
}

func TestRenderRunsOnce(t *testing.T) {
	rec := render.NewRecorder(core.CanvasWidth, core.CanvasHeight)
	r := NewRenderer(rec, core.NewProjection(core.DefaultProjectionConfig()))

	if err := r.Render([]orb.Geometry{square(), square()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	before := len(rec.Ops())
	if err := r.Render([]orb.Geometry{square()}); !errors.Is(err, ErrAlreadyRendered) {
		t.Fatalf("second Render err = %v, want ErrAlreadyRendered", err)
	}
	if after := len(rec.Ops()); after != before {
		t.Fatalf("second Render drew %d ops", after-before)
	}
}

func TestRenderOnRasterCanvas(t *testing.T) {
	canvas, err := render.NewCanvas(core.CanvasWidth, core.CanvasHeight)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	r := NewRenderer(canvas, core.NewProjection(core.DefaultProjectionConfig()))
	if err := r.Render([]orb.Geometry{square()}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	// (5, 5) lies inside the square; its pixel must carry the land colour.
	px, ok := core.NewProjection(core.DefaultProjectionConfig()).Project(model.GeoPoint{Longitude: 5, Latitude: 5})
	if !ok {
		t.Fatalf("projection failed")
	}
	img := canvas.Snapshot()
	if a := img.RGBAAt(int(px.X), int(px.Y)).A; a == 0 {
		t.Fatalf("expected painted pixel at %v", px)
	}
}

func TestRenderFillsLandAcrossAntimeridian(t *testing.T) {
	canvas, err := render.NewCanvas(core.CanvasWidth, core.CanvasHeight)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	proj := core.NewProjection(core.DefaultProjectionConfig())
	r := NewRenderer(canvas, proj)
	box := orb.Polygon{{{170, 60}, {-170, 60}, {-170, 70}, {170, 70}, {170, 60}}}
	if err := r.Render([]orb.Geometry{box}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := canvas.Snapshot()
	alphaAt := func(lon, lat float64) uint8 {
		px, ok := proj.Project(model.GeoPoint{Longitude: lon, Latitude: lat})
		if !ok {
			t.Fatalf("projection failed for (%v, %v)", lon, lat)
		}
		return img.RGBAAt(int(px.X), int(px.Y)).A
	}
	for _, pt := range [][2]float64{{178, 61}, {175, 65}, {172, 69}, {-175, 65}, {-178, 68}} {
		if alphaAt(pt[0], pt[1]) == 0 {
			t.Fatalf("(%v, %v) lies inside the land box but is unpainted", pt[0], pt[1])
		}
	}
	for _, pt := range [][2]float64{{155, 65}, {-155, 65}, {5, 65}} {
		if alphaAt(pt[0], pt[1]) != 0 {
			t.Fatalf("(%v, %v) lies outside the land box but is painted", pt[0], pt[1])
		}
	}
}

func TestRenderFillsPolarCap(t *testing.T) {
	canvas, err := render.NewCanvas(core.CanvasWidth, core.CanvasHeight)
	if err != nil {
		t.Fatalf("NewCanvas: %v", err)
	}
	proj := core.NewProjection(core.DefaultProjectionConfig())
	r := NewRenderer(canvas, proj)
	polar := orb.Polygon{{{-170, -60}, {-90, -60}, {0, -60}, {90, -60}, {170, -60}, {-170, -60}}}
	if err := r.Render([]orb.Geometry{polar}); err != nil {
		t.Fatalf("Render: %v", err)
	}

	img := canvas.Snapshot()
	inside, _ := proj.Project(model.GeoPoint{Longitude: 35, Latitude: -75})
	outside, _ := proj.Project(model.GeoPoint{Longitude: 35, Latitude: -45})
	if img.RGBAAt(int(inside.X), int(inside.Y)).A == 0 {
		t.Fatalf("polar cap interior is unpainted")
	}
	if img.RGBAAt(int(outside.X), int(outside.Y)).A != 0 {
		t.Fatalf("area north of the polar cap is painted")
	}
}

func TestDecodeTopology(t *testing.T) {
	land, err := Decode([]byte(squareTopology), DefaultObject)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(land) != 2 {
		t.Fatalf("features = %d, want 2 (point skipped)", len(land))
	}
	poly, ok := land[0].(orb.Polygon)
	if !ok {
		t.Fatalf("first feature is %T, want orb.Polygon", land[0])
	}
	want := square()[0]
	if len(poly) != 1 || len(poly[0]) != len(want) {
		t.Fatalf("polygon = %v", poly)
	}
	for i := range want {
		if poly[0][i] != want[i] {
			t.Fatalf("ring[%d] = %v, want %v", i, poly[0][i], want[i])
		}
	}
	mp, ok := land[1].(orb.MultiPolygon)
	if !ok || len(mp) != 1 {
		t.Fatalf("second feature = %#v", land[1])
	}
	if got := mp[0][0][1]; got != (orb.Point{0, 10}) {
		t.Fatalf("reversed arc second point = %v, want [0 10]", got)
	}
}

func TestStitchSharesJoinPoints(t *testing.T) {
	arcs := []orb.LineString{
		{{0, 0}, {1, 0}},
		{{1, 0}, {1, 1}},
	}
	ls, err := stitch([]int{0, 1}, arcs)
	if err != nil {
		t.Fatalf("stitch: %v", err)
	}
	if len(ls) != 3 || ls[2] != (orb.Point{1, 1}) {
		t.Fatalf("stitched = %v", ls)
	}
	if _, err := stitch([]int{5}, arcs); err == nil {
		t.Fatalf("expected out-of-range error")
	}

	rev, err := stitch([]int{^1, ^0}, arcs)
	if err != nil {
		t.Fatalf("stitch reversed: %v", err)
	}
	if len(rev) != 3 || rev[0] != (orb.Point{1, 1}) || rev[2] != (orb.Point{0, 0}) {
		t.Fatalf("reversed stitch = %v", rev)
	}
	if arcs[0][0] != (orb.Point{0, 0}) || arcs[1][0] != (orb.Point{1, 0}) {
		t.Fatalf("stitching reversed arcs modified the shared arcs: %v", arcs)
	}
}

func TestDecodeTopologyKeepsFeatureIdentity(t *testing.T) {
	doc := `{
  "type": "Topology",
  "objects": {"countries": {"type": "GeometryCollection", "geometries": [
    {"type": "Polygon", "id": "242", "properties": {"name": "Fiji"}, "arcs": [[0]]}
  ]}},
  "arcs": [[[177, -18], [179, -18], [179, -16], [177, -18]]]
}`
	fc, err := decodeTopology([]byte(doc), DefaultObject)
	if err != nil {
		t.Fatalf("decodeTopology: %v", err)
	}
	if len(fc.Features) != 1 {
		t.Fatalf("features = %d, want 1", len(fc.Features))
	}
	f := fc.Features[0]
	if f.ID != "242" || f.Properties.MustString("name") != "Fiji" {
		t.Fatalf("feature id/properties = %v / %v", f.ID, f.Properties)
	}
	if ring := f.Geometry.(orb.Polygon)[0]; ring[1] != (orb.Point{179, -18}) {
		t.Fatalf("untransformed arc decoded as %v", ring)
	}
}

func TestDecodeRejectsUnknownDocuments(t *testing.T) {
	if _, err := Decode([]byte(`{"type":"Feature"}`), DefaultObject); err == nil {
		t.Fatalf("expected error for bare Feature")
	}
	if _, err := Decode([]byte(squareTopology), "land"); err == nil {
		t.Fatalf("expected error for missing object")
	}
	if _, err := Decode([]byte(`not json`), DefaultObject); err == nil {
		t.Fatalf("expected error for invalid json")
	}
}

type fetchRecord struct {
	source, outcome string
}

type fakeObserver struct{ records []fetchRecord }

func (f *fakeObserver) ObserveFetch(source, outcome string, _ time.Duration) {
	f.records = append(f.records, fetchRecord{source, outcome})
}

func TestLoaderFromHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(squareFeatureCollection))
	}))
	defer srv.Close()

	obs := &fakeObserver{}
	l := &Loader{Source: srv.URL + "/world.json", Client: srv.Client(), Metrics: obs}
	land, err := l.Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(land) != 1 {
		t.Fatalf("features = %d, want 1", len(land))
	}
	if len(obs.records) != 1 || obs.records[0] != (fetchRecord{"land", "ok"}) {
		t.Fatalf("observed = %+v", obs.records)
	}
}

func TestLoaderFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "world-110m.json")
	if err := os.WriteFile(path, []byte(squareTopology), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	land, err := (&Loader{Source: path}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(land) != 2 {
		t.Fatalf("features = %d, want 2", len(land))
	}
}

func TestLoaderFailureIsDataFetchError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	obs := &fakeObserver{}
	for _, l := range []*Loader{
		{Source: srv.URL, Client: srv.Client(), Metrics: obs},
		{Source: filepath.Join(t.TempDir(), "missing.json")},
		{},
	} {
		if _, err := l.Load(context.Background()); !errors.Is(err, model.ErrDataFetch) {
			t.Fatalf("Load(%q) err = %v, want ErrDataFetch", l.Source, err)
		}
	}
	if len(obs.records) != 1 || obs.records[0].outcome != "error" {
		t.Fatalf("observed = %+v", obs.records)
	}
}

func TestLoadAndRenderLeavesMapBlankOnFailure(t *testing.T) {
	rec := render.NewRecorder(core.CanvasWidth, core.CanvasHeight)
	r := NewRenderer(rec, core.NewProjection(core.DefaultProjectionConfig()))
	l := &Loader{Source: filepath.Join(t.TempDir(), "missing.json")}

	if err := LoadAndRender(context.Background(), l, r); !errors.Is(err, model.ErrDataFetch) {
		t.Fatalf("LoadAndRender err = %v, want ErrDataFetch", err)
	}
	if r.Rendered() || len(rec.Ops()) != 0 {
		t.Fatalf("renderer should stay untouched after a failed load")
	}
}
