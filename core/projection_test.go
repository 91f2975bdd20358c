package core

import (
	"math"
	"testing"

	"github.com/signalsfoundry/groundtrack/model"
)

func TestProjectKnownPoints(t *testing.T) {
	p := NewProjection(DefaultProjectionConfig())

	cases := []struct {
		name  string
		in    model.GeoPoint
		wantX float64
		wantY float64
	}{
		{"origin maps to canvas centre", model.GeoPoint{Longitude: 0, Latitude: 0}, 480, 300},
		{"new york", model.GeoPoint{Longitude: -74, Latitude: 40.7}, 305.0422, 179.2407},
		{"antimeridian on equator", model.GeoPoint{Longitude: 180, Latitude: 0}, 942.5188, 300},
		{"north pole", model.GeoPoint{Longitude: 0, Latitude: 90}, 480, 32.9646},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := p.Project(tc.in)
			if !ok {
				t.Fatalf("Project(%v) reported unplottable", tc.in)
			}
			if math.Abs(got.X-tc.wantX) > 1e-3 || math.Abs(got.Y-tc.wantY) > 1e-3 {
				t.Fatalf("Project(%v) = (%.4f, %.4f), want (%.4f, %.4f)", tc.in, got.X, got.Y, tc.wantX, tc.wantY)
			}
		})
	}
}

func TestProjectIsDeterministic(t *testing.T) {
	a := NewProjection(DefaultProjectionConfig())
	b := NewProjection(DefaultProjectionConfig())

	for lon := -180.0; lon <= 180; lon += 7.5 {
		for lat := -90.0; lat <= 90; lat += 7.5 {
			pt := model.GeoPoint{Longitude: lon, Latitude: lat}
			first, ok1 := a.Project(pt)
			second, ok2 := a.Project(pt)
			other, ok3 := b.Project(pt)
			if !ok1 || !ok2 || !ok3 {
				t.Fatalf("Project(%v) unplottable inside the valid domain", pt)
			}
			if first != second || first != other {
				t.Fatalf("Project(%v) not deterministic: %v %v %v", pt, first, second, other)
			}
		}
	}
}

func TestProjectUnplottable(t *testing.T) {
	p := NewProjection(DefaultProjectionConfig())

	for _, pt := range []model.GeoPoint{
		{Longitude: math.NaN(), Latitude: 0},
		{Longitude: 0, Latitude: math.Inf(1)},
		{Longitude: 0, Latitude: 91},
		{Longitude: -181, Latitude: 0},
	} {
		if _, ok := p.Project(pt); ok {
			t.Fatalf("Project(%v) should be unplottable", pt)
		}
	}
}

func TestNewProjectionDefaults(t *testing.T) {
	p := NewProjection(ProjectionConfig{})
	if got := p.Config(); got != DefaultProjectionConfig() {
		t.Fatalf("Config() = %+v, want defaults", got)
	}
}
