package core

import (
	"math"
	"testing"
	"time"

	"github.com/signalsfoundry/groundtrack/model"
)

const (
	issLine1 = "1 25544U 98067A   21275.59097222  .00000204  00000-0  10270-4 0  9990"
	issLine2 = "2 25544  51.6459 115.9059 0001817  61.3028  35.9198 15.49370953257760"
)

func TestValidateTLE(t *testing.T) {
	if err := ValidateTLE(issLine1, issLine2); err != nil {
		t.Fatalf("ValidateTLE rejected a valid TLE: %v", err)
	}
	if err := ValidateTLE("1 short", issLine2); err == nil {
		t.Fatalf("expected error for short line1")
	}
	if err := ValidateTLE(issLine2, issLine1); err == nil {
		t.Fatalf("expected error for swapped lines")
	}
}

// We don't assert exact orbital values (those belong to go-satellite); only
// that the sub-point is physically plausible for the ISS.
func TestGroundTrackModelSubPoint(t *testing.T) {
	m, err := NewGroundTrackModel(issLine1, issLine2)
	if err != nil {
		t.Fatalf("NewGroundTrackModel: %v", err)
	}

	obs := model.Observer{Latitude: 40.7, Longitude: -74.0, Elevation: 10}
	epoch := time.Date(2021, time.October, 2, 14, 0, 0, 0, time.UTC)

	var prev SubPoint
	for i := 0; i < 3; i++ {
		sp, ok := m.At(epoch.Add(time.Duration(i)*time.Minute), obs)
		if !ok {
			t.Fatalf("propagation failed at step %d", i)
		}
		if math.Abs(sp.Latitude) > 52 {
			t.Fatalf("latitude %v exceeds ISS inclination", sp.Latitude)
		}
		if sp.Longitude < -180 || sp.Longitude > 180 {
			t.Fatalf("longitude %v not normalised", sp.Longitude)
		}
		if sp.AltitudeKm < 300 || sp.AltitudeKm > 500 {
			t.Fatalf("altitude %v km implausible for the ISS", sp.AltitudeKm)
		}
		if sp.Elevation < -90 || sp.Elevation > 90 {
			t.Fatalf("elevation %v out of range", sp.Elevation)
		}
		if i > 0 && sp == prev {
			t.Fatalf("sub-point did not move between steps")
		}
		prev = sp
	}
}

func TestNormalizeLongitude(t *testing.T) {
	cases := map[float64]float64{0: 0, 190: -170, -190: 170, 540: -180, -45: -45}
	for in, want := range cases {
		if got := normalizeLongitude(in); math.Abs(got-want) > 1e-9 {
			t.Fatalf("normalizeLongitude(%v) = %v, want %v", in, got, want)
		}
	}
}
