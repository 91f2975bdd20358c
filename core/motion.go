package core

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"

	"github.com/signalsfoundry/groundtrack/model"
)

// GroundTrackModel propagates a TLE with SGP4 and reports the sub-satellite
// point and the look angles from an observer.
type GroundTrackModel struct {
	sat satellite.Satellite
}

// SubPoint is the satellite position projected onto the Earth's surface.
type SubPoint struct {
	Latitude   float64 // degrees
	Longitude  float64 // degrees, [-180, 180]
	AltitudeKm float64
	Azimuth    float64 // degrees from the observer, clockwise from north
	Elevation  float64 // degrees above the observer's horizon
}

// NewGroundTrackModel parses a TLE. go-satellite aborts the process on
// malformed lines, so the basic layout is checked first.
func NewGroundTrackModel(line1, line2 string) (*GroundTrackModel, error) {
	if err := ValidateTLE(line1, line2); err != nil {
		return nil, err
	}
	sat := satellite.TLEToSat(strings.TrimSpace(line1), strings.TrimSpace(line2), satellite.GravityWGS72)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed: code=%d %s", sat.Error, sat.ErrorStr)
	}
	return &GroundTrackModel{sat: sat}, nil
}

// ValidateTLE performs a layout check on a two-line element set.
func ValidateTLE(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// At propagates to t and returns the sub-satellite point as seen from obs.
// ok is false when propagation diverges.
func (m *GroundTrackModel) At(t time.Time, obs model.Observer) (SubPoint, bool) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	posECI, _ := satellite.Propagate(m.sat, year, int(month), day, hour, min, sec)
	if !finite(posECI.X) || !finite(posECI.Y) || !finite(posECI.Z) {
		return SubPoint{}, false
	}

	gmst := satellite.GSTimeFromDate(year, int(month), day, hour, min, sec)
	altKm, _, latLon := satellite.ECIToLLA(posECI, gmst)
	deg := satellite.LatLongDeg(latLon)

	jd := satellite.JDay(year, int(month), day, hour, min, sec)
	obsCoords := satellite.LatLong{
		Latitude:  obs.Latitude * radians,
		Longitude: obs.Longitude * radians,
	}
	look := satellite.ECIToLookAngles(posECI, obsCoords, obs.Elevation/1000, jd)

	return SubPoint{
		Latitude:   deg.Latitude,
		Longitude:  normalizeLongitude(deg.Longitude),
		AltitudeKm: altKm,
		Azimuth:    look.Az * degrees,
		Elevation:  look.El * degrees,
	}, true
}

func normalizeLongitude(lon float64) float64 {
	lon = math.Mod(lon+180, 360)
	if lon < 0 {
		lon += 360
	}
	return lon - 180
}
