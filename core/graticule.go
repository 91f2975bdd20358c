package core

import (
	"iter"
	"math"
	"slices"

	"github.com/paulmach/orb"
)

// Extent is a longitude/latitude rectangle in degrees.
type Extent struct {
	MinLon, MinLat, MaxLon, MaxLat float64
}

// Graticule generates meridians and parallels. The zero value is not useful;
// start from DefaultGraticule.
type Graticule struct {
	Major Extent
	Minor Extent
	// MajorStep and MinorStep are {longitude, latitude} spacing in degrees.
	MajorStep [2]float64
	MinorStep [2]float64
	// Precision is the sampling interval along each line, in degrees.
	Precision float64
}

// DefaultGraticule is a 10° grid with major meridians every 90° and the
// equator as the only major parallel. Minor meridians stop at ±80°.
func DefaultGraticule() Graticule {
	return Graticule{
		Major:     Extent{MinLon: -180, MinLat: -90 + epsilon, MaxLon: 180, MaxLat: 90 - epsilon},
		Minor:     Extent{MinLon: -180, MinLat: -80 - epsilon, MaxLon: 180, MaxLat: 80 + epsilon},
		MajorStep: [2]float64{90, 360},
		MinorStep: [2]float64{10, 10},
		Precision: 2.5,
	}
}

// Lines yields every graticule line: major meridians, major parallels, then
// the minor meridians and parallels that do not coincide with a major line.
func (g Graticule) Lines() iter.Seq[orb.LineString] {
	return func(yield func(orb.LineString) bool) {
		for _, lon := range stepRange(math.Ceil(g.Major.MinLon/g.MajorStep[0])*g.MajorStep[0], g.Major.MaxLon, g.MajorStep[0]) {
			if !yield(g.meridian(lon, g.Major.MinLat, g.Major.MaxLat)) {
				return
			}
		}
		for _, lat := range stepRange(math.Ceil(g.Major.MinLat/g.MajorStep[1])*g.MajorStep[1], g.Major.MaxLat, g.MajorStep[1]) {
			if !yield(g.parallel(lat, g.Major.MinLon, g.Major.MaxLon)) {
				return
			}
		}
		for _, lon := range stepRange(math.Ceil(g.Minor.MinLon/g.MinorStep[0])*g.MinorStep[0], g.Minor.MaxLon, g.MinorStep[0]) {
			if math.Abs(math.Mod(lon, g.MajorStep[0])) <= epsilon {
				continue
			}
			if !yield(g.meridian(lon, g.Minor.MinLat, g.Minor.MaxLat)) {
				return
			}
		}
		for _, lat := range stepRange(math.Ceil(g.Minor.MinLat/g.MinorStep[1])*g.MinorStep[1], g.Minor.MaxLat, g.MinorStep[1]) {
			if math.Abs(math.Mod(lat, g.MajorStep[1])) <= epsilon {
				continue
			}
			if !yield(g.parallel(lat, g.Minor.MinLon, g.Minor.MaxLon)) {
				return
			}
		}
	}
}

// Outline returns the boundary of the major extent as a single ring.
func (g Graticule) Outline() orb.Polygon {
	west := g.meridian(g.Major.MinLon, g.Major.MinLat, g.Major.MaxLat)
	north := g.parallel(g.Major.MaxLat, g.Major.MinLon, g.Major.MaxLon)
	east := g.meridian(g.Major.MaxLon, g.Major.MinLat, g.Major.MaxLat)
	south := g.parallel(g.Major.MinLat, g.Major.MinLon, g.Major.MaxLon)
	slices.Reverse(east)
	slices.Reverse(south)

	ring := make(orb.Ring, 0, len(west)+len(north)+len(east)+len(south))
	ring = append(ring, west...)
	ring = append(ring, north[1:]...)
	ring = append(ring, east[1:]...)
	ring = append(ring, south[1:]...)
	return orb.Polygon{ring}
}

func (g Graticule) meridian(lon, minLat, maxLat float64) orb.LineString {
	lats := stepRange(minLat, maxLat-epsilon, g.Precision)
	line := make(orb.LineString, 0, len(lats)+1)
	for _, lat := range lats {
		line = append(line, orb.Point{lon, lat})
	}
	return append(line, orb.Point{lon, maxLat})
}

func (g Graticule) parallel(lat, minLon, maxLon float64) orb.LineString {
	lons := stepRange(minLon, maxLon-epsilon, g.Precision)
	line := make(orb.LineString, 0, len(lons)+1)
	for _, lon := range lons {
		line = append(line, orb.Point{lon, lat})
	}
	return append(line, orb.Point{maxLon, lat})
}

// stepRange returns start, start+step, ... strictly below stop.
func stepRange(start, stop, step float64) []float64 {
	if step <= 0 {
		return nil
	}
	n := int(math.Ceil((stop - start) / step))
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}
