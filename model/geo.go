package model

// GeoPoint is a geographic coordinate in degrees.
type GeoPoint struct {
	Longitude float64
	Latitude  float64
}

// PixelPoint is a position on the drawing surface, in canvas units.
type PixelPoint struct {
	X float64
	Y float64
}
