package core

import "math"

const (
	degrees = 180 / math.Pi
	radians = math.Pi / 180
	epsilon = 1e-6
)

// Vec3 is a Cartesian vector. Path resampling works on the unit sphere.
type Vec3 struct {
	X, Y, Z float64
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Unit returns v scaled to length 1. The zero vector is returned unchanged.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// cartesian maps longitude/latitude in radians onto the unit sphere.
func cartesian(lambda, phi float64) Vec3 {
	cosPhi := math.Cos(phi)
	return Vec3{
		X: cosPhi * math.Cos(lambda),
		Y: cosPhi * math.Sin(lambda),
		Z: math.Sin(phi),
	}
}

// spherical is the inverse of cartesian for a unit vector.
func spherical(v Vec3) (lambda, phi float64) {
	z := v.Z
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	return math.Atan2(v.Y, v.X), math.Asin(z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
