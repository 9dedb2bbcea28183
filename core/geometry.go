package core

import "math"

// Vec3 is a position or direction in host world units (metres).
type Vec3 struct {
	X, Y, Z float64
}

// DistanceTo returns the straight-line distance between two points.
func (v Vec3) DistanceTo(other Vec3) float64 {
	return v.Sub(other).Norm()
}

// Norm returns the Euclidean norm of the vector.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// Add returns v + other.
func (v Vec3) Add(other Vec3) Vec3 {
	return Vec3{X: v.X + other.X, Y: v.Y + other.Y, Z: v.Z + other.Z}
}

// Sub returns v - other.
func (v Vec3) Sub(other Vec3) Vec3 {
	return Vec3{X: v.X - other.X, Y: v.Y - other.Y, Z: v.Z - other.Z}
}

// Scale returns v * k.
func (v Vec3) Scale(k float64) Vec3 {
	return Vec3{X: v.X * k, Y: v.Y * k, Z: v.Z * k}
}

// Dot returns the dot product of two vectors.
func (v Vec3) Dot(other Vec3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Unit returns v normalised to length 1. The zero vector stays zero.
func (v Vec3) Unit() Vec3 {
	n := v.Norm()
	if n == 0 {
		return Vec3{}
	}
	return v.Scale(1 / n)
}

// IsFinite reports whether every component is a finite number.
func (v Vec3) IsFinite() bool {
	return isFinite(v.X) && isFinite(v.Y) && isFinite(v.Z)
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Ray is a half-line starting at Origin. Direction must be a unit vector.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at distance d along the ray.
func (r Ray) At(d float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(d))
}

// intersectSphere returns the distance along r to the first surface point
// of the sphere, or false when the ray misses or the sphere lies entirely
// behind the origin. An origin inside the sphere hits at distance 0.
func intersectSphere(r Ray, center Vec3, radius float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	c := oc.Dot(oc) - radius*radius
	if c <= 0 {
		return 0, true
	}

	// Closest approach of the line to the centre; t* minimises |oc + t d|^2.
	b := oc.Dot(r.Direction)
	if b > 0 {
		return 0, false
	}
	disc := b*b - c
	if disc < 0 {
		return 0, false
	}
	return -b - math.Sqrt(disc), true
}
