package geom

import "math"

// Vec2 is a point or direction in the track plane (meters).
type Vec2 struct {
	X, Y float64
}

func (v Vec2) Add(o Vec2) Vec2      { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2      { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }
func (v Vec2) Dot(o Vec2) float64   { return v.X*o.X + v.Y*o.Y }
func (v Vec2) Norm() float64        { return math.Hypot(v.X, v.Y) }
func (v Vec2) NormSquared() float64 { return v.X*v.X + v.Y*v.Y }

// Unit returns the normalized vector and reports whether the input had
// non-zero length.
func (v Vec2) Unit() (Vec2, bool) {
	n := v.Norm()
	if n == 0 {
		return Vec2{}, false
	}
	return Vec2{v.X / n, v.Y / n}, true
}

// Perp returns the vector rotated 90 degrees counter-clockwise.
func (v Vec2) Perp() Vec2 { return Vec2{-v.Y, v.X} }

// Vec3 is a point or direction in world coordinates (meters).
type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Dot(o Vec3) float64   { return v.X*o.X + v.Y*o.Y + v.Z*o.Z }

func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

func (v Vec3) Norm() float64 { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Unit returns the normalized vector and reports whether the input had
// non-zero length.
func (v Vec3) Unit() (Vec3, bool) {
	n := v.Norm()
	if n == 0 {
		return Vec3{}, false
	}
	return Vec3{v.X / n, v.Y / n, v.Z / n}, true
}

// XY projects the vector onto the track plane.
func (v Vec3) XY() Vec2 { return Vec2{v.X, v.Y} }

// Dist returns the Euclidean distance between two points.
func (v Vec3) Dist(o Vec3) float64 { return v.Sub(o).Norm() }
