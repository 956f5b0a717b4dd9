package geom

import "math"

// Quat is a rotation quaternion (w + xi + yj + zk).
type Quat struct {
	W, X, Y, Z float64
}

// IdentityQuat is the no-rotation quaternion.
var IdentityQuat = Quat{W: 1}

func (q Quat) norm() float64 {
	return math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
}

// Normalize returns the unit quaternion, or the identity for a zero input.
func (q Quat) Normalize() Quat {
	n := q.norm()
	if n == 0 {
		return IdentityQuat
	}
	return Quat{q.W / n, q.X / n, q.Y / n, q.Z / n}
}

// Sub returns the component-wise difference of two quaternions. The result
// is not a rotation; it is used to store orientation deltas.
func (q Quat) Sub(o Quat) Quat {
	return Quat{q.W - o.W, q.X - o.X, q.Y - o.Y, q.Z - o.Z}
}

// Slerp spherically interpolates from q toward o by t in [0,1]. The sign
// of o is flipped when needed so interpolation takes the shorter arc.
func (q Quat) Slerp(o Quat, t float64) Quat {
	dot := q.W*o.W + q.X*o.X + q.Y*o.Y + q.Z*o.Z
	if dot < 0 {
		o = Quat{-o.W, -o.X, -o.Y, -o.Z}
		dot = -dot
	}
	if dot > 0.9995 {
		// Nearly parallel: linear blend avoids division by a tiny sin.
		return Quat{
			q.W + t*(o.W-q.W),
			q.X + t*(o.X-q.X),
			q.Y + t*(o.Y-q.Y),
			q.Z + t*(o.Z-q.Z),
		}.Normalize()
	}
	theta0 := math.Acos(dot)
	sin0 := math.Sin(theta0)
	theta := theta0 * t
	s0 := math.Sin(theta0-theta) / sin0
	s1 := math.Sin(theta) / sin0
	return Quat{
		s0*q.W + s1*o.W,
		s0*q.X + s1*o.X,
		s0*q.Y + s1*o.Y,
		s0*q.Z + s1*o.Z,
	}
}

// TrackQuat builds the rotation that points the local -Y axis along dir
// while keeping the local Z axis as close to world +Z as possible. This is
// the orientation convention of the car models: nose on -Y, roof on +Z.
// A zero direction yields the identity rotation.
func TrackQuat(dir Vec3) Quat {
	f, ok := dir.Unit()
	if !ok {
		return IdentityQuat
	}

	yAxis := f.Scale(-1)
	up := Vec3{0, 0, 1}
	// When the direction is (anti)parallel to world Z the up reference is
	// ambiguous; use world Y instead.
	if math.Abs(f.Dot(up)) > 0.9999 {
		up = Vec3{0, 1, 0}
	}
	zAxis, _ := up.Sub(yAxis.Scale(up.Dot(yAxis))).Unit()
	xAxis := yAxis.Cross(zAxis)

	return matrixToQuat(xAxis, yAxis, zAxis)
}

// matrixToQuat converts a rotation matrix given by its column vectors
// (images of the local X, Y, Z axes) to a unit quaternion using the
// standard largest-pivot method.
func matrixToQuat(x, y, z Vec3) Quat {
	m00, m01, m02 := x.X, y.X, z.X
	m10, m11, m12 := x.Y, y.Y, z.Y
	m20, m21, m22 := x.Z, y.Z, z.Z

	trace := m00 + m11 + m22
	var q Quat
	switch {
	case trace > 0:
		s := math.Sqrt(trace+1) * 2
		q = Quat{
			W: s / 4,
			X: (m21 - m12) / s,
			Y: (m02 - m20) / s,
			Z: (m10 - m01) / s,
		}
	case m00 > m11 && m00 > m22:
		s := math.Sqrt(1+m00-m11-m22) * 2
		q = Quat{
			W: (m21 - m12) / s,
			X: s / 4,
			Y: (m01 + m10) / s,
			Z: (m02 + m20) / s,
		}
	case m11 > m22:
		s := math.Sqrt(1+m11-m00-m22) * 2
		q = Quat{
			W: (m02 - m20) / s,
			X: (m01 + m10) / s,
			Y: s / 4,
			Z: (m12 + m21) / s,
		}
	default:
		s := math.Sqrt(1+m22-m00-m11) * 2
		q = Quat{
			W: (m10 - m01) / s,
			X: (m02 + m20) / s,
			Y: (m12 + m21) / s,
			Z: s / 4,
		}
	}
	return q.Normalize()
}

// Rotate applies the rotation to a vector.
func (q Quat) Rotate(v Vec3) Vec3 {
	// v' = q * (0,v) * q^-1 expanded for unit quaternions.
	u := Vec3{q.X, q.Y, q.Z}
	s := q.W
	return u.Scale(2 * u.Dot(v)).
		Add(v.Scale(s*s - u.Dot(u))).
		Add(u.Cross(v).Scale(2 * s))
}
