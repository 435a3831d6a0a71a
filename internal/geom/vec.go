package geom

import "math"

// Epsilon is the tolerance used when comparing coordinates and rejecting
// degenerate directions. Values below it are treated as zero.
const Epsilon = 1e-9

// Vec3 is a three-component vector in world space. Y is up.
type Vec3 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Up is the world up axis.
var Up = Vec3{Y: 1}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{X: v.X + o.X, Y: v.Y + o.Y, Z: v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{X: v.X - o.X, Y: v.Y - o.Y, Z: v.Z - o.Z}
}

// Scale returns v scaled by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{X: v.X * s, Y: v.Y * s, Z: v.Z * s}
}

// Dot returns the dot product of v and o.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product of v and o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Length returns the Euclidean length of v.
func (v Vec3) Length() float64 {
	return math.Sqrt(v.Dot(v))
}

// LengthSq returns the squared length of v.
func (v Vec3) LengthSq() float64 {
	return v.Dot(v)
}

// DistanceTo returns the Euclidean distance between v and o.
func (v Vec3) DistanceTo(o Vec3) float64 {
	return v.Sub(o).Length()
}

// Normalized returns v scaled to unit length. The second result is false when
// v is too short to carry a direction.
func (v Vec3) Normalized() (Vec3, bool) {
	length := v.Length()
	if length <= Epsilon {
		return Vec3{}, false
	}
	return v.Scale(1 / length), true
}

// Negated returns -v.
func (v Vec3) Negated() Vec3 {
	return Vec3{X: -v.X, Y: -v.Y, Z: -v.Z}
}

// Horizontal returns v with its vertical component removed.
func (v Vec3) Horizontal() Vec3 {
	return Vec3{X: v.X, Z: v.Z}
}

// NearlyEqual reports whether v and o match within the shared epsilon.
func (v Vec3) NearlyEqual(o Vec3) bool {
	return math.Abs(v.X-o.X) <= Epsilon &&
		math.Abs(v.Y-o.Y) <= Epsilon &&
		math.Abs(v.Z-o.Z) <= Epsilon
}

// Clamp limits value to the range [min, max].
func Clamp(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ProjectOnPlane removes the component of v along the unit normal n.
func ProjectOnPlane(v, n Vec3) Vec3 {
	return v.Sub(n.Scale(v.Dot(n)))
}
