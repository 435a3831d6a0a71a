package geom

import "math"

// Basis is a right-handed orthonormal frame. Right, Up, and Forward are the
// world-space images of the local X, Y, and Z axes.
type Basis struct {
	Right   Vec3
	Up      Vec3
	Forward Vec3
}

// Rotation is a Y-X-Z Euler triple in radians: yaw about world up, then pitch
// about the rotated X axis, then roll about the rotated Z axis.
type Rotation struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
	Roll  float64 `json:"roll"`
}

// BasisFromUp builds the frame whose Up axis is the given unit normal, using
// reference to break the remaining rotational freedom. The reference is
// projected onto the plane perpendicular to up and becomes Forward. Returns
// false when up and reference are parallel or degenerate.
func BasisFromUp(up, reference Vec3) (Basis, bool) {
	upUnit, ok := up.Normalized()
	if !ok {
		return Basis{}, false
	}
	forward, ok := ProjectOnPlane(reference, upUnit).Normalized()
	if !ok {
		return Basis{}, false
	}
	right, ok := upUnit.Cross(forward).Normalized()
	if !ok {
		return Basis{}, false
	}
	// Re-derive forward so the frame stays orthonormal under float error.
	forward = right.Cross(upUnit)
	return Basis{Right: right, Up: upUnit, Forward: forward}, true
}

// Euler extracts the Y-X-Z rotation that maps the identity frame onto b.
func (b Basis) Euler() Rotation {
	pitch := math.Asin(Clamp(-b.Forward.Y, -1, 1))
	var yaw, roll float64
	if math.Abs(b.Forward.Y) < 1-Epsilon {
		yaw = math.Atan2(b.Forward.X, b.Forward.Z)
		roll = math.Atan2(b.Right.Y, b.Up.Y)
	} else {
		// Gimbal lock: forward is vertical, fold roll into yaw.
		yaw = math.Atan2(-b.Right.Z, b.Right.X)
	}
	return Rotation{Yaw: yaw, Pitch: pitch, Roll: roll}
}

// NormalizeAngle wraps an angle into (-π, π].
func NormalizeAngle(angle float64) float64 {
	wrapped := math.Mod(angle+math.Pi, 2*math.Pi)
	if wrapped <= 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped - math.Pi
}
