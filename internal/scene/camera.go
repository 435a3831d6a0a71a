package scene

import (
	"math"

	"playhouse/engine/internal/geom"
)

// Pointer is a pointer position in normalized device coordinates: both axes
// range over [-1, 1] with +Y toward the top of the viewport.
type Pointer struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Camera is the minimal view description needed to turn pointer positions
// into world-space rays.
type Camera struct {
	Position geom.Vec3 `json:"position"`
	Forward  geom.Vec3 `json:"forward"`
	Up       geom.Vec3 `json:"up"`
	// FOVY is the vertical field of view in radians.
	FOVY   float64 `json:"fovy,omitempty"`
	Aspect float64 `json:"aspect,omitempty"`
}

// ScreenRay converts a pointer position into a world ray through the camera
// frustum. Returns false when the camera orientation is degenerate.
func (c Camera) ScreenRay(p Pointer) (geom.Ray, bool) {
	forward, ok := c.Forward.Normalized()
	if !ok {
		return geom.Ray{}, false
	}
	right, ok := forward.Cross(c.Up).Normalized()
	if !ok {
		return geom.Ray{}, false
	}
	up := right.Cross(forward)

	fovy := c.FOVY
	if fovy <= 0 {
		fovy = math.Pi / 3
	}
	aspect := c.Aspect
	if aspect <= 0 {
		aspect = 1
	}
	halfH := math.Tan(fovy / 2)
	halfW := halfH * aspect

	dir := forward.
		Add(right.Scale(p.X * halfW)).
		Add(up.Scale(p.Y * halfH))
	unit, ok := dir.Normalized()
	if !ok {
		return geom.Ray{}, false
	}
	return geom.Ray{Origin: c.Position, Direction: unit}, true
}
