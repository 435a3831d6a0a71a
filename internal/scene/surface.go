package scene

import "playhouse/engine/internal/geom"

// SurfaceKind classifies what a ray or proximity search can land on.
type SurfaceKind string

const (
	KindGround SurfaceKind = "ground"
	KindWall   SurfaceKind = "wall"
	KindRoof   SurfaceKind = "roof"
)

// WallSegment is a vertical wall run between two ground-plane endpoints. It
// exposes a front and a back face, each offset half the thickness from the
// segment's center line.
type WallSegment struct {
	ID        string    `json:"id"`
	A         geom.Vec3 `json:"a"`
	B         geom.Vec3 `json:"b"`
	Height    float64   `json:"height"`
	Thickness float64   `json:"thickness"`
}

// Face is one side of a wall: a bounded quad plus its outward normal.
type Face struct {
	Quad   geom.Quad
	Normal geom.Vec3
}

// Degenerate reports whether the segment is too short or too flat to expose
// usable faces.
func (w WallSegment) Degenerate() bool {
	if w.Height <= geom.Epsilon {
		return true
	}
	_, ok := w.B.Sub(w.A).Horizontal().Normalized()
	return !ok
}

// Faces returns the wall's two vertical faces. Degenerate segments return nil.
func (w WallSegment) Faces() []Face {
	run := w.B.Sub(w.A).Horizontal()
	along, ok := run.Normalized()
	if !ok || w.Height <= geom.Epsilon {
		return nil
	}
	normal := geom.Vec3{X: along.Z, Z: -along.X}
	half := w.Thickness / 2
	up := geom.Vec3{Y: w.Height}

	base := geom.Vec3{X: w.A.X, Z: w.A.Z}
	front := geom.Quad{Origin: base.Add(normal.Scale(half)), U: run, V: up}
	back := geom.Quad{Origin: base.Add(normal.Scale(-half)), U: run, V: up}
	return []Face{
		{Quad: front, Normal: normal},
		{Quad: back, Normal: normal.Negated()},
	}
}

// Top returns the height of the wall's upper edge.
func (w WallSegment) Top() float64 {
	return w.Height
}

// RoofFace is one sloped planar face of the roof, derived from the current
// roof style and pitch. Its normal is never vertical for a pitched roof.
type RoofFace struct {
	ID   string    `json:"id"`
	Quad geom.Quad `json:"quad"`
}

// Normal returns the face normal corrected to point upward. Roof meshes are
// double-sided visually but snapping always works with the outward side.
func (r RoofFace) Normal() (geom.Vec3, bool) {
	normal, ok := r.Quad.Normal()
	if !ok {
		return geom.Vec3{}, false
	}
	if normal.Y < 0 {
		normal = normal.Negated()
	}
	return normal, true
}

// PieceSurface is a placed piece flagged as a snap target. Its quads present
// themselves as wall or roof surfaces depending on the piece's structural
// role.
type PieceSurface struct {
	PieceID string
	Kind    SurfaceKind
	Quads   []geom.Quad
}

// SurfaceHit is the transient result of a scene query: where the pointer ray
// landed, on what, and with which outward-facing normal.
type SurfaceHit struct {
	Point  geom.Vec3
	Normal geom.Vec3
	Kind   SurfaceKind
	// ID identifies the wall, roof face, or snap-target piece that was hit.
	// Empty for the ground plane.
	ID string
	// Distance is the ray parameter at the hit, used to rank candidates.
	Distance float64
}
