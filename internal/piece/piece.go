package piece

import "playhouse/engine/internal/geom"

// Category determines which surfaces a piece may snap to and which inputs are
// accepted while it is held.
type Category string

const (
	// Structural pieces are wall and roof segments. They are placed freely
	// and become snap surfaces for everything else.
	Structural Category = "structural"
	// WindowDoor pieces sit flush and axis-aligned on wall faces and are
	// only meaningful while attached.
	WindowDoor Category = "window-door"
	// DecorativeWall pieces cling to walls and roofs and rest freely on the
	// ground otherwise.
	DecorativeWall Category = "decorative-wall"
	// DecorativeRoofOnly pieces attach to roof faces only and are searched
	// with a wider radius since they are dropped beside the slope.
	DecorativeRoofOnly Category = "decorative-roof"
	// Unattachable pieces never snap.
	Unattachable Category = "unattachable"
)

// SnapsToWalls reports whether the category participates in wall snapping.
func (c Category) SnapsToWalls() bool {
	return c == WindowDoor || c == DecorativeWall
}

// SnapsToRoofs reports whether the category participates in roof snapping.
func (c Category) SnapsToRoofs() bool {
	return c == DecorativeWall || c == DecorativeRoofOnly
}

// HeightAdjustable reports whether the category carries an independently
// adjustable target height while attached to a wall.
func (c Category) HeightAdjustable() bool {
	return c == WindowDoor || c == DecorativeWall
}

// RequiresAttachment reports whether the piece has no free-standing form. The
// controller keeps such pieces at their last valid transform when no snap is
// found.
func (c Category) RequiresAttachment() bool {
	return c == WindowDoor
}

// Attachment links a committed piece to the surface it snapped to.
type Attachment struct {
	// SurfaceID identifies the wall, roof face, or snap-target piece.
	SurfaceID string `json:"surfaceId"`
	// Kind is the surface category the piece attached to.
	Kind string `json:"kind"`
	// Normal is the surface normal the snap was resolved with.
	Normal geom.Vec3 `json:"normal"`
}

// Piece is one placeable element of the build. The session layer owns the
// authoritative copy; the engine mutates it only through commit intents while
// the local user holds it.
type Piece struct {
	ID        string    `json:"id"`
	CatalogID string    `json:"catalogId"`
	Category  Category  `json:"category"`
	Position  geom.Vec3 `json:"position"`
	Yaw       float64   `json:"yaw"`
	Pitch     float64   `json:"pitch"`
	// Attached is non-nil iff the stored normal came from a successful snap
	// on the most recent commit. Ground-placed pieces carry nil.
	Attached *Attachment `json:"attached,omitempty"`
	// SnapTarget marks pieces whose geometry other pieces may snap onto.
	SnapTarget bool `json:"snapTarget,omitempty"`
	// Version increases on every confirmed commit and is used by the session
	// layer for conflict detection.
	Version uint64 `json:"version"`
}

// Clone returns a deep copy safe to hand across goroutines.
func (p Piece) Clone() Piece {
	cloned := p
	if p.Attached != nil {
		attached := *p.Attached
		cloned.Attached = &attached
	}
	return cloned
}
