package snap

import (
	"math"

	"playhouse/engine/internal/geom"
)

// fallbackReference replaces world up as the keep-upright reference when the
// surface normal is itself near-vertical (e.g. the ground).
var fallbackReference = geom.Vec3{Z: 1}

// OrientToNormal converts a surface normal into the rotation that lays a
// decorative piece flat against the surface: the normal becomes the piece's
// local up, and the projection of world up onto the surface plane keeps the
// piece from appearing twisted. Returns false for degenerate normals.
func OrientToNormal(normal geom.Vec3) (geom.Rotation, bool) {
	basis, ok := OrientationBasis(normal)
	if !ok {
		return geom.Rotation{}, false
	}
	return basis.Euler(), true
}

// OrientationBasis exposes the full frame built by OrientToNormal, mostly for
// alignment checks.
func OrientationBasis(normal geom.Vec3) (geom.Basis, bool) {
	basis, ok := geom.BasisFromUp(normal, geom.Up)
	if ok {
		return basis, true
	}
	// Normal is near-vertical: world up has no usable in-plane projection,
	// fall back to a fixed world axis.
	return geom.BasisFromUp(normal, fallbackReference)
}

// OrientToWallYaw is the simplified path for window/door pieces, which only
// rotate about the vertical axis and must sit flush with the wall face.
// Returns false when the normal has no usable horizontal projection.
func OrientToWallYaw(normal geom.Vec3) (float64, bool) {
	horizontal, ok := normal.Horizontal().Normalized()
	if !ok {
		return 0, false
	}
	return math.Atan2(horizontal.X, horizontal.Z), true
}
