package snap

import (
	"math"
	"testing"

	"playhouse/engine/internal/geom"
)

func TestOrientationBasisAlignsUpWithNormal(t *testing.T) {
	normals := []geom.Vec3{
		{Z: 1},
		{X: -1},
		{X: 0.2, Y: 0.9, Z: 0.1},
		{Y: 1},          // ground: forces the fixed-axis fallback
		{Y: 1, X: 1e-7}, // nearly vertical
	}
	for _, n := range normals {
		basis, ok := OrientationBasis(n)
		if !ok {
			t.Fatalf("expected basis for %+v", n)
		}
		unit, _ := n.Normalized()
		if math.Abs(basis.Up.Dot(unit)-1) > 1e-9 {
			t.Fatalf("basis up %+v not aligned with %+v", basis.Up, unit)
		}
	}
}

func TestOrientationBasisRejectsDegenerateNormal(t *testing.T) {
	if _, ok := OrientationBasis(geom.Vec3{}); ok {
		t.Fatalf("expected zero normal to be rejected")
	}
}

func TestOrientToNormalGroundGivesIdentity(t *testing.T) {
	rotation, ok := OrientToNormal(geom.Up)
	if !ok {
		t.Fatalf("expected the ground normal to orient")
	}
	if math.Abs(rotation.Pitch) > 1e-9 || math.Abs(rotation.Roll) > 1e-9 {
		t.Fatalf("expected a flat rotation on the ground, got %+v", rotation)
	}
}

func TestOrientToWallYaw(t *testing.T) {
	cases := []struct {
		normal geom.Vec3
		want   float64
	}{
		{geom.Vec3{Z: 1}, 0},
		{geom.Vec3{X: 1}, math.Pi / 2},
		{geom.Vec3{Z: -1}, math.Pi},
		{geom.Vec3{X: -1}, -math.Pi / 2},
	}
	for _, tc := range cases {
		yaw, ok := OrientToWallYaw(tc.normal)
		if !ok {
			t.Fatalf("expected yaw for %+v", tc.normal)
		}
		if math.Abs(geom.NormalizeAngle(yaw-tc.want)) > 1e-9 {
			t.Fatalf("yaw for %+v = %f, want %f", tc.normal, yaw, tc.want)
		}
	}
}

func TestOrientToWallYawRejectsVerticalNormal(t *testing.T) {
	if _, ok := OrientToWallYaw(geom.Up); ok {
		t.Fatalf("expected a vertical normal to be rejected")
	}
}
