package scene

import (
	"math"
	"testing"

	"playhouse/engine/internal/geom"
)

func testGround() geom.Quad {
	return geom.Quad{
		Origin: geom.Vec3{X: -20, Z: -20},
		U:      geom.Vec3{X: 40},
		V:      geom.Vec3{Z: 40},
	}
}

func testWall() WallSegment {
	return WallSegment{
		ID:        "wall-1",
		A:         geom.Vec3{X: -2},
		B:         geom.Vec3{X: 2},
		Height:    3,
		Thickness: 0.2,
	}
}

func TestQueryRayHitsNearestWallFace(t *testing.T) {
	reg := NewRegistry(Input{
		Ground: testGround(),
		Walls:  []WallSegment{testWall()},
	})

	ray := geom.Ray{Origin: geom.Vec3{Y: 1.5, Z: 5}, Direction: geom.Vec3{Z: -1}}
	hit, ok := reg.QueryRay(ray, "")
	if !ok {
		t.Fatalf("expected a wall hit")
	}
	if hit.Kind != KindWall || hit.ID != "wall-1" {
		t.Fatalf("expected wall-1, got %s %q", hit.Kind, hit.ID)
	}
	if math.Abs(hit.Normal.Z-1) > 1e-9 {
		t.Fatalf("expected normal to face the ray (+Z), got %+v", hit.Normal)
	}
	if math.Abs(hit.Point.Z-0.1) > 1e-9 {
		t.Fatalf("expected hit on the near face at z=0.1, got %+v", hit.Point)
	}
}

func TestQueryRayFallsBackToGround(t *testing.T) {
	reg := NewRegistry(Input{
		Ground: testGround(),
		Walls:  []WallSegment{testWall()},
	})

	ray := geom.Ray{Origin: geom.Vec3{X: 10, Y: 5, Z: 10}, Direction: geom.Vec3{Y: -1}}
	hit, ok := reg.QueryRay(ray, "")
	if !ok {
		t.Fatalf("expected a ground hit")
	}
	if hit.Kind != KindGround || hit.ID != "" {
		t.Fatalf("expected anonymous ground hit, got %s %q", hit.Kind, hit.ID)
	}
	if math.Abs(hit.Point.Y) > 1e-9 {
		t.Fatalf("expected hit on the ground plane, got %+v", hit.Point)
	}
}

func TestQueryRayRejectsSidewaysBuildSurface(t *testing.T) {
	// A vertical build surface must never accept hits.
	reg := NewRegistry(Input{
		Ground: geom.Quad{
			Origin: geom.Vec3{X: -20, Y: -20, Z: 0},
			U:      geom.Vec3{X: 40},
			V:      geom.Vec3{Y: 40},
		},
	})
	ray := geom.Ray{Origin: geom.Vec3{Z: 5}, Direction: geom.Vec3{Z: -1}}
	if _, ok := reg.QueryRay(ray, ""); ok {
		t.Fatalf("expected sideways surface to be rejected")
	}
}

func TestQueryRayFlipsRoofNormalUpward(t *testing.T) {
	// Roof quad wound so its raw normal points down.
	roof := RoofFace{
		ID: "roof-south",
		Quad: geom.Quad{
			Origin: geom.Vec3{X: -2, Y: 3, Z: 2},
			U:      geom.Vec3{Z: -2, Y: 1},
			V:      geom.Vec3{X: 4},
		},
	}
	reg := NewRegistry(Input{Ground: testGround(), Roofs: []RoofFace{roof}})

	ray := geom.Ray{Origin: geom.Vec3{Y: 10, Z: 1}, Direction: geom.Vec3{Y: -1}}
	hit, ok := reg.QueryRay(ray, "")
	if !ok {
		t.Fatalf("expected a roof hit")
	}
	if hit.Kind != KindRoof {
		t.Fatalf("expected roof hit, got %s", hit.Kind)
	}
	if hit.Normal.Y <= 0 {
		t.Fatalf("expected upward roof normal, got %+v", hit.Normal)
	}
}

func TestQueryRayExcludesHeldPiece(t *testing.T) {
	piece := PieceSurface{
		PieceID: "piece-7",
		Kind:    KindWall,
		Quads: []geom.Quad{{
			Origin: geom.Vec3{X: -1, Z: 1},
			U:      geom.Vec3{X: 2},
			V:      geom.Vec3{Y: 2},
		}},
	}
	reg := NewRegistry(Input{Ground: testGround(), Pieces: []PieceSurface{piece}})

	ray := geom.Ray{Origin: geom.Vec3{Y: 1, Z: 5}, Direction: geom.Vec3{Z: -1}}
	hit, ok := reg.QueryRay(ray, "")
	if !ok || hit.ID != "piece-7" {
		t.Fatalf("expected the snap-target piece to be hit, got %+v ok=%v", hit, ok)
	}

	if hit, ok := reg.QueryRay(ray, "piece-7"); ok && hit.Kind != KindGround {
		t.Fatalf("expected the held piece to be excluded, got %+v", hit)
	}
}

func TestQueryRayPrefersNearestSurface(t *testing.T) {
	near := testWall()
	far := WallSegment{ID: "wall-2", A: geom.Vec3{X: -2, Z: -4}, B: geom.Vec3{X: 2, Z: -4}, Height: 3, Thickness: 0.2}
	reg := NewRegistry(Input{Ground: testGround(), Walls: []WallSegment{far, near}})

	ray := geom.Ray{Origin: geom.Vec3{Y: 1.5, Z: 5}, Direction: geom.Vec3{Z: -1}}
	hit, ok := reg.QueryRay(ray, "")
	if !ok || hit.ID != "wall-1" {
		t.Fatalf("expected the nearer wall to win, got %+v ok=%v", hit, ok)
	}
}

func TestRegistryDropsDegenerateGeometry(t *testing.T) {
	reg := NewRegistry(Input{
		Ground: testGround(),
		Walls: []WallSegment{
			{ID: "zero-length", A: geom.Vec3{X: 1}, B: geom.Vec3{X: 1}, Height: 3},
			{ID: "flat", A: geom.Vec3{}, B: geom.Vec3{X: 2}, Height: 0},
		},
		Roofs: []RoofFace{{ID: "collapsed", Quad: geom.Quad{}}},
	})
	count := 0
	reg.EachWallFace(func(string, Face) { count++ })
	if count != 0 {
		t.Fatalf("expected degenerate walls to be dropped, found %d faces", count)
	}
	reg.EachRoofFace(func(RoofFace) {
		t.Fatalf("expected degenerate roof to be dropped")
	})
}

func TestCameraScreenRayCenterMatchesForward(t *testing.T) {
	cam := Camera{
		Position: geom.Vec3{Y: 5, Z: 10},
		Forward:  geom.Vec3{Z: -1},
		Up:       geom.Up,
		FOVY:     math.Pi / 3,
		Aspect:   16.0 / 9.0,
	}
	ray, ok := cam.ScreenRay(Pointer{})
	if !ok {
		t.Fatalf("expected a ray from a valid camera")
	}
	if !ray.Direction.NearlyEqual(geom.Vec3{Z: -1}) {
		t.Fatalf("expected center ray along forward, got %+v", ray.Direction)
	}

	right, ok := cam.ScreenRay(Pointer{X: 1})
	if !ok || right.Direction.X <= 0 {
		t.Fatalf("expected +X pointer to steer the ray right, got %+v", right.Direction)
	}
}
