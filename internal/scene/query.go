package scene

import (
	"math"

	"playhouse/engine/internal/geom"
)

// GroundUpDotThreshold rejects build-surface hits whose face normal is not
// upward enough, so pieces never land on the side or underside of the table.
const GroundUpDotThreshold = 0.7

// Query casts a pointer ray against the registry and returns the nearest
// snap-relevant hit. Snap-target pieces, walls, and roofs are tested
// together; the ground plane is tested last and only accepted when its normal
// is upward enough. The held piece is excluded so it cannot snap to itself.
func (r *Registry) Query(pointer Pointer, camera Camera, excludePieceID string) (SurfaceHit, bool) {
	if r == nil {
		return SurfaceHit{}, false
	}
	ray, ok := camera.ScreenRay(pointer)
	if !ok {
		return SurfaceHit{}, false
	}
	return r.QueryRay(ray, excludePieceID)
}

// QueryRay is Query for a pre-computed ray, used by tests and replays.
func (r *Registry) QueryRay(ray geom.Ray, excludePieceID string) (SurfaceHit, bool) {
	if r == nil {
		return SurfaceHit{}, false
	}

	best := SurfaceHit{Distance: math.Inf(1)}
	found := false

	for _, wall := range r.walls {
		for _, face := range wall.faces {
			point, dist, ok := face.Quad.IntersectRay(ray)
			if !ok || dist >= best.Distance {
				continue
			}
			best = SurfaceHit{
				Point:    point,
				Normal:   facingNormal(face.Normal, ray),
				Kind:     KindWall,
				ID:       wall.id,
				Distance: dist,
			}
			found = true
		}
	}

	for _, roof := range r.roofs {
		point, dist, ok := roof.Quad.IntersectRay(ray)
		if !ok || dist >= best.Distance {
			continue
		}
		normal, ok := roof.Normal()
		if !ok {
			continue
		}
		best = SurfaceHit{
			Point:    point,
			Normal:   normal,
			Kind:     KindRoof,
			ID:       roof.ID,
			Distance: dist,
		}
		found = true
	}

	for _, piece := range r.pieces {
		if piece.pieceID == excludePieceID {
			continue
		}
		for _, quad := range piece.quads {
			point, dist, ok := quad.IntersectRay(ray)
			if !ok || dist >= best.Distance {
				continue
			}
			normal, ok := quad.Normal()
			if !ok {
				continue
			}
			if piece.kind == KindRoof {
				if normal.Y < 0 {
					normal = normal.Negated()
				}
			} else {
				normal = facingNormal(normal, ray)
			}
			best = SurfaceHit{
				Point:    point,
				Normal:   normal,
				Kind:     piece.kind,
				ID:       piece.pieceID,
				Distance: dist,
			}
			found = true
		}
	}

	if found {
		return best, true
	}

	// Ground is the last resort and must face upward.
	point, dist, ok := r.ground.IntersectRay(ray)
	if !ok {
		return SurfaceHit{}, false
	}
	normal, ok := r.ground.Normal()
	if !ok {
		return SurfaceHit{}, false
	}
	normal = facingNormal(normal, ray)
	if normal.Dot(geom.Up) < GroundUpDotThreshold {
		return SurfaceHit{}, false
	}
	return SurfaceHit{
		Point:    point,
		Normal:   normal,
		Kind:     KindGround,
		Distance: dist,
	}, true
}

// facingNormal flips a double-sided surface normal so it opposes the ray,
// matching what the querying camera actually sees.
func facingNormal(normal geom.Vec3, ray geom.Ray) geom.Vec3 {
	if normal.Dot(ray.Direction) > 0 {
		return normal.Negated()
	}
	return normal
}
