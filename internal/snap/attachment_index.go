package snap

import (
	"math"

	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/scene"
)

// WallHit is the result of a proximity search against wall faces.
type WallHit struct {
	ID       string
	Point    geom.Vec3
	Normal   geom.Vec3
	Distance float64
}

// RoofHit is the result of a proximity search against roof faces.
type RoofHit struct {
	ID       string
	Point    geom.Vec3
	Normal   geom.Vec3
	Distance float64
}

type indexedWallFace struct {
	id   string
	face scene.Face
}

type indexedRoofFace struct {
	id     string
	quad   geom.Quad
	normal geom.Vec3
}

// Index is the read-only proximity view over placed structural surfaces. It
// serves the fallback path of the resolver, independent of pointer-driven
// raycasting. Built from a registry snapshot; degenerate geometry never makes
// it in.
type Index struct {
	walls []indexedWallFace
	roofs []indexedRoofFace
}

// NewIndex flattens the registry's walls and roofs into a searchable list.
func NewIndex(reg *scene.Registry) *Index {
	idx := &Index{}
	reg.EachWallFace(func(id string, face scene.Face) {
		idx.walls = append(idx.walls, indexedWallFace{id: id, face: face})
	})
	reg.EachRoofFace(func(roof scene.RoofFace) {
		normal, ok := roof.Normal()
		if !ok {
			return
		}
		idx.roofs = append(idx.roofs, indexedRoofFace{id: roof.ID, quad: roof.Quad, normal: normal})
	})
	return idx
}

// NearestWall returns the closest wall face within maxDistance of point,
// measured as 3D Euclidean distance to the nearest point on the face.
func (idx *Index) NearestWall(point geom.Vec3, maxDistance float64) (WallHit, bool) {
	if idx == nil || maxDistance <= 0 {
		return WallHit{}, false
	}
	best := WallHit{Distance: math.Inf(1)}
	bestFacing := math.Inf(-1)
	for _, entry := range idx.walls {
		closest := entry.face.Quad.ClosestPoint(point)
		dist := closest.DistanceTo(point)
		if dist > maxDistance {
			continue
		}
		facing := entry.face.Normal.Dot(point.Sub(closest))
		if !closerFace(dist, facing, best.Distance, bestFacing) {
			continue
		}
		best = WallHit{ID: entry.id, Point: closest, Normal: entry.face.Normal, Distance: dist}
		bestFacing = facing
	}
	if math.IsInf(best.Distance, 1) {
		return WallHit{}, false
	}
	return best, true
}

// Wall measures a specific wall by id, used to bias searches toward the
// surface a piece is already attached to.
func (idx *Index) Wall(id string, point geom.Vec3) (WallHit, bool) {
	if idx == nil || id == "" {
		return WallHit{}, false
	}
	best := WallHit{Distance: math.Inf(1)}
	bestFacing := math.Inf(-1)
	for _, entry := range idx.walls {
		if entry.id != id {
			continue
		}
		closest := entry.face.Quad.ClosestPoint(point)
		dist := closest.DistanceTo(point)
		facing := entry.face.Normal.Dot(point.Sub(closest))
		if !closerFace(dist, facing, best.Distance, bestFacing) {
			continue
		}
		best = WallHit{ID: entry.id, Point: closest, Normal: entry.face.Normal, Distance: dist}
		bestFacing = facing
	}
	if math.IsInf(best.Distance, 1) {
		return WallHit{}, false
	}
	return best, true
}

// closerFace ranks candidate faces by distance, breaking exact ties in favor
// of the face whose outward normal points toward the query point. Coincident
// faces occur on zero-thickness walls.
func closerFace(dist, facing, bestDist, bestFacing float64) bool {
	const tie = 1e-12
	if dist < bestDist-tie {
		return true
	}
	if dist > bestDist+tie {
		return false
	}
	return facing > bestFacing
}

// NearestRoof returns the closest roof face within maxDistance of point.
func (idx *Index) NearestRoof(point geom.Vec3, maxDistance float64) (RoofHit, bool) {
	if idx == nil || maxDistance <= 0 {
		return RoofHit{}, false
	}
	best := RoofHit{Distance: math.Inf(1)}
	for _, entry := range idx.roofs {
		closest := entry.quad.ClosestPoint(point)
		dist := closest.DistanceTo(point)
		if dist > maxDistance || dist >= best.Distance {
			continue
		}
		best = RoofHit{ID: entry.id, Point: closest, Normal: entry.normal, Distance: dist}
	}
	if math.IsInf(best.Distance, 1) {
		return RoofHit{}, false
	}
	return best, true
}
