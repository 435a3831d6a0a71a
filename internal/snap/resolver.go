package snap

import (
	"playhouse/engine/internal/geom"
	"playhouse/engine/internal/piece"
	"playhouse/engine/internal/scene"
)

// Options configures a single resolve attempt.
type Options struct {
	// PreferKind biases the proximity search toward re-finding the surface
	// category the piece was attached to before the drag.
	PreferKind scene.SurfaceKind
	// PreferSurfaceID is the surface the piece was attached to. While it
	// stays within the enlarged threshold it wins over closer candidates,
	// which keeps boundary drags from flickering.
	PreferSurfaceID string
	// TargetHeight is the independently adjustable mount height for
	// height-adjustable categories. Zero means "use the surface point".
	TargetHeight float64
}

// Result describes whether, where, and how a piece attaches.
type Result struct {
	Snapped  bool
	Position geom.Vec3
	Yaw      float64
	Pitch    float64
	// Normal is the surface normal the snap used; nil when not snapped.
	Normal *geom.Vec3
	// SurfaceID identifies the snap target; empty when not snapped or when
	// the surface is anonymous.
	SurfaceID string
	// Kind is the surface category of the result. Ground for free placement.
	Kind scene.SurfaceKind
}

// Resolver runs the placement decision against one scene snapshot. Resolve is
// a pure function of its inputs: identical calls yield identical results.
type Resolver struct {
	tuning Tuning
	index  *Index
	ground geom.Quad
}

// NewResolver builds a resolver over the given registry snapshot. Rebuild it
// whenever the registry is rebuilt.
func NewResolver(tuning Tuning, reg *scene.Registry) *Resolver {
	return &Resolver{
		tuning: tuning.Normalized(),
		index:  NewIndex(reg),
		ground: reg.Ground(),
	}
}

// Tuning exposes the normalized snap policy the resolver runs with.
func (r *Resolver) Tuning() Tuning {
	if r == nil {
		return DefaultTuning()
	}
	return r.tuning
}

// Index exposes the proximity view, shared with callers that need raw
// nearest-surface queries.
func (r *Resolver) Index() *Index {
	if r == nil {
		return nil
	}
	return r.index
}

// Resolve decides placement for one drag tick, in strict priority order:
// direct hit on a wall or roof, then proximity fallback (only from the ground
// or from no hit at all), then free placement. The direct-hit path is
// authoritative and never overridden by a closer proximity match.
func (r *Resolver) Resolve(category piece.Category, candidate geom.Vec3, yaw float64, hit *scene.SurfaceHit, opts Options) Result {
	if r == nil {
		return Result{Position: candidate, Yaw: yaw, Kind: scene.KindGround}
	}

	if hit != nil && hit.Kind != scene.KindGround {
		if result, ok := r.resolveDirect(category, hit, opts); ok {
			return result
		}
		// The pointer is over a surface this category cannot attach to.
		// The fallback is strictly a ground-drag convenience, so free
		// placement is all that remains.
		return r.freePlacement(candidate, yaw)
	}

	if result, ok := r.resolveProximity(category, candidate, opts); ok {
		return result
	}
	return r.freePlacement(candidate, yaw)
}

func (r *Resolver) resolveDirect(category piece.Category, hit *scene.SurfaceHit, opts Options) (Result, bool) {
	switch hit.Kind {
	case scene.KindWall:
		if !category.SnapsToWalls() {
			return Result{}, false
		}
		return r.snapToWall(category, hit.ID, hit.Point, hit.Normal, opts)
	case scene.KindRoof:
		if !category.SnapsToRoofs() {
			return Result{}, false
		}
		return r.snapToRoof(hit.ID, hit.Point, hit.Normal)
	default:
		return Result{}, false
	}
}

func (r *Resolver) resolveProximity(category piece.Category, candidate geom.Vec3, opts Options) (Result, bool) {
	switch {
	case category == piece.DecorativeRoofOnly:
		// Roof-only pieces are positioned beside the slope, so they get
		// the wider search radius.
		roof, ok := r.index.NearestRoof(candidate, r.tuning.RoofSearchRadius)
		if !ok {
			return Result{}, false
		}
		return r.snapToRoof(roof.ID, roof.Point, roof.Normal)
	case category.SnapsToWalls():
		wall, ok := r.nearestWallBiased(candidate, opts)
		if !ok {
			return Result{}, false
		}
		return r.snapToWall(category, wall.ID, wall.Point, wall.Normal, opts)
	default:
		return Result{}, false
	}
}

// nearestWallBiased prefers the previously attached wall while it remains
// inside the enlarged threshold, then falls back to the plain nearest search.
func (r *Resolver) nearestWallBiased(candidate geom.Vec3, opts Options) (WallHit, bool) {
	if opts.PreferKind == scene.KindWall && opts.PreferSurfaceID != "" {
		enlarged := r.tuning.WallSnapDistance * r.tuning.AttachedBiasMultiplier
		if wall, ok := r.index.Wall(opts.PreferSurfaceID, candidate); ok && wall.Distance <= enlarged {
			return wall, true
		}
	}
	return r.index.NearestWall(candidate, r.tuning.WallSnapDistance)
}

func (r *Resolver) snapToWall(category piece.Category, surfaceID string, point, normal geom.Vec3, opts Options) (Result, bool) {
	position := point.Add(normal.Scale(r.tuning.Clearance))
	if category.HeightAdjustable() {
		height := opts.TargetHeight
		if height == 0 {
			height = point.Y
		}
		position.Y = geom.Clamp(height, r.tuning.MinHeight, r.tuning.MaxHeight)
	}

	var yaw, pitch float64
	if category == piece.WindowDoor {
		// Windows and doors sit flush and axis-aligned to the wall face.
		wallYaw, ok := OrientToWallYaw(normal)
		if !ok {
			return Result{}, false
		}
		yaw = wallYaw
	} else {
		rotation, ok := OrientToNormal(normal)
		if !ok {
			return Result{}, false
		}
		yaw, pitch = rotation.Yaw, rotation.Pitch
	}

	stored := normal
	return Result{
		Snapped:   true,
		Position:  position,
		Yaw:       yaw,
		Pitch:     pitch,
		Normal:    &stored,
		SurfaceID: surfaceID,
		Kind:      scene.KindWall,
	}, true
}

func (r *Resolver) snapToRoof(surfaceID string, point, normal geom.Vec3) (Result, bool) {
	rotation, ok := OrientToNormal(normal)
	if !ok {
		return Result{}, false
	}
	stored := normal
	return Result{
		Snapped:   true,
		Position:  point.Add(normal.Scale(r.tuning.Clearance)),
		Yaw:       rotation.Yaw,
		Pitch:     rotation.Pitch,
		Normal:    &stored,
		SurfaceID: surfaceID,
		Kind:      scene.KindRoof,
	}, true
}

// freePlacement rests the piece on the build surface at the dragged location,
// clamped to the surface bounds.
func (r *Resolver) freePlacement(candidate geom.Vec3, yaw float64) Result {
	return Result{
		Position: r.ground.ClosestPoint(candidate),
		Yaw:      yaw,
		Kind:     scene.KindGround,
	}
}
