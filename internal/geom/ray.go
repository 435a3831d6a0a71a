package geom

// Ray is a half-line from Origin along the unit Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// IntersectPlane returns the distance along the ray to the plane through
// point with the given normal. Rays parallel to the plane or pointing away
// from it report no intersection.
func (r Ray) IntersectPlane(point, normal Vec3) (float64, bool) {
	denom := r.Direction.Dot(normal)
	if denom > -Epsilon && denom < Epsilon {
		return 0, false
	}
	t := point.Sub(r.Origin).Dot(normal) / denom
	if t < 0 {
		return 0, false
	}
	return t, true
}

// At returns the point at distance t along the ray.
func (r Ray) At(t float64) Vec3 {
	return r.Origin.Add(r.Direction.Scale(t))
}

// Quad is a bounded planar rectangle: Origin plus the spans U and V. The
// normal follows the right-hand rule of U cross V.
type Quad struct {
	Origin Vec3
	U      Vec3
	V      Vec3
}

// Normal returns the unit normal of the quad, or false when the spans are
// degenerate.
func (q Quad) Normal() (Vec3, bool) {
	return q.U.Cross(q.V).Normalized()
}

// Center returns the midpoint of the quad.
func (q Quad) Center() Vec3 {
	return q.Origin.Add(q.U.Scale(0.5)).Add(q.V.Scale(0.5))
}

// IntersectRay returns the hit point and ray distance where the ray crosses
// the quad, testing both faces. Misses and degenerate quads report false.
func (q Quad) IntersectRay(r Ray) (Vec3, float64, bool) {
	normal, ok := q.Normal()
	if !ok {
		return Vec3{}, 0, false
	}
	// IntersectPlane is two-sided, so rays arriving from behind the quad
	// register without a flipped-normal retry.
	t, ok := r.IntersectPlane(q.Origin, normal)
	if !ok {
		return Vec3{}, 0, false
	}
	point := r.At(t)
	if !q.contains(point) {
		return Vec3{}, 0, false
	}
	return point, t, true
}

// ClosestPoint returns the point on the quad nearest to p.
func (q Quad) ClosestPoint(p Vec3) Vec3 {
	rel := p.Sub(q.Origin)
	uLen := q.U.LengthSq()
	vLen := q.V.LengthSq()
	if uLen <= Epsilon || vLen <= Epsilon {
		return q.Origin
	}
	s := Clamp(rel.Dot(q.U)/uLen, 0, 1)
	t := Clamp(rel.Dot(q.V)/vLen, 0, 1)
	return q.Origin.Add(q.U.Scale(s)).Add(q.V.Scale(t))
}

// DistanceTo returns the Euclidean distance from p to the quad.
func (q Quad) DistanceTo(p Vec3) float64 {
	return q.ClosestPoint(p).DistanceTo(p)
}

func (q Quad) contains(p Vec3) bool {
	rel := p.Sub(q.Origin)
	uLen := q.U.LengthSq()
	vLen := q.V.LengthSq()
	if uLen <= Epsilon || vLen <= Epsilon {
		return false
	}
	s := rel.Dot(q.U) / uLen
	t := rel.Dot(q.V) / vLen
	const slack = 1e-7
	return s >= -slack && s <= 1+slack && t >= -slack && t <= 1+slack
}
