// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package geom

// Kind tags the concrete type stored in a Shape.
type Kind int

const (
	KPoint Kind = iota
	KLine
	KTriangle
	KSphere
	KAABB
	KCone
	KFrustum
)

func (k Kind) String() string {
	switch k {
	case KPoint:
		return "point"
	case KLine:
		return "line"
	case KTriangle:
		return "triangle"
	case KSphere:
		return "sphere"
	case KAABB:
		return "aabb"
	case KCone:
		return "cone"
	case KFrustum:
		return "frustum"
	default:
		return "invalid"
	}
}

// Point is a single point in space.
type Point struct{ P V3 }

// Line is a bounded segment (or ray, when Maximum is
// unbounded) of the form P + t·D, t ∈ [Minimum, Maximum].
type Line struct {
	Origin    V3
	Direction V3
	Minimum   float32
	Maximum   float32
}

// Sphere is a ball of the given Radius centered at Center.
type Sphere struct {
	Center V3
	Radius float32
}

// Cone is a right circular cone with its apex at Center,
// opening along Direction (unit length) over Height, with
// base radius Radius.
type Cone struct {
	Center    V3
	Direction V3
	Height    float32
	Radius    float32
}

// Frustum is six inward-facing planes (Nx+Ny+Nz+D = 0 form,
// stored as V3 normal plus offset). It is query-only: it
// never appears as a stored shape in the spatial structure,
// only as the query argument of an intersection test.
type Frustum struct {
	Planes [6][4]float32
}

// Shape is a tagged union over the geometry kinds the
// spatial structure and the collider can exchange queries
// against. A Go type switch on the dynamic type substitutes
// for virtual dispatch; see Intersects.
type Shape interface {
	Kind() Kind
	Bounds() AABB
}

func (Point) Kind() Kind    { return KPoint }
func (Line) Kind() Kind     { return KLine }
func (Triangle) Kind() Kind { return KTriangle }
func (Sphere) Kind() Kind   { return KSphere }
func (AABB) Kind() Kind     { return KAABB }
func (Cone) Kind() Kind     { return KCone }
func (Frustum) Kind() Kind  { return KFrustum }

func (p Point) Bounds() AABB { return AABB{p.P, p.P} }

func (l Line) Bounds() AABB {
	lo, hi := l.Minimum, l.Maximum
	const inf = 1e30
	if hi > inf {
		hi = lo // unbounded ray: degenerate box at the origin end
	}
	var a, b V3
	for i := 0; i < 3; i++ {
		a[i] = l.Origin[i] + l.Direction[i]*lo
		b[i] = l.Origin[i] + l.Direction[i]*hi
	}
	box := AABB{a, a}
	box.AddPoint(&b)
	return box
}

func (t Triangle) Bounds() AABB { return t.AABB() }

func (s Sphere) Bounds() AABB {
	r := V3{s.Radius, s.Radius, s.Radius}
	var min, max V3
	min.Sub(&s.Center, &r)
	max.Add(&s.Center, &r)
	return AABB{min, max}
}

func (b AABB) Bounds() AABB { return b }

func (c Cone) Bounds() AABB {
	// Conservative box: apex point unioned with the base
	// circle's bounding sphere (radius Radius, centered
	// Height along Direction).
	var base V3
	for i := 0; i < 3; i++ {
		base[i] = c.Center[i] + c.Direction[i]*c.Height
	}
	r := V3{c.Radius, c.Radius, c.Radius}
	var lo, hi V3
	lo.Sub(&base, &r)
	hi.Add(&base, &r)
	box := AABB{lo, hi}
	box.AddPoint(&c.Center)
	return box
}

func (f Frustum) Bounds() AABB {
	// A frustum is unbounded in general; callers must not
	// rely on this for culling. Returned for interface
	// completeness only.
	const inf = 1e30
	return AABB{V3{-inf, -inf, -inf}, V3{inf, inf, inf}}
}
