// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package geom

import "math"

// NaN is returned by ray/line intersection tests in place
// of a float32 when there is no intersection, following the
// Möller–Trumbore convention of signaling "no hit" through
// the distance channel rather than a separate bool.
var NaN = float32(math.NaN())

func isNaN(f float32) bool { return f != f }

// AABBOverlap reports whether a and b overlap (touching
// counts as overlap).
func AABBOverlap(a, b *AABB) bool {
	for i := 0; i < 3; i++ {
		if a.Min[i] > b.Max[i] || b.Min[i] > a.Max[i] {
			return false
		}
	}
	return true
}

// SphereOverlapsAABB reports whether s overlaps b.
func SphereOverlapsAABB(s *Sphere, b *AABB) bool {
	var d float32
	for i := 0; i < 3; i++ {
		c := s.Center[i]
		if c < b.Min[i] {
			d += (b.Min[i] - c) * (b.Min[i] - c)
		} else if c > b.Max[i] {
			d += (c - b.Max[i]) * (c - b.Max[i])
		}
	}
	return d <= s.Radius*s.Radius
}

// SphereOverlapsSphere reports whether a and b overlap.
func SphereOverlapsSphere(a, b *Sphere) bool {
	var d V3
	d.Sub(&a.Center, &b.Center)
	r := a.Radius + b.Radius
	return d.Dot(&d) <= r*r
}

// PointInAABB reports whether p lies inside (or on the
// boundary of) b.
func PointInAABB(p *V3, b *AABB) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// LineAABB returns the entry distance along l at which l
// intersects b within [l.Minimum, l.Maximum], or NaN if
// there is no such intersection (slab method).
func LineAABB(l *Line, b *AABB) float32 {
	tmin, tmax := l.Minimum, l.Maximum
	for i := 0; i < 3; i++ {
		d := l.Direction[i]
		if d == 0 {
			if l.Origin[i] < b.Min[i] || l.Origin[i] > b.Max[i] {
				return NaN
			}
			continue
		}
		inv := 1 / d
		t1 := (b.Min[i] - l.Origin[i]) * inv
		t2 := (b.Max[i] - l.Origin[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		if t1 > tmin {
			tmin = t1
		}
		if t2 < tmax {
			tmax = t2
		}
		if tmin > tmax {
			return NaN
		}
	}
	return tmin
}

// LineSphere returns the nearest entry distance along l at
// which l intersects s within [l.Minimum, l.Maximum], or NaN.
func LineSphere(l *Line, s *Sphere) float32 {
	var m V3
	m.Sub(&l.Origin, &s.Center)
	b := m.Dot(&l.Direction)
	c := m.Dot(&m) - s.Radius*s.Radius
	if c > 0 && b > 0 {
		return NaN
	}
	disc := b*b - c
	if disc < 0 {
		return NaN
	}
	t := -b - float32(math.Sqrt(float64(disc)))
	if t < l.Minimum {
		t = -b + float32(math.Sqrt(float64(disc)))
	}
	if t < l.Minimum || t > l.Maximum {
		return NaN
	}
	return t
}

// LineTriangle returns the distance along l to its
// intersection with t within [l.Minimum, l.Maximum], using
// the Möller–Trumbore algorithm. It returns NaN when the
// ray is nearly parallel to the triangle's plane
// (|det| < 1e-5) or when there is no hit in range.
func LineTriangle(l *Line, tri *Triangle) float32 {
	var e1, e2, p, s, q V3
	e1.Sub(&tri[1], &tri[0])
	e2.Sub(&tri[2], &tri[0])
	p.Cross(&l.Direction, &e2)
	det := e1.Dot(&p)
	if det > -1e-5 && det < 1e-5 {
		return NaN
	}
	invDet := 1 / det
	s.Sub(&l.Origin, &tri[0])
	u := s.Dot(&p) * invDet
	if u < 0 || u > 1 {
		return NaN
	}
	q.Cross(&s, &e1)
	v := l.Direction.Dot(&q) * invDet
	if v < 0 || u+v > 1 {
		return NaN
	}
	t := e2.Dot(&q) * invDet
	if t < l.Minimum || t > l.Maximum {
		return NaN
	}
	return t
}

// axis13 builds the 13 candidate separating axes for the
// triangle/AABB SAT test: the 3 box face normals, the
// triangle's normal, and the 9 edge cross-products.
func axis13(tri *Triangle) [13]V3 {
	var a [13]V3
	a[0] = V3{1, 0, 0}
	a[1] = V3{0, 1, 0}
	a[2] = V3{0, 0, 1}
	a[3] = tri.Normal()
	edges := [3]V3{}
	edges[0].Sub(&tri[1], &tri[0])
	edges[1].Sub(&tri[2], &tri[1])
	edges[2].Sub(&tri[0], &tri[2])
	box := [3]V3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	k := 4
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			a[k].Cross(&edges[i], &box[j])
			k++
		}
	}
	return a
}

// TriangleOverlapsAABB reports whether tri and b overlap,
// using the separating-axis test along the 13 candidate
// axes (3 box normals, 1 triangle normal, 9 edge cross
// products), bounded by a plane–box overlap test on each.
func TriangleOverlapsAABB(tri *Triangle, b *AABB) bool {
	c := b.Center()
	e := b.Extent()
	e[0] /= 2
	e[1] /= 2
	e[2] /= 2
	var v [3]V3
	for i := 0; i < 3; i++ {
		v[i].Sub(&tri[i], &c)
	}
	for _, axis := range axis13(tri) {
		if axis.Dot(&axis) < 1e-12 {
			continue // degenerate cross product (parallel edges)
		}
		p0 := axis.Dot(&v[0])
		p1 := axis.Dot(&v[1])
		p2 := axis.Dot(&v[2])
		pmin := min(p0, min(p1, p2))
		pmax := max(p0, max(p1, p2))
		r := e[0]*abs32(axis[0]) + e[1]*abs32(axis[1]) + e[2]*abs32(axis[2])
		if pmin > r || pmax < -r {
			return false
		}
	}
	return true
}

func abs32(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}

// TriangleOverlapsTriangle reports whether a and b overlap,
// following the Guigue–Devillers predicate: it first
// classifies each triangle's vertices against the other
// triangle's plane and special-cases the co-planar
// configuration (all six signed distances ~0) with a 2D
// separating-axis test on the dominant-axis projection.
func TriangleOverlapsTriangle(a, b *Triangle) bool {
	na := a.Normal()
	da := -na.Dot(&a[0])
	sb := [3]float32{}
	for i := 0; i < 3; i++ {
		sb[i] = na.Dot(&b[i]) + da
	}
	if sameSign(sb[0], sb[1], sb[2]) {
		return false
	}

	nb := b.Normal()
	db := -nb.Dot(&b[0])
	sa := [3]float32{}
	for i := 0; i < 3; i++ {
		sa[i] = nb.Dot(&a[i]) + db
	}
	if sameSign(sa[0], sa[1], sa[2]) {
		return false
	}

	const eps = 1e-7
	coplanar := abs32(sb[0]) < eps && abs32(sb[1]) < eps && abs32(sb[2]) < eps
	if coplanar {
		return coplanarOverlap(a, b, &na)
	}

	var dir V3
	dir.Cross(&na, &nb)
	// Project both triangles onto dir and intersect the two
	// resulting 1D intervals.
	amin, amax := projectInterval(a, &dir, sa[:])
	bmin, bmax := projectInterval(b, &dir, sb[:])
	return amin <= bmax && bmin <= amax
}

func sameSign(a, b, c float32) bool {
	const eps = 1e-9
	pos, neg := 0, 0
	for _, v := range [3]float32{a, b, c} {
		if v > eps {
			pos++
		} else if v < -eps {
			neg++
		}
	}
	return pos == 3 || neg == 3
}

func projectInterval(t *Triangle, dir *V3, signedDist []float32) (lo, hi float32) {
	lo, hi = math.MaxFloat32, -math.MaxFloat32
	for i := 0; i < 3; i++ {
		p := dir.Dot(&t[i])
		if p < lo {
			lo = p
		}
		if p > hi {
			hi = p
		}
	}
	return
}

// coplanarOverlap handles the degenerate case where a and b
// lie in (nearly) the same plane, by projecting onto the
// two axes with the largest-magnitude normal components and
// running a 2D edge/edge + point-in-triangle test.
func coplanarOverlap(a, b *Triangle, n *V3) bool {
	i0, i1 := 0, 1
	ax, ay, az := abs32(n[0]), abs32(n[1]), abs32(n[2])
	switch {
	case ax >= ay && ax >= az:
		i0, i1 = 1, 2
	case ay >= ax && ay >= az:
		i0, i1 = 0, 2
	default:
		i0, i1 = 0, 1
	}
	pa := [3][2]float32{{a[0][i0], a[0][i1]}, {a[1][i0], a[1][i1]}, {a[2][i0], a[2][i1]}}
	pb := [3][2]float32{{b[0][i0], b[0][i1]}, {b[1][i0], b[1][i1]}, {b[2][i0], b[2][i1]}}
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			if segSegIntersect2D(pa[i], pa[(i+1)%3], pb[j], pb[(j+1)%3]) {
				return true
			}
		}
	}
	return pointInTri2D(pa[0], pb) || pointInTri2D(pb[0], pa)
}

func segSegIntersect2D(p1, p2, p3, p4 [2]float32) bool {
	d1 := cross2D(sub2D(p4, p3), sub2D(p1, p3))
	d2 := cross2D(sub2D(p4, p3), sub2D(p2, p3))
	d3 := cross2D(sub2D(p2, p1), sub2D(p3, p1))
	d4 := cross2D(sub2D(p2, p1), sub2D(p4, p1))
	return ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0))
}

func pointInTri2D(p [2]float32, t [3][2]float32) bool {
	d1 := cross2D(sub2D(t[1], t[0]), sub2D(p, t[0]))
	d2 := cross2D(sub2D(t[2], t[1]), sub2D(p, t[1]))
	d3 := cross2D(sub2D(t[0], t[2]), sub2D(p, t[2]))
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func sub2D(a, b [2]float32) [2]float32 { return [2]float32{a[0] - b[0], a[1] - b[1]} }
func cross2D(a, b [2]float32) float32  { return a[0]*b[1] - a[1]*b[0] }

// Intersects dispatches a pairwise overlap test between any
// two stored shape kinds via a nested type switch,
// substituting for virtual dispatch (§9 "Polymorphic shape
// dispatch"). It is symmetric: Intersects(a, b) ==
// Intersects(b, a).
func Intersects(a, b Shape) bool {
	// Evaluate every pair in one fixed order (higher Kind
	// first), so both argument orders run the same test.
	if a.Kind() < b.Kind() {
		a, b = b, a
	}
	switch x := a.(type) {
	case AABB:
		return intersectsAABB(&x, b)
	case Sphere:
		return intersectsSphere(&x, b)
	case Triangle:
		return intersectsTriangle(&x, b)
	case Point:
		return intersectsPoint(&x, b)
	case Line:
		return intersectsLine(&x, b)
	case Cone:
		ba := x.Bounds()
		return intersectsAABBFallback(&ba, b)
	case Frustum:
		return frustumOverlaps(&x, b)
	default:
		return false
	}
}

func intersectsAABB(x *AABB, b Shape) bool {
	switch y := b.(type) {
	case AABB:
		return AABBOverlap(x, &y)
	case Sphere:
		return SphereOverlapsAABB(&y, x)
	case Triangle:
		return TriangleOverlapsAABB(&y, x)
	case Point:
		return PointInAABB(&y.P, x)
	case Line:
		return !isNaN(LineAABB(&y, x))
	default:
		ab := y.Bounds()
		return AABBOverlap(x, &ab)
	}
}

func intersectsSphere(x *Sphere, b Shape) bool {
	switch y := b.(type) {
	case Sphere:
		return SphereOverlapsSphere(x, &y)
	case AABB:
		return SphereOverlapsAABB(x, &y)
	case Point:
		var d V3
		d.Sub(&x.Center, &y.P)
		return d.Dot(&d) <= x.Radius*x.Radius
	case Line:
		return !isNaN(LineSphere(&y, x))
	default:
		bb := y.Bounds()
		return SphereOverlapsAABB(x, &bb)
	}
}

func intersectsTriangle(x *Triangle, b Shape) bool {
	switch y := b.(type) {
	case Triangle:
		return TriangleOverlapsTriangle(x, &y)
	case AABB:
		return TriangleOverlapsAABB(x, &y)
	case Line:
		return !isNaN(LineTriangle(&y, x))
	default:
		xb, yb := x.Bounds(), y.Bounds()
		return AABBOverlap(&xb, &yb)
	}
}

func intersectsPoint(x *Point, b Shape) bool {
	switch y := b.(type) {
	case AABB:
		return PointInAABB(&x.P, &y)
	case Sphere:
		var d V3
		d.Sub(&x.P, &y.Center)
		return d.Dot(&d) <= y.Radius*y.Radius
	default:
		yb := y.Bounds()
		return PointInAABB(&x.P, &yb)
	}
}

func intersectsLine(x *Line, b Shape) bool {
	switch y := b.(type) {
	case AABB:
		return !isNaN(LineAABB(x, &y))
	case Sphere:
		return !isNaN(LineSphere(x, &y))
	case Triangle:
		return !isNaN(LineTriangle(x, &y))
	default:
		yb := y.Bounds()
		return !isNaN(LineAABB(x, &yb))
	}
}

func intersectsAABBFallback(box *AABB, b Shape) bool {
	bb := b.Bounds()
	return AABBOverlap(box, &bb)
}

// frustumOverlaps reports whether any point of b's AABB
// could lie inside the frustum, using the standard
// AABB-vs-plane test against all six planes (conservative:
// it may return true for boxes just outside a corner).
func frustumOverlaps(f *Frustum, b Shape) bool {
	box := b.Bounds()
	c := box.Center()
	e := box.Extent()
	e[0] /= 2
	e[1] /= 2
	e[2] /= 2
	for _, p := range f.Planes {
		n := V3{p[0], p[1], p[2]}
		r := e[0]*abs32(n[0]) + e[1]*abs32(n[1]) + e[2]*abs32(n[2])
		d := n.Dot(&c) + p[3]
		if d+r < 0 {
			return false
		}
	}
	return true
}
