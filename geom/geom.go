// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package geom defines shared geometric primitives — AABBs,
// the tagged Shape union of §4.2, and pairwise intersection
// tests — used by both package collider (triangle BVH) and
// package spatial (shape BVH). It follows the flat,
// value-oriented style of package linear: AABB's mutators
// (Union, AddPoint) take pointer receivers and work in
// place, while the Triangle methods and Bounds take value
// receivers and return new values.
package geom

import "github.com/kestrel3d/kestrel/linear"

// V3 is an alias for the engine's 3-component vector type,
// so that shapes compose directly with package linear.
type V3 = linear.V3

// AABB is an axis-aligned bounding box.
type AABB struct {
	Min, Max V3
}

// Empty reports whether b contains no points (Min > Max on
// some axis). A freshly zeroed AABB is not empty (it
// contains the origin); use InvertedAABB as the identity
// element for a running Union.
func (b *AABB) Empty() bool {
	return b.Min[0] > b.Max[0] || b.Min[1] > b.Max[1] || b.Min[2] > b.Max[2]
}

// InvertedAABB returns an AABB suitable as the identity
// element of Union (it unions away to nothing).
func InvertedAABB() AABB {
	const inf = 1e30
	return AABB{V3{inf, inf, inf}, V3{-inf, -inf, -inf}}
}

// Union sets b to the union of x and y.
func (b *AABB) Union(x, y *AABB) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(x.Min[i], y.Min[i])
		b.Max[i] = max(x.Max[i], y.Max[i])
	}
}

// Center returns the AABB's midpoint.
func (b *AABB) Center() V3 {
	var c V3
	for i := 0; i < 3; i++ {
		c[i] = (b.Min[i] + b.Max[i]) / 2
	}
	return c
}

// Extent returns the AABB's per-axis side length.
func (b *AABB) Extent() V3 {
	var e V3
	for i := 0; i < 3; i++ {
		e[i] = b.Max[i] - b.Min[i]
	}
	return e
}

// Surface returns twice the AABB's surface area (the factor
// of two is dropped by SAH cost comparisons, but kept here
// since it costs nothing and matches the usual formulation).
func (b *AABB) Surface() float32 {
	e := b.Extent()
	return 2 * (e[0]*e[1] + e[1]*e[2] + e[2]*e[0])
}

// AddPoint grows b (in place) to contain p.
func (b *AABB) AddPoint(p *V3) {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] {
			b.Min[i] = p[i]
		}
		if p[i] > b.Max[i] {
			b.Max[i] = p[i]
		}
	}
}

// Triangle is three points in counterclockwise order.
type Triangle [3]V3

// AABB returns the triangle's bounding box.
func (t Triangle) AABB() AABB {
	b := AABB{t[0], t[0]}
	b.AddPoint(&t[1])
	b.AddPoint(&t[2])
	return b
}

// Centroid returns the triangle's centroid.
func (t Triangle) Centroid() V3 {
	var c V3
	for i := 0; i < 3; i++ {
		c[i] = (t[0][i] + t[1][i] + t[2][i]) / 3
	}
	return c
}

// Normal returns the triangle's (unnormalized) face normal.
func (t Triangle) Normal() V3 {
	var e1, e2, n V3
	e1.Sub(&t[1], &t[0])
	e2.Sub(&t[2], &t[0])
	n.Cross(&e1, &e2)
	return n
}
