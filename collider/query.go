// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package collider

import (
	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
)

func transformPoint(m *linear.M4, p geom.V3) geom.V3 {
	w := linear.V4{p[0], p[1], p[2], 1}
	var v linear.V4
	v.Mul(m, &w)
	return geom.V3{v[0], v[1], v[2]}
}

func transformDirection(m *linear.M4, d geom.V3) geom.V3 {
	w := linear.V4{d[0], d[1], d[2], 0}
	var v linear.V4
	v.Mul(m, &w)
	return geom.V3{v[0], v[1], v[2]}
}

func transformAABB(m *linear.M4, b geom.AABB) geom.AABB {
	corners := [8]geom.V3{
		{b.Min[0], b.Min[1], b.Min[2]}, {b.Max[0], b.Min[1], b.Min[2]},
		{b.Min[0], b.Max[1], b.Min[2]}, {b.Max[0], b.Max[1], b.Min[2]},
		{b.Min[0], b.Min[1], b.Max[2]}, {b.Max[0], b.Min[1], b.Max[2]},
		{b.Min[0], b.Max[1], b.Max[2]}, {b.Max[0], b.Max[1], b.Max[2]},
	}
	out := geom.AABB{Min: transformPoint(m, corners[0]), Max: transformPoint(m, corners[0])}
	for i := 1; i < 8; i++ {
		p := transformPoint(m, corners[i])
		out.AddPoint(&p)
	}
	return out
}

// transformFrustumToLocal converts f's planes from world
// space to the collider's local space. Given a world-space
// plane (n, d) and the collider's local-to-world transform
// world, the equivalent local-space plane is
// transpose(world) · (n, d) — the standard plane-transform
// rule (planes transform by the inverse-transpose of the
// point transform, so converting the other direction uses
// the non-inverted transpose).
func transformFrustumToLocal(world *linear.M4, f geom.Frustum) geom.Frustum {
	var t linear.M4
	t.Transpose(world)
	var out geom.Frustum
	for i, p := range f.Planes {
		w := linear.V4{p[0], p[1], p[2], p[3]}
		var v linear.V4
		v.Mul(&t, &w)
		out.Planes[i] = [4]float32{v[0], v[1], v[2], v[3]}
	}
	return out
}

// toLocal converts shape, given in world space, into the
// collider's local space by applying invWorld (the inverse
// of the transform that places the collider in the world)
// once, so the traversal that follows never needs to
// transform a single triangle.
func toLocal(world, invWorld *linear.M4, shape geom.Shape) geom.Shape {
	switch s := shape.(type) {
	case geom.Point:
		return geom.Point{P: transformPoint(invWorld, s.P)}
	case geom.Line:
		return geom.Line{
			Origin:    transformPoint(invWorld, s.Origin),
			Direction: transformDirection(invWorld, s.Direction),
			Minimum:   s.Minimum,
			Maximum:   s.Maximum,
		}
	case geom.Sphere:
		return geom.Sphere{Center: transformPoint(invWorld, s.Center), Radius: s.Radius}
	case geom.AABB:
		return transformAABB(invWorld, s)
	case geom.Cone:
		return geom.Cone{
			Center:    transformPoint(invWorld, s.Center),
			Direction: transformDirection(invWorld, s.Direction),
			Height:    s.Height,
			Radius:    s.Radius,
		}
	case geom.Triangle:
		var t geom.Triangle
		for i := range t {
			t[i] = transformPoint(invWorld, s[i])
		}
		return t
	case geom.Frustum:
		return transformFrustumToLocal(world, s)
	default:
		return shape
	}
}

// Query reports whether shape (given in world space)
// overlaps any triangle of c, c itself being positioned in
// the world by the rigid/affine transform world. It panics
// if c.NeedsRebuild().
func (c *Collider) Query(world *linear.M4, shape geom.Shape) bool {
	if c.dirty {
		panic(ErrInvalidState)
	}
	if len(c.nodes) == 0 {
		return false
	}
	var inv linear.M4
	inv.Invert(world)
	local := toLocal(world, &inv, shape)
	return c.queryNode(0, local)
}

func (c *Collider) queryNode(i int, shape geom.Shape) bool {
	box := c.boxes[i]
	if !geom.Intersects(box, shape) {
		return false
	}
	n := c.nodes[i]
	if n.IsLeaf() {
		start, end := n.LeafRange()
		for t := start; t < end; t++ {
			if geom.Intersects(c.tris[t], shape) {
				return true
			}
		}
		return false
	}
	l, r := n.Children()
	return c.queryNode(l, shape) || c.queryNode(r, shape)
}

// Hit is the result of a successful LineQuery: the distance
// along the query line (in the line's own parameterization,
// i.e. world units when the line was given in world space),
// the world-space point of impact, and the index of the
// struck triangle within c.Triangles().
type Hit struct {
	Distance float32
	Point    geom.V3
	Triangle int
}

// LineQuery returns the nearest intersection of line
// (given in world space) against c, positioned in the world
// by transform world. The second result is false when there
// is no hit within the line's [Minimum, Maximum] range.
func (c *Collider) LineQuery(world *linear.M4, line geom.Line) (Hit, bool) {
	if c.dirty {
		panic(ErrInvalidState)
	}
	if len(c.nodes) == 0 {
		return Hit{}, false
	}
	var inv linear.M4
	inv.Invert(world)
	local := toLocal(world, &inv, line).(geom.Line)

	best := Hit{Triangle: -1}
	bestT := local.Maximum
	c.lineNode(0, &local, &bestT, &best)
	if best.Triangle < 0 {
		return Hit{}, false
	}
	localPoint := geom.V3{
		local.Origin[0] + local.Direction[0]*best.Distance,
		local.Origin[1] + local.Direction[1]*best.Distance,
		local.Origin[2] + local.Direction[2]*best.Distance,
	}
	best.Point = transformPoint(world, localPoint)
	return best, true
}

func (c *Collider) lineNode(i int, line *geom.Line, bestT *float32, best *Hit) {
	box := c.boxes[i]
	probe := *line
	probe.Maximum = *bestT
	if isNaNf(geom.LineAABB(&probe, &box)) {
		return
	}
	n := c.nodes[i]
	if n.IsLeaf() {
		start, end := n.LeafRange()
		for t := start; t < end; t++ {
			tri := c.tris[t]
			probe.Maximum = *bestT
			d := geom.LineTriangle(&probe, &tri)
			if isNaNf(d) {
				continue
			}
			*bestT = d
			best.Distance = d
			best.Triangle = t
		}
		return
	}
	l, r := n.Children()
	c.lineNode(l, line, bestT, best)
	c.lineNode(r, line, bestT, best)
}

func isNaNf(f float32) bool { return f != f }
