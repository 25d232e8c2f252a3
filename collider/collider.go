// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package collider implements a surface-area-heuristic
// binned BVH over triangle sets: build, shape/ray/frustum
// queries, collider-vs-collider intersection (static and
// swept/CCD), and an on-disk serialized form. It follows
// the flat, index-addressed layout of package node's graphs
// and package engine/skin's bone hierarchies, and shares its
// SAH build with package spatial via internal/sahbvh.
package collider

import (
	"fmt"

	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/internal/sahbvh"
	"github.com/kestrel3d/kestrel/kerr"
	"github.com/kestrel3d/kestrel/linear"
)

// ErrInvalidState is returned when a query is attempted on
// a Collider that needs a rebuild. It is the package kerr's
// InvalidState sentinel, so callers may match against either name.
var ErrInvalidState = kerr.Sentinel(kerr.InvalidState)

// Node is the BVH node type, aliased from the shared builder
// so API users never need to import internal/sahbvh.
type Node = sahbvh.Node

// Collider owns a set of triangles and the BVH built over
// them. The zero value is an empty, already-built collider.
type Collider struct {
	tris  []geom.Triangle
	nodes []Node
	boxes []geom.AABB
	dirty bool
}

// New returns an empty, built Collider.
func New() *Collider { return &Collider{} }

// Len returns the number of triangles currently stored.
func (c *Collider) Len() int { return len(c.tris) }

// Triangles returns the collider's triangle slice. Callers
// must not retain it across a mutating call.
func (c *Collider) Triangles() []geom.Triangle { return c.tris }

// Nodes returns the BVH node slice, valid only when
// !c.NeedsRebuild().
func (c *Collider) Nodes() []Node { return c.nodes }

// Boxes returns the per-node AABB slice, parallel to Nodes.
func (c *Collider) Boxes() []geom.AABB { return c.boxes }

// NeedsRebuild reports whether Rebuild must be called before
// any query.
func (c *Collider) NeedsRebuild() bool { return c.dirty }

// AddTriangle appends a single triangle and marks the
// collider dirty.
func (c *Collider) AddTriangle(t geom.Triangle) {
	c.tris = append(c.tris, t)
	c.dirty = true
}

// AddTriangles appends a range of triangles.
func (c *Collider) AddTriangles(ts []geom.Triangle) {
	c.tris = append(c.tris, ts...)
	c.dirty = true
}

// Clear removes every triangle and node.
func (c *Collider) Clear() {
	c.tris = c.tris[:0]
	c.nodes = nil
	c.boxes = nil
	c.dirty = false
}

// ImportMesh replaces the collider's contents with a
// triangle list built from interleaved position data and an
// index buffer (three indices per triangle), the same
// layout package engine/mesh stages vertex data in.
func (c *Collider) ImportMesh(positions []linear.V3, indices []uint32) error {
	if len(indices)%3 != 0 {
		return fmt.Errorf("collider: index count %d not a multiple of 3", len(indices))
	}
	c.Clear()
	for i := 0; i < len(indices); i += 3 {
		a, b, d := indices[i], indices[i+1], indices[i+2]
		if int(a) >= len(positions) || int(b) >= len(positions) || int(d) >= len(positions) {
			return fmt.Errorf("collider: index out of range")
		}
		c.AddTriangle(geom.Triangle{positions[a], positions[b], positions[d]})
	}
	return nil
}

// canon returns t with vertices sorted into a canonical
// order (lexicographic on coordinates), so that two
// triangles covering the same points compare equal
// regardless of winding or starting vertex. Optimize uses
// this for deduplication; it does not alter t in place.
func canon(t geom.Triangle) geom.Triangle {
	less := func(a, b geom.V3) bool {
		if a[0] != b[0] {
			return a[0] < b[0]
		}
		if a[1] != b[1] {
			return a[1] < b[1]
		}
		return a[2] < b[2]
	}
	v := t
	if less(v[1], v[0]) {
		v[0], v[1] = v[1], v[0]
	}
	if less(v[2], v[1]) {
		v[1], v[2] = v[2], v[1]
	}
	if less(v[1], v[0]) {
		v[0], v[1] = v[1], v[0]
	}
	return v
}

func degenerate(t *geom.Triangle) bool {
	n := t.Normal()
	return n.Dot(&n) < 1e-12
}

// Optimize deduplicates triangles (after canonicalizing each
// triangle's vertex order) and drops degenerate ones. It
// marks the collider dirty if it removed anything.
func (c *Collider) Optimize() {
	seen := make(map[geom.Triangle]struct{}, len(c.tris))
	out := c.tris[:0]
	changed := false
	for _, t := range c.tris {
		if degenerate(&t) {
			changed = true
			continue
		}
		k := canon(t)
		if _, ok := seen[k]; ok {
			changed = true
			continue
		}
		seen[k] = struct{}{}
		out = append(out, t)
	}
	c.tris = out
	if changed {
		c.dirty = true
	}
}

// Rebuild (re)builds the BVH over the current triangle set.
// An empty triangle set produces an empty tree, which is a
// permitted input.
func (c *Collider) Rebuild() {
	c.nodes, c.boxes = sahbvh.Build(c.tris)
	c.dirty = false
}
