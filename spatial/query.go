// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package spatial

import "github.com/kestrel3d/kestrel/geom"

// SpatialQuery answers shape queries against a single,
// immutable Snapshot. It is safe for concurrent use by
// multiple goroutines, and for use alongside further
// mutation of the Structure the Snapshot was built from.
type SpatialQuery struct {
	snap *Snapshot
}

// NewQuery returns a SpatialQuery bound to snap.
func NewQuery(snap *Snapshot) *SpatialQuery { return &SpatialQuery{snap: snap} }

// Query returns the names of every shape in the snapshot that
// overlaps shape. Descent rejects a node outright when its
// AABB misses shape's bounding box; unless shape is itself an
// AABB (in which case the AABB-vs-AABB test is already exact),
// it additionally re-tests the node's AABB against the exact
// shape to eliminate conservative false positives — a sphere
// whose bounding box clips a node corner, for instance.
func (q *SpatialQuery) Query(shape geom.Shape) []string {
	if q.snap == nil || len(q.snap.nodes) == 0 {
		return nil
	}
	box := shape.Bounds()
	_, isAABB := shape.(geom.AABB)
	var out []string
	q.walk(0, shape, &box, isAABB, &out)
	return out
}

func (q *SpatialQuery) walk(i int, shape geom.Shape, shapeBox *geom.AABB, shapeIsAABB bool, out *[]string) {
	nodeBox := q.snap.boxes[i]
	if !geom.AABBOverlap(shapeBox, &nodeBox) {
		return
	}
	if !shapeIsAABB && !geom.Intersects(shape, nodeBox) {
		return
	}

	n := q.snap.nodes[i]
	if n.IsLeaf() {
		start, end := n.LeafRange()
		for idx := start; idx < end; idx++ {
			r := q.snap.records[idx]
			if geom.Intersects(shape, r.Shape) {
				*out = append(*out, r.Name)
			}
		}
		return
	}
	l, r := n.Children()
	q.walk(l, shape, shapeBox, shapeIsAABB, out)
	q.walk(r, shape, shapeBox, shapeIsAABB, out)
}
