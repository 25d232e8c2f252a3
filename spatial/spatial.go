// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package spatial implements a named-shape spatial index: an
// axis-aligned-box BVH built over arbitrary geom.Shape values,
// keyed by name, queried through an immutable snapshot handle
// so readers never race a writer mutating the live structure.
// It shares its build algorithm with package collider via
// internal/sahbvh.
package spatial

import (
	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/internal/sahbvh"
)

// Record pairs a name with the shape stored under it.
type Record struct {
	Name  string
	Shape geom.Shape
}

// Bounds and Centroid let Record satisfy sahbvh.Item.
func (r Record) Bounds() geom.AABB { return r.Shape.Bounds() }
func (r Record) Centroid() geom.V3 { b := r.Shape.Bounds(); return b.Center() }

// Structure is the mutable, single-writer side of the spatial
// index: the set of named shapes currently registered.
// Rebuild snapshots it into a queryable, immutable Snapshot.
type Structure struct {
	items map[string]geom.Shape
	dirty bool
}

// New returns an empty Structure.
func New() *Structure { return &Structure{items: map[string]geom.Shape{}} }

// Update inserts or replaces the shape stored under name.
func (s *Structure) Update(name string, shape geom.Shape) {
	s.items[name] = shape
	s.dirty = true
}

// Remove deletes the shape stored under name, if any.
func (s *Structure) Remove(name string) {
	if _, ok := s.items[name]; !ok {
		return
	}
	delete(s.items, name)
	s.dirty = true
}

// Clear removes every stored shape.
func (s *Structure) Clear() {
	s.items = map[string]geom.Shape{}
	s.dirty = true
}

// Len returns the number of shapes currently registered.
func (s *Structure) Len() int { return len(s.items) }

// NeedsRebuild reports whether Update/Remove/Clear have run
// since the last Rebuild.
func (s *Structure) NeedsRebuild() bool { return s.dirty }

// Snapshot is an immutable BVH over the shapes registered in
// a Structure at the time Rebuild was called. It shares no
// mutable state with the Structure it came from, so a
// SpatialQuery built on top of it may run concurrently with
// further mutation of that Structure.
type Snapshot struct {
	records []Record
	nodes   []sahbvh.Node
	boxes   []geom.AABB
}

// Rebuild builds a fresh Snapshot from s's current contents.
func (s *Structure) Rebuild() *Snapshot {
	recs := make([]Record, 0, len(s.items))
	for name, shape := range s.items {
		recs = append(recs, Record{Name: name, Shape: shape})
	}
	nodes, boxes := sahbvh.Build(recs)
	s.dirty = false
	return &Snapshot{records: recs, nodes: nodes, boxes: boxes}
}
