// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package scene ties a node graph's world transforms to a spatial
// index: as nodes move, the bounding spheres tracked against them
// are recentered, so the spatial index stays queryable against the
// current frame without every caller re-deriving world positions
// from the graph itself.
package scene

import (
	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
	"github.com/kestrel3d/kestrel/node"
	"github.com/kestrel3d/kestrel/spatial"
)

// Scene defines a scene graph.
type Scene struct {
	graph  node.Graph
	space  *spatial.Structure
	shapes map[string]shapeBinding
}

type shapeBinding struct {
	n      node.Node
	radius float32
}

// New creates an initialized scene.
func New() *Scene { return new(Scene).Init() }

// Init initializes a scene.
func (s *Scene) Init() *Scene {
	s.space = spatial.New()
	s.shapes = map[string]shapeBinding{}
	return s
}

// Insert inserts n into the scene graph as a child of prev.
func (s *Scene) Insert(n node.Interface, prev node.Node) node.Node {
	return s.graph.Insert(n, prev)
}

// Remove removes a node and its descendants from the scene graph.
// Callers that tracked a bounding sphere against n or any of its
// descendants must UntrackShape their names first: Remove has no
// way to learn which Node values a removed sub-graph used, so a
// stale binding would otherwise go on recentering against freed
// graph state.
func (s *Scene) Remove(n node.Node) []node.Interface { return s.graph.Remove(n) }

// Get returns the Interface bound to a Node.
func (s *Scene) Get(n node.Node) node.Interface { return s.graph.Get(n) }

// World returns the world transform of a Node.
func (s *Scene) World(n node.Node) *linear.M4 { return s.graph.World(n) }

// SetWorld sets the scene graph's global world transform.
func (s *Scene) SetWorld(w linear.M4) { s.graph.SetWorld(w) }

// Len returns the number of nodes in the scene graph.
func (s *Scene) Len() int { return s.graph.Len() }

// Space returns the scene's spatial index, for building a Snapshot
// or running a SpatialQuery against it.
func (s *Scene) Space() *spatial.Structure { return s.space }

// TrackSphere registers a bounding sphere of the given radius under
// name in the scene's spatial index, centered on n's current world
// position. Every subsequent Update call recenters it as n moves.
func (s *Scene) TrackSphere(name string, n node.Node, radius float32) {
	b := shapeBinding{n, radius}
	s.shapes[name] = b
	s.recenter(name, b)
}

// UntrackShape stops recentering name and removes it from the
// spatial index.
func (s *Scene) UntrackShape(name string) {
	delete(s.shapes, name)
	s.space.Remove(name)
}

func (s *Scene) recenter(name string, b shapeBinding) {
	w := s.graph.World(b.n)
	center := geom.V3{w[3][0], w[3][1], w[3][2]}
	s.space.Update(name, geom.Sphere{Center: center, Radius: b.radius})
}

// Update recomputes the scene graph's world transforms, then
// recenters every tracked bounding sphere to match. The spatial
// index is left dirty: callers still call Space().Rebuild()
// themselves to obtain a fresh queryable Snapshot, the same
// single-writer/many-reader split package spatial documents.
func (s *Scene) Update() {
	s.graph.Update()
	for name, b := range s.shapes {
		s.recenter(name, b)
	}
}
