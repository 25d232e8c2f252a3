// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package anim implements skeletal animation evaluation:
// sparse per-bone keyframe curves, binary-search/LERP/SLERP
// sampling, and a single pre-order compose pass over the
// bone hierarchy. It follows package engine/skin's joint
// hierarchy conventions (parent index before child index,
// per-joint bind/inverse-bind matrices, sort.Interface-based
// topological ordering).
package anim

import (
	"errors"
	"sort"

	"github.com/kestrel3d/kestrel/linear"
)

const prefix = "anim: "

// Bone describes one joint of a skeleton.
type Bone struct {
	Name    string
	Bind    linear.M4
	InvRest linear.M4
	Parent  int // -1 for a root bone
}

// bone is the sorted, internal representation: Parent is
// remapped to an index into the sorted slice, depth is the
// bone's distance from its root, and orig records the bone's
// position in the slice NewSkeleton was given.
type bone struct {
	Bone
	orig  int
	depth int
}

type boneSlice []bone

func (b boneSlice) Len() int           { return len(b) }
func (b boneSlice) Less(i, j int) bool { return b[i].depth < b[j].depth }
func (b boneSlice) Swap(i, j int)      { b[i], b[j] = b[j], b[i] }

// Skeleton is a bone hierarchy sorted so that every parent
// bone precedes its descendants (parent index < child index
// for every non-root bone), the precondition the evaluator's
// single pre-order traversal relies on.
type Skeleton struct {
	bones []bone
}

// NewSkeleton builds a Skeleton from bones, re-indexing
// Parent references as needed so the topological
// invariant holds regardless of the input order.
func NewSkeleton(bones []Bone) (*Skeleton, error) {
	n := len(bones)
	if n == 0 {
		return nil, errors.New(prefix + "[]Bone length is 0")
	}

	origIdx := make([]int, n) // orig index -> position once sorted
	bs := make(boneSlice, 0, n)
	for i := range bones {
		p := bones[i].Parent
		switch {
		case p >= n:
			return nil, errors.New(prefix + "Bone.Parent out of bounds")
		case p == i:
			return nil, errors.New(prefix + "Bone.Parent refers to itself")
		case p < 0:
			p = -1
		}
		b := bones[i]
		b.Parent = p
		bs = append(bs, bone{Bone: b, orig: i})
	}
	// Sort by depth (roots first) so every parent precedes its
	// children; a cycle stops counting past n and is caught below.
	for i := range bs {
		for p := bs[i].Parent; p >= 0 && bs[i].depth <= n; p = bs[p].Parent {
			bs[i].depth++
		}
	}
	sort.Stable(bs)

	// Remap Parent from an original index to a position in
	// the sorted slice.
	for pos, b := range bs {
		origIdx[b.orig] = pos
	}
	for i := range bs {
		if bs[i].Parent >= 0 {
			bs[i].Parent = origIdx[bs[i].Parent]
			if bs[i].Parent >= i {
				return nil, errors.New(prefix + "parent did not sort before child")
			}
		}
	}

	return &Skeleton{bones: bs}, nil
}

// Len returns the number of bones.
func (s *Skeleton) Len() int { return len(s.bones) }

// Bone returns the i-th bone in traversal order.
func (s *Skeleton) Bone(i int) Bone { return s.bones[i].Bone }
