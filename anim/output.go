// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package anim

import (
	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
)

// SkinMatrices returns, for every bone, the matrix
// globalInverse·accum[b]·invRest[b] that vertex skinning
// applies, where accum is the result of Evaluate and
// globalInverse undoes whatever transform is baked into the
// skeleton's root (pass an identity matrix when there is
// none).
func SkinMatrices(skel *Skeleton, accum []linear.M4, globalInverse *linear.M4) []linear.M4 {
	out := make([]linear.M4, len(accum))
	for i, b := range skel.bones {
		var t, m linear.M4
		t.Mul(globalInverse, &accum[i])
		m.Mul(&t, &b.InvRest)
		out[i] = m
	}
	return out
}

// VisualizationBone is a degenerate bone segment running from
// a parent bone's world position to a child's, for debug
// rendering of a posed skeleton.
type VisualizationBone struct {
	Parent, Child geom.V3
}

// VisualizationBones returns one VisualizationBone per
// non-root bone in skel, using the world positions baked into
// accum (Evaluate's output).
func VisualizationBones(skel *Skeleton, accum []linear.M4) []VisualizationBone {
	var out []VisualizationBone
	for i, b := range skel.bones {
		if b.Parent < 0 {
			continue
		}
		child := geom.V3{accum[i][3][0], accum[i][3][1], accum[i][3][2]}
		parentM := accum[b.Parent]
		parent := geom.V3{parentM[3][0], parentM[3][1], parentM[3][2]}
		out = append(out, VisualizationBone{Parent: parent, Child: child})
	}
	return out
}

// MeshApplier lets a mesh representation receive final
// per-bone skin matrices, either to skin vertices on the CPU
// or to upload them to a constant buffer for GPU skinning.
type MeshApplier interface {
	ApplySkin(matrices []linear.M4)
}

// ApplyToMesh hands matrices to m.
func ApplyToMesh(m MeshApplier, matrices []linear.M4) { m.ApplySkin(matrices) }
