// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package collider

import (
	"math"

	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
)

// TrianglePair identifies one overlapping triangle from each
// collider of a pair query.
type TrianglePair struct{ A, B int }

// CCDResult is the outcome of a swept continuous-collision
// test: the last interpolation fraction known not to collide,
// the first fraction found to collide, and every triangle
// pair overlapping at FractionContact.
type CCDResult struct {
	FractionBefore  float32
	FractionContact float32
	Pairs           []TrianglePair
}

// SweepPair tests whether a, moving from at1 to at2, and b,
// moving from bt1 to bt2, ever overlap. When neither object
// moves it degenerates to a single static test at fraction 0.
//
// The original engine's time-of-contact estimate was a stub
// that always returned 0, deferring to the stepping loop for
// everything; this implementation instead bounds the search
// window with a real swept-sphere distance computation
// (decision recorded in this repository's design notes), so a
// trajectory that provably never brings the two bounding
// spheres together is rejected before any BVH work happens.
func SweepPair(a *Collider, at1, at2 *linear.M4, b *Collider, bt1, bt2 *linear.M4) (CCDResult, bool) {
	if a.dirty || b.dirty {
		panic(ErrInvalidState)
	}
	if len(a.nodes) == 0 || len(b.nodes) == 0 {
		return CCDResult{}, false
	}
	if *at1 == *at2 && *bt1 == *bt2 {
		pairs := PairsPair(a, at1, b, bt1)
		if len(pairs) == 0 {
			return CCDResult{}, false
		}
		return CCDResult{Pairs: pairs}, true
	}

	aPos1, aRot1, aScale := decompose(at1)
	aPos2, aRot2, _ := decompose(at2)
	bPos1, bRot1, bScale := decompose(bt1)
	bPos2, bRot2, _ := decompose(bt2)

	rA := boundingRadius(a) * aScale
	rB := boundingRadius(b) * bScale

	t0, t1w, ok := sweepWindow(aPos1, aPos2, bPos1, bPos2, rA, rB)
	if !ok {
		return CCDResult{}, false
	}

	window := t1w - t0
	minSize := rA
	if rB < minSize {
		minSize = rB
	}
	maxDisp := displacement(aPos1, aPos2, bPos1, bPos2)
	step := float32(0.2)
	if maxDisp > 1e-8 {
		if r := minSize / maxDisp; r < step {
			step = r
		}
	}
	maxDiff := step * window
	if maxDiff <= 0 {
		maxDiff = window
	}

	interp := func(t float32) (*linear.M4, *linear.M4) {
		var aq, bq linear.Q
		aq.Slerp(&aRot1, &aRot2, t)
		bq.Slerp(&bRot1, &bRot2, t)
		aPos := lerpV3(aPos1, aPos2, t)
		bPos := lerpV3(bPos1, bPos2, t)
		am := compose(aPos, aq, aScale)
		bm := compose(bPos, bq, bScale)
		return &am, &bm
	}

	before := t0
	contact := t1w
	found := false
	for f := t0; f <= t1w; f += maxDiff {
		am, bm := interp(f)
		if IntersectsPair(a, am, b, bm) {
			contact = f
			found = true
			break
		}
		before = f
	}
	if !found {
		am, bm := interp(t1w)
		if !IntersectsPair(a, am, b, bm) {
			return CCDResult{}, false
		}
		contact = t1w
	}

	for i := 0; i < 6; i++ {
		mid := (before + contact) / 2
		am, bm := interp(mid)
		if IntersectsPair(a, am, b, bm) {
			contact = mid
		} else {
			before = mid
		}
	}

	am, bm := interp(contact)
	pairs := PairsPair(a, am, b, bm)
	return CCDResult{FractionBefore: before, FractionContact: contact, Pairs: pairs}, true
}

func lerpV3(a, b geom.V3, t float32) geom.V3 {
	var v geom.V3
	for i := range v {
		v[i] = a[i] + (b[i]-a[i])*t
	}
	return v
}

func displacement(aPos1, aPos2, bPos1, bPos2 geom.V3) float32 {
	da := sub3(aPos2, aPos1)
	db := sub3(bPos2, bPos1)
	la := lenV3(da)
	lb := lenV3(db)
	if la > lb {
		return la
	}
	return lb
}

func sub3(a, b geom.V3) geom.V3 { return geom.V3{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }
func lenV3(v geom.V3) float32 {
	return float32(math.Sqrt(float64(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])))
}

func boundingRadius(c *Collider) float32 {
	// Farthest root-box corner from the local origin, which is
	// the point the swept sphere is centred on.
	b := c.boxes[0]
	var r float32
	for i := 0; i < 8; i++ {
		var p geom.V3
		for k := range p {
			if i&(1<<k) != 0 {
				p[k] = b.Max[k]
			} else {
				p[k] = b.Min[k]
			}
		}
		if l := lenV3(p); l > r {
			r = l
		}
	}
	return r
}

// sweepWindow solves for the sub-interval of [0,1] during
// which two spheres of radius rA, rB — whose centers move
// linearly from aPos1/bPos1 to aPos2/bPos2 — could possibly
// overlap. It returns ok=false when the spheres never come
// within rA+rB of each other across the whole interval.
func sweepWindow(aPos1, aPos2, bPos1, bPos2 geom.V3, rA, rB float32) (t0, t1 float32, ok bool) {
	d0 := sub3(aPos1, bPos1)
	v := sub3(sub3(aPos2, aPos1), sub3(bPos2, bPos1))
	r := rA + rB

	vv := v[0]*v[0] + v[1]*v[1] + v[2]*v[2]
	d0v := d0[0]*v[0] + d0[1]*v[1] + d0[2]*v[2]
	d0d0 := d0[0]*d0[0] + d0[1]*d0[1] + d0[2]*d0[2]

	if vv < 1e-12 {
		// Centers don't move relative to each other: either
		// always overlapping or never.
		if d0d0 <= r*r {
			return 0, 1, true
		}
		return 0, 0, false
	}

	c := d0d0 - r*r
	disc := d0v*d0v - vv*c
	if disc < 0 {
		return 0, 0, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	lo := (-d0v - sq) / vv
	hi := (-d0v + sq) / vv
	if lo < 0 {
		lo = 0
	}
	if hi > 1 {
		hi = 1
	}
	if lo > hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// decompose splits an affine transform into translation,
// rotation and a single uniform scale factor, assuming m
// carries no shear and equal scale on every axis (the
// precondition SweepPair's callers must uphold).
func decompose(m *linear.M4) (pos geom.V3, rot linear.Q, scale float32) {
	pos = geom.V3{m[3][0], m[3][1], m[3][2]}
	c0 := linear.V3{m[0][0], m[0][1], m[0][2]}
	scale = c0.Len()
	if scale == 0 {
		scale = 1
	}
	inv := 1 / scale
	var r linear.M3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r[col][row] = m[col][row] * inv
		}
	}
	rot = linear.QuatFromM3(&r)
	return
}

// compose builds an affine transform from translation,
// rotation and a uniform scale factor, the inverse of decompose.
func compose(pos geom.V3, rot linear.Q, scale float32) linear.M4 {
	x, y, z, w := rot.V[0], rot.V[1], rot.V[2], rot.R
	var m linear.M4
	m[0] = linear.V4{scale * (1 - 2*(y*y+z*z)), scale * 2 * (x*y + z*w), scale * 2 * (x*z - y*w), 0}
	m[1] = linear.V4{scale * 2 * (x*y - z*w), scale * (1 - 2*(x*x+z*z)), scale * 2 * (y*z + x*w), 0}
	m[2] = linear.V4{scale * 2 * (x*z + y*w), scale * 2 * (y*z - x*w), scale * (1 - 2*(x*x+y*y)), 0}
	m[3] = linear.V4{pos[0], pos[1], pos[2], 1}
	return m
}

// PairsPair returns every overlapping triangle pair between a
// (placed by aWorld) and b (placed by bWorld), using the same
// lazily-transformed BVH descent as IntersectsPair. Unlike
// IntersectsPair it does not stop at the first hit: the
// output is unconditional, with no cap on pair count.
func PairsPair(a *Collider, aWorld *linear.M4, b *Collider, bWorld *linear.M4) []TrianglePair {
	if a.dirty || b.dirty {
		panic(ErrInvalidState)
	}
	if len(a.nodes) == 0 || len(b.nodes) == 0 {
		return nil
	}
	var pairs []TrianglePair
	if len(a.tris) <= len(b.tris) {
		var invB, rel linear.M4
		invB.Invert(bWorld)
		rel.Mul(&invB, aWorld)
		lazy := newLazyTris(a.tris, &rel)
		collectPairs(a, 0, &rel, lazy, b, 0, &pairs, false)
	} else {
		var invA, rel linear.M4
		invA.Invert(aWorld)
		rel.Mul(&invA, bWorld)
		lazy := newLazyTris(b.tris, &rel)
		collectPairs(b, 0, &rel, lazy, a, 0, &pairs, true)
	}
	return pairs
}

// collectPairs mirrors pairTraverse but appends every
// overlapping pair instead of returning at the first. When
// swapped is true, x is b and y is a, so appended pairs must
// report (y-index, x-index) to keep the TrianglePair.A/B
// convention matching the caller's original a/b order.
func collectPairs(x *Collider, xi int, rel *linear.M4, lazy *lazyTris, y *Collider, yi int, out *[]TrianglePair, swapped bool) {
	xBox := transformAABB(rel, x.boxes[xi])
	yBox := y.boxes[yi]
	if !geom.AABBOverlap(&xBox, &yBox) {
		return
	}

	xn, yn := x.nodes[xi], y.nodes[yi]
	switch {
	case xn.IsLeaf() && yn.IsLeaf():
		xs, xe := xn.LeafRange()
		ys, ye := yn.LeafRange()
		for ti := xs; ti < xe; ti++ {
			txi := lazy.get(ti)
			for tj := ys; tj < ye; tj++ {
				tyj := y.tris[tj]
				if geom.TriangleOverlapsTriangle(&txi, &tyj) {
					if swapped {
						*out = append(*out, TrianglePair{A: tj, B: ti})
					} else {
						*out = append(*out, TrianglePair{A: ti, B: tj})
					}
				}
			}
		}

	case !xn.IsLeaf() && !yn.IsLeaf():
		xl, xr := xn.Children()
		yl, yr := yn.Children()
		collectPairs(x, xl, rel, lazy, y, yl, out, swapped)
		collectPairs(x, xl, rel, lazy, y, yr, out, swapped)
		collectPairs(x, xr, rel, lazy, y, yl, out, swapped)
		collectPairs(x, xr, rel, lazy, y, yr, out, swapped)

	case !xn.IsLeaf():
		xl, xr := xn.Children()
		collectPairs(x, xl, rel, lazy, y, yi, out, swapped)
		collectPairs(x, xr, rel, lazy, y, yi, out, swapped)

	default:
		yl, yr := yn.Children()
		collectPairs(x, xi, rel, lazy, y, yl, out, swapped)
		collectPairs(x, xi, rel, lazy, y, yr, out, swapped)
	}
}
