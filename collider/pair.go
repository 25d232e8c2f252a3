// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package collider

import (
	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
)

// lazyTris transforms a triangle slice into another
// collider's local space one triangle at a time, caching
// each result the first time it is asked for. IntersectsPair
// uses it to avoid paying the transform cost for triangles
// the traversal never visits.
type lazyTris struct {
	tris     []geom.Triangle
	rel      *linear.M4
	computed []bool
	cache    []geom.Triangle
}

func newLazyTris(tris []geom.Triangle, rel *linear.M4) *lazyTris {
	return &lazyTris{
		tris:     tris,
		rel:      rel,
		computed: make([]bool, len(tris)),
		cache:    make([]geom.Triangle, len(tris)),
	}
}

func (lz *lazyTris) get(i int) geom.Triangle {
	if !lz.computed[i] {
		t := lz.tris[i]
		for k := range t {
			t[k] = transformPoint(lz.rel, t[k])
		}
		lz.cache[i] = t
		lz.computed[i] = true
	}
	return lz.cache[i]
}

// IntersectsPair reports whether a (placed in the world by
// aWorld) and b (placed by bWorld) have any pair of
// overlapping triangles. The collider holding fewer
// triangles is the one transformed, triangle by triangle and
// only on demand, into the other's local space — whichever
// side that is, the BVH descent below always calls it x and
// the untouched side y, following the same four-case
// leaf/inner branch the original per-pair traversal used.
func IntersectsPair(a *Collider, aWorld *linear.M4, b *Collider, bWorld *linear.M4) bool {
	if a.dirty || b.dirty {
		panic(ErrInvalidState)
	}
	if len(a.nodes) == 0 || len(b.nodes) == 0 {
		return false
	}
	if len(a.tris) <= len(b.tris) {
		var invB, rel linear.M4
		invB.Invert(bWorld)
		rel.Mul(&invB, aWorld)
		lazy := newLazyTris(a.tris, &rel)
		return pairTraverse(a, 0, &rel, lazy, b, 0)
	}
	var invA, rel linear.M4
	invA.Invert(aWorld)
	rel.Mul(&invA, bWorld)
	lazy := newLazyTris(b.tris, &rel)
	return pairTraverse(b, 0, &rel, lazy, a, 0)
}

// pairTraverse descends x (whose geometry is mapped into y's
// local space by rel, lazily, through lazy) against y.
func pairTraverse(x *Collider, xi int, rel *linear.M4, lazy *lazyTris, y *Collider, yi int) bool {
	xBox := transformAABB(rel, x.boxes[xi])
	yBox := y.boxes[yi]
	if !geom.AABBOverlap(&xBox, &yBox) {
		return false
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
					return true
				}
			}
		}
		return false

	case !xn.IsLeaf() && !yn.IsLeaf():
		xl, xr := xn.Children()
		yl, yr := yn.Children()
		return pairTraverse(x, xl, rel, lazy, y, yl) ||
			pairTraverse(x, xl, rel, lazy, y, yr) ||
			pairTraverse(x, xr, rel, lazy, y, yl) ||
			pairTraverse(x, xr, rel, lazy, y, yr)

	case !xn.IsLeaf():
		xl, xr := xn.Children()
		return pairTraverse(x, xl, rel, lazy, y, yi) || pairTraverse(x, xr, rel, lazy, y, yi)

	default: // !yn.IsLeaf()
		yl, yr := yn.Children()
		return pairTraverse(x, xi, rel, lazy, y, yl) || pairTraverse(x, xi, rel, lazy, y, yr)
	}
}
