// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package sahbvh implements the surface-area-heuristic
// binned BVH builder shared by package collider (over
// triangles) and package spatial (over shape records). It
// is generic over the item type so that both callers reuse
// the exact same partitioning and cost-evaluation code,
// the way package bitm's generic Bitm[T] is shared by every
// arena-style allocator in this module.
package sahbvh

import "github.com/kestrel3d/kestrel/geom"

// LeafMax is the maximum number of items a leaf may hold
// before the builder attempts a split.
const LeafMax = 10

// nbin is the number of SAH bins (and therefore 11 interior
// split candidates) swept per axis.
const nbin = 12

const flatEps = 1e-7

// Item is anything the builder can place in a BVH: it must
// expose its own bounds and centroid.
type Item interface {
	Bounds() geom.AABB
	Centroid() geom.V3
}

// Node is the flat, index-addressed BVH node encoding used
// throughout this module: Left<0 && Right<0 marks an inner
// node, where -Left and -Right are indices of the child
// nodes; otherwise [Left, Right) is a half-open range into
// the (reordered) item slice.
type Node struct {
	Left, Right int32
}

// IsLeaf reports whether n is a leaf node.
func (n Node) IsLeaf() bool { return n.Left >= 0 || n.Right >= 0 }

// LeafRange returns the [start, end) item range of a leaf
// node. Only valid when n.IsLeaf().
func (n Node) LeafRange() (start, end int) { return int(n.Left), int(n.Right) }

// Children returns the indices of the two child nodes of an
// inner node. Only valid when !n.IsLeaf().
func (n Node) Children() (left, right int) { return int(-n.Left), int(-n.Right) }

// Build partitions items in place (by centroid, the same
// slice the caller passed in is reordered as a side effect)
// and returns the resulting node array — root always at
// index 0 — plus a parallel array of node bounding boxes.
// The left child of any inner node is always at index
// parent+1, preserving sibling locality.
func Build[T Item](items []T) (nodes []Node, boxes []geom.AABB) {
	b := &builder[T]{items: items}
	if len(items) == 0 {
		return nil, nil
	}
	b.build(0, len(items))
	return b.nodes, b.boxes
}

type builder[T Item] struct {
	items []T
	nodes []Node
	boxes []geom.AABB
}

func boundsOf[T Item](items []T, start, end int) geom.AABB {
	box := geom.InvertedAABB()
	for i := start; i < end; i++ {
		ib := items[i].Bounds()
		box.Union(&box, &ib)
	}
	return box
}

// build appends the subtree over items[start:end] and
// returns its node index.
func (b *builder[T]) build(start, end int) int {
	box := boundsOf(b.items, start, end)
	self := len(b.nodes)
	b.nodes = append(b.nodes, Node{})
	b.boxes = append(b.boxes, box)

	n := end - start
	if n <= LeafMax {
		b.nodes[self] = Node{Left: int32(start), Right: int32(end)}
		return self
	}

	axis, splitPos, cost, ok := b.bestSplit(start, end, &box)
	leafCost := box.Surface() * float32(n)
	if !ok || cost >= leafCost {
		b.nodes[self] = Node{Left: int32(start), Right: int32(end)}
		return self
	}

	mid := partition(b.items[start:end], axis, splitPos) + start
	if mid == start || mid == end {
		// Degenerate split (every centroid landed on one
		// side); emit a leaf rather than recurse forever.
		b.nodes[self] = Node{Left: int32(start), Right: int32(end)}
		return self
	}

	left := b.build(start, mid)
	right := b.build(mid, end)
	b.nodes[self] = Node{Left: int32(-left), Right: int32(-right)}
	return self
}

type bin struct {
	box   geom.AABB
	count int
}

// bestSplit sweeps all three axes (skipping axes the node's
// AABB is flat along) and returns the split minimizing SAH
// cost Σ surface(child)·count(child).
func (b *builder[T]) bestSplit(start, end int, box *geom.AABB) (axis int, splitVal float32, cost float32, ok bool) {
	ext := box.Extent()
	cost = float32(1e38)
	for a := 0; a < 3; a++ {
		if ext[a] < flatEps {
			continue
		}
		lo := box.Min[a]
		binSize := ext[a] / nbin

		var bins [nbin]bin
		for i := range bins {
			bins[i].box = geom.InvertedAABB()
		}
		for i := start; i < end; i++ {
			c := b.items[i].Centroid()
			idx := int((c[a] - lo) / binSize)
			if idx < 0 {
				idx = 0
			} else if idx >= nbin {
				idx = nbin - 1
			}
			ib := b.items[i].Bounds()
			bins[idx].box.Union(&bins[idx].box, &ib)
			bins[idx].count++
		}

		var leftBox [nbin - 1]geom.AABB
		var leftCount [nbin - 1]int
		run := geom.InvertedAABB()
		runCount := 0
		for i := 0; i < nbin-1; i++ {
			run.Union(&run, &bins[i].box)
			runCount += bins[i].count
			leftBox[i] = run
			leftCount[i] = runCount
		}

		run = geom.InvertedAABB()
		runCount = 0
		for i := nbin - 1; i >= 1; i-- {
			run.Union(&run, &bins[i].box)
			runCount += bins[i].count
			rc := run.Surface() * float32(runCount)
			lc := leftBox[i-1].Surface() * float32(leftCount[i-1])
			total := lc + rc
			if leftCount[i-1] > 0 && runCount > 0 && total < cost {
				cost = total
				axis = a
				splitVal = lo + binSize*float32(i)
				ok = true
			}
		}
	}
	return
}

// partition reorders s in place so that every item with
// centroid[axis] < splitVal comes first, returning the
// number of items placed in the left partition.
func partition[T Item](s []T, axis int, splitVal float32) int {
	i, j := 0, len(s)-1
	for i <= j {
		for i <= j && s[i].Centroid()[axis] < splitVal {
			i++
		}
		for i <= j && s[j].Centroid()[axis] >= splitVal {
			j--
		}
		if i < j {
			s[i], s[j] = s[j], s[i]
			i++
			j--
		}
	}
	return i
}
