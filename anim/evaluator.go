// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package anim

import (
	"sort"

	"github.com/kestrel3d/kestrel/geom"
	"github.com/kestrel3d/kestrel/linear"
)

// Keyframe is a single sample of a Channel's position, scale
// or rotation curve.
type Keyframe[T any] struct {
	Time  float32
	Value T
}

// Channel holds the independent position/rotation/scale
// curves of a single animated bone. Any curve may be empty,
// in which case that component of the bone's bind matrix is
// used unchanged.
type Channel struct {
	Position []Keyframe[geom.V3]
	Rotation []Keyframe[linear.Q]
	Scale    []Keyframe[geom.V3]
}

// Animation is a set of bone channels, keyed by bone name so
// it stays valid across however Skeleton reorders bones.
type Animation struct {
	Channels map[string]*Channel
}

// NewAnimation returns an Animation with an empty channel
// map, ready for Channels to be populated.
func NewAnimation() *Animation { return &Animation{Channels: map[string]*Channel{}} }

// sampleV3 returns the interpolated value of ks at time t,
// via binary search for the enclosing keyframe pair followed
// by linear interpolation. Times before the first keyframe or
// after the last clamp to the respective endpoint.
func sampleV3(ks []Keyframe[geom.V3], t float32) (geom.V3, bool) {
	if len(ks) == 0 {
		return geom.V3{}, false
	}
	if len(ks) == 1 || t <= ks[0].Time {
		return ks[0].Value, true
	}
	if t >= ks[len(ks)-1].Time {
		return ks[len(ks)-1].Value, true
	}
	i := sort.Search(len(ks), func(i int) bool { return ks[i].Time > t }) - 1
	a, b := ks[i], ks[i+1]
	span := b.Time - a.Time
	f := float32(0)
	if span > 0 {
		f = (t - a.Time) / span
	}
	var v geom.V3
	for k := range v {
		v[k] = a.Value[k] + (b.Value[k]-a.Value[k])*f
	}
	return v, true
}

func sampleQ(ks []Keyframe[linear.Q], t float32) (linear.Q, bool) {
	if len(ks) == 0 {
		return linear.Q{}, false
	}
	if len(ks) == 1 || t <= ks[0].Time {
		return ks[0].Value, true
	}
	if t >= ks[len(ks)-1].Time {
		return ks[len(ks)-1].Value, true
	}
	i := sort.Search(len(ks), func(i int) bool { return ks[i].Time > t }) - 1
	a, b := ks[i], ks[i+1]
	span := b.Time - a.Time
	f := float32(0)
	if span > 0 {
		f = (t - a.Time) / span
	}
	var q linear.Q
	q.Slerp(&a.Value, &b.Value, f)
	return q, true
}

// bindTRS decomposes a bone's bind matrix into its
// translation, rotation and per-axis scale, for use when a
// channel omits one of the three curves.
func bindTRS(m *linear.M4) (pos geom.V3, rot linear.Q, scale geom.V3) {
	pos = geom.V3{m[3][0], m[3][1], m[3][2]}
	cols := [3]linear.V3{
		{m[0][0], m[0][1], m[0][2]},
		{m[1][0], m[1][1], m[1][2]},
		{m[2][0], m[2][1], m[2][2]},
	}
	for i, c := range cols {
		scale[i] = c.Len()
		if scale[i] == 0 {
			scale[i] = 1
		}
	}
	var r linear.M3
	for col := 0; col < 3; col++ {
		for row := 0; row < 3; row++ {
			r[col][row] = m[col][row] / scale[col]
		}
	}
	rot = linear.QuatFromM3(&r)
	return
}

// localMatrix composes T·R·S, R from a quaternion and S a
// per-axis (possibly non-uniform) scale.
func localMatrix(pos geom.V3, rot linear.Q, scale geom.V3) linear.M4 {
	x, y, z, w := rot.V[0], rot.V[1], rot.V[2], rot.R
	var m linear.M4
	m[0] = linear.V4{scale[0] * (1 - 2*(y*y+z*z)), scale[0] * 2 * (x*y + z*w), scale[0] * 2 * (x*z - y*w), 0}
	m[1] = linear.V4{scale[1] * 2 * (x*y - z*w), scale[1] * (1 - 2*(x*x+z*z)), scale[1] * 2 * (y*z + x*w), 0}
	m[2] = linear.V4{scale[2] * 2 * (x*z + y*w), scale[2] * 2 * (y*z - x*w), scale[2] * (1 - 2*(x*x+y*y)), 0}
	m[3] = linear.V4{pos[0], pos[1], pos[2], 1}
	return m
}

// boneLocal returns bone b's local matrix at coefficient c,
// sampling ch's curves where present and falling back to the
// bind matrix's own components otherwise.
func boneLocal(bind *linear.M4, ch *Channel, c float32) linear.M4 {
	if ch == nil {
		return *bind
	}
	bp, br, bs := bindTRS(bind)
	if p, ok := sampleV3(ch.Position, c); ok {
		bp = p
	}
	if r, ok := sampleQ(ch.Rotation, c); ok {
		br = r
	}
	if s, ok := sampleV3(ch.Scale, c); ok {
		bs = s
	}
	return localMatrix(bp, br, bs)
}

// Evaluate composes the world-space matrix of every bone in
// skel at coefficient c ∈ [0,1], using anim's channels where
// present, in a single pre-order pass (skel guarantees parent
// index < child index, so each bone's parent has already been
// computed by the time the bone itself is reached).
func Evaluate(skel *Skeleton, anim *Animation, c float32) []linear.M4 {
	accum := make([]linear.M4, skel.Len())
	for i, b := range skel.bones {
		local := boneLocal(&b.Bind, anim.Channels[b.Name], c)
		if b.Parent < 0 {
			accum[i] = local
		} else {
			var w linear.M4
			w.Mul(&accum[b.Parent], &local)
			accum[i] = w
		}
	}
	return accum
}
