// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import "math"

// Q is a quaternion of float32.
type Q struct {
	V V3
	R float32
}

// Mul sets q to contain l ⋅ r.
func (q *Q) Mul(l, r *Q) {
	var v, w V3
	v.Scale(r.R, &l.V)
	w.Scale(l.R, &r.V)
	v.Add(&v, &w)
	w.Cross(&l.V, &r.V)
	d := l.V.Dot(&r.V)
	q.V.Add(&v, &w)
	q.R = l.R*r.R - d
}

// Dot returns the dot product of q and r.
func (q *Q) Dot(r *Q) float32 { return q.V.Dot(&r.V) + q.R*r.R }

// Len returns the quaternion's length.
func (q *Q) Len() float32 { return float32(math.Sqrt(float64(q.Dot(q)))) }

// Norm sets q to contain r normalized.
func (q *Q) Norm(r *Q) {
	s := 1 / r.Len()
	q.V.Scale(s, &r.V)
	q.R = r.R * s
}

// Neg sets q to contain the negation of r.
func (q *Q) Neg(r *Q) {
	q.V.Scale(-1, &r.V)
	q.R = -r.R
}

// Slerp sets q to the spherical linear interpolation between
// l and r at parameter t ∈ [0, 1]. It takes the short path:
// if l and r are more than 90° apart, r is negated first,
// since q and -q represent the same rotation.
// When l and r are nearly parallel, it falls back to a
// normalized linear interpolation to avoid the division by
// a near-zero sine.
func (q *Q) Slerp(l, r *Q, t float32) {
	cosTheta := l.Dot(r)
	r2 := *r
	if cosTheta < 0 {
		r2.Neg(&r2)
		cosTheta = -cosTheta
	}
	const threshold = 0.9995
	if cosTheta > threshold {
		q.V.Scale(1-t, &l.V)
		var rv V3
		rv.Scale(t, &r2.V)
		q.V.Add(&q.V, &rv)
		q.R = l.R*(1-t) + r2.R*t
		q.Norm(q)
		return
	}
	theta := float32(math.Acos(float64(cosTheta)))
	sinTheta := float32(math.Sin(float64(theta)))
	a := float32(math.Sin(float64((1-t)*theta))) / sinTheta
	b := float32(math.Sin(float64(t*theta))) / sinTheta
	var lv, rv V3
	lv.Scale(a, &l.V)
	rv.Scale(b, &r2.V)
	q.V.Add(&lv, &rv)
	q.R = l.R*a + r2.R*b
}

// QuatFromM3 returns the quaternion equivalent of a pure
// rotation matrix m (no scale or shear).
func QuatFromM3(m *M3) Q {
	tr := m[0][0] + m[1][1] + m[2][2]
	var q Q
	switch {
	case tr > 0:
		s := float32(math.Sqrt(float64(tr+1))) * 2
		q.R = 0.25 * s
		q.V[0] = (m[1][2] - m[2][1]) / s
		q.V[1] = (m[2][0] - m[0][2]) / s
		q.V[2] = (m[0][1] - m[1][0]) / s
	case m[0][0] > m[1][1] && m[0][0] > m[2][2]:
		s := float32(math.Sqrt(float64(1+m[0][0]-m[1][1]-m[2][2]))) * 2
		q.R = (m[1][2] - m[2][1]) / s
		q.V[0] = 0.25 * s
		q.V[1] = (m[1][0] + m[0][1]) / s
		q.V[2] = (m[2][0] + m[0][2]) / s
	case m[1][1] > m[2][2]:
		s := float32(math.Sqrt(float64(1+m[1][1]-m[0][0]-m[2][2]))) * 2
		q.R = (m[2][0] - m[0][2]) / s
		q.V[0] = (m[1][0] + m[0][1]) / s
		q.V[1] = 0.25 * s
		q.V[2] = (m[2][1] + m[1][2]) / s
	default:
		s := float32(math.Sqrt(float64(1+m[2][2]-m[0][0]-m[1][1]))) * 2
		q.R = (m[0][1] - m[1][0]) / s
		q.V[0] = (m[2][0] + m[0][2]) / s
		q.V[1] = (m[2][1] + m[1][2]) / s
		q.V[2] = 0.25 * s
	}
	return q
}
