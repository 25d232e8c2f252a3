// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package linear

import (
	"math"
	"testing"
)

func TestV(t *testing.T) {
	v := V3{1, 2, 4}
	w := V3{0, -1, 2}

	if u := AddV3(v, w); u != (V3{1, 1, 6}) {
		t.Fatalf("AddV3\nhave %v\nwant [1 1 6]", u)
	}
	if u := SubV3(v, w); u != (V3{1, 3, 2}) {
		t.Fatalf("SubV3\nhave %v\nwant [1 3 2]", u)
	}
	if u := ScaleV3(-1, v); u != (V3{-1, -2, -4}) {
		t.Fatalf("ScaleV3\nhave %v\nwant [-1 -2 -4]", u)
	}
	if u := ScaleV3(2, w); u != (V3{0, -2, 4}) {
		t.Fatalf("ScaleV3\nhave %v\nwant [0 -2 4]", u)
	}
	if d := DotV3(v, w); d != 6 {
		t.Fatalf("DotV3\nhave %v\nwant 6\n", d)
	}
	if d := DotV3(v, v); d != 21 {
		t.Fatalf("DotV3\nhave %v\nwant 21\n", d)
	}
	if l := LenV3(v); l != float32(math.Sqrt(21)) {
		t.Fatalf("LenV3\nhave %v\nwant %v\n", l, math.Sqrt(21))
	}
	if l := LenV3(w); l != float32(math.Sqrt(5)) {
		t.Fatalf("LenV3\nhave %v\nwant %v\n", l, math.Sqrt(5))
	}

	v = V3{0, 0, -2}
	w = V3{0, 4, 0}

	if v = NormV3(v); v != (V3{0, 0, -1}) {
		t.Fatalf("NormV3\nhave %v\nwant [0 0 -1]", v)
	}
	if w = NormV3(w); w != (V3{0, 1, 0}) {
		t.Fatalf("NormV3\nhave %v\nwant [0 1 0]", w)
	}
	if u := Cross(v, w); u != (V3{1, 0, 0}) {
		t.Fatalf("Cross\nhave %v\nwant [1 0 0]", u)
	}
	if u := Cross(w, v); u != (V3{-1, 0, 0}) {
		t.Fatalf("Cross\nhave %v\nwant [-1 0 0]", u)
	}
}

func TestQ(t *testing.T) {
	ident := Q{V3{0, 0, 0}, 1}

	var q Q
	q.Mul(&ident, &ident)
	if q != ident {
		t.Fatalf("Q.Mul\nhave %v\nwant %v", q, ident)
	}

	// 90° about Z.
	rot := Q{V3{0, 0, float32(math.Sqrt(0.5))}, float32(math.Sqrt(0.5))}

	var s Q
	s.Slerp(&ident, &rot, 0)
	if d := s.Dot(&ident); d < 0.999 {
		t.Fatalf("Q.Slerp at t=0\nhave %v\nwant ~%v", s, ident)
	}
	s.Slerp(&ident, &rot, 1)
	if d := s.Dot(&rot); d < 0.999 {
		t.Fatalf("Q.Slerp at t=1\nhave %v\nwant ~%v", s, rot)
	}
	if l := s.Len(); l < 0.999 || l > 1.001 {
		t.Fatalf("Q.Slerp: result not normalized\nhave len %v", l)
	}

	// Slerp must take the short path: negating one endpoint
	// must not change the interpolated rotation.
	var neg, a, b Q
	neg.Neg(&rot)
	a.Slerp(&ident, &rot, 0.5)
	b.Slerp(&ident, &neg, 0.5)
	if d := a.Dot(&b); d < 0 {
		t.Fatalf("Q.Slerp: did not take the short path\nhave %v and %v", a, b)
	}
}
