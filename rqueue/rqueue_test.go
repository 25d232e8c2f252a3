// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rqueue

import (
	"testing"

	"github.com/kestrel3d/kestrel/driver"
	"github.com/kestrel3d/kestrel/driver/null"
)

func TestReplayOrder(t *testing.T) {
	q := New()
	q.SetPipeline(nil)
	q.BeginPass(nil, nil, nil)
	q.Draw(3, 1, 0, 0)
	q.EndPass()

	cb := &null.CmdBuffer{}
	if err := cb.Begin(); err != nil {
		t.Fatal(err)
	}
	q.Replay(cb)
	ops := cb.Ops()
	if len(ops) != 4 {
		t.Fatalf("Replay: recorded %d ops on cb, want 4", len(ops))
	}
}

func TestScopeRecordsAroundContents(t *testing.T) {
	q := New()
	q.Scope("outer", func() {
		q.Draw(3, 1, 0, 0)
	})
	if len(q.ops) != 3 {
		t.Fatalf("Scope: have %d ops, want 3 (push, draw, pop)", len(q.ops))
	}
	if _, ok := q.ops[0].(opPushScope); !ok {
		t.Fatalf("Scope: first op is %T, want opPushScope", q.ops[0])
	}
	if _, ok := q.ops[2].(opPopScope); !ok {
		t.Fatalf("Scope: last op is %T, want opPopScope", q.ops[2])
	}
}

func TestUpdateUniformWritesThroughReplay(t *testing.T) {
	gpu := &null.GPU{}
	buf, err := gpu.NewBuffer(16, true, driver.UShaderConst)
	if err != nil {
		t.Fatal(err)
	}
	q := New()
	q.UpdateUniform(buf, 0, []byte{1, 2, 3, 4})

	cb := &null.CmdBuffer{}
	cb.Begin()
	q.Replay(cb)

	if got := buf.Bytes()[:4]; got[0] != 1 || got[3] != 4 {
		t.Fatalf("Replay: buffer contents = %v, want [1 2 3 4 ...]", got)
	}
}

func TestUpdateUniformRejectsOutOfBounds(t *testing.T) {
	gpu := &null.GPU{}
	buf, err := gpu.NewBuffer(4, true, driver.UShaderConst)
	if err != nil {
		t.Fatal(err)
	}
	q := New()
	defer func() {
		if recover() == nil {
			t.Fatal("UpdateUniform: expected panic for out-of-bounds write")
		}
	}()
	q.UpdateUniform(buf, 0, make([]byte, 8))
}

func TestProvisionalGraphicsCachesByKey(t *testing.T) {
	p := NewProvisionalGraphics()
	calls := 0
	init := func() int {
		calls++
		return 42
	}
	a := Get(p, "a", init)
	b := Get(p, "a", init)
	if a != 42 || b != 42 {
		t.Fatalf("Get: have (%d,%d), want (42,42)", a, b)
	}
	if calls != 1 {
		t.Fatalf("Get: init called %d times, want 1", calls)
	}
	if Get(p, "b", init); calls != 2 {
		t.Fatalf("Get: distinct key did not invoke init again")
	}
}

func TestProvisionalGraphicsEvictAndClear(t *testing.T) {
	p := NewProvisionalGraphics()
	Get(p, "x", func() int { return 1 })
	if p.Len() != 1 {
		t.Fatalf("Len: have %d, want 1", p.Len())
	}
	p.Evict("x")
	if p.Len() != 0 {
		t.Fatalf("Evict: Len = %d, want 0", p.Len())
	}
	Get(p, "x", func() int { return 1 })
	Get(p, "y", func() int { return 2 })
	p.Clear()
	if p.Len() != 0 {
		t.Fatalf("Clear: Len = %d, want 0", p.Len())
	}
}
