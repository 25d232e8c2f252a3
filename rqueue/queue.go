// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package rqueue implements a deferred render queue: GPU work is
// recorded by the graphics-prepare thread as a typed, ordered list of
// operations and replayed later by the graphics-dispatch thread, the
// sole owner of the GL context. ProvisionalGraphics and the
// screen-space effect builders in this package only ever append to a
// Queue; none of them call a driver.CmdBuffer method directly.
package rqueue

import "github.com/kestrel3d/kestrel/driver"

// Scoper is implemented by command buffers that can emit named debug
// scopes (e.g. a GL_KHR_debug push/pop group). Replay calls it for
// every scope a Queue recorded; a CmdBuffer that does not implement
// it still replays the scope's contents, just without a GPU-visible
// label.
type Scoper interface {
	PushScope(name string)
	PopScope()
}

// Queue is a deferred, typed command list. Every method appends a
// record; nothing is sent to a command buffer until Replay runs.
// A Queue is not safe for concurrent use: exactly one thread (the
// prepare stage) records into it, and exactly one (the dispatch
// stage) replays and then resets it.
type Queue struct {
	ops []any
}

// New returns an empty Queue.
func New() *Queue { return &Queue{} }

// Len reports the number of recorded operations.
func (q *Queue) Len() int { return len(q.ops) }

// Reset discards every recorded operation, so the Queue can be
// reused for the next frame.
func (q *Queue) Reset() { q.ops = q.ops[:0] }

// BeginPass records the start of a render pass.
func (q *Queue) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	q.ops = append(q.ops, opBeginPass{pass, fb, append([]driver.ClearValue(nil), clear...)})
}

// NextSubpass records a subpass transition.
func (q *Queue) NextSubpass() { q.ops = append(q.ops, opNextSubpass{}) }

// EndPass records the end of the current render pass.
func (q *Queue) EndPass() { q.ops = append(q.ops, opEndPass{}) }

// BeginWork records the start of a compute dispatch block.
func (q *Queue) BeginWork(wait bool) { q.ops = append(q.ops, opBeginWork{wait}) }

// EndWork records the end of a compute dispatch block.
func (q *Queue) EndWork() { q.ops = append(q.ops, opEndWork{}) }

// SetPipeline records a pipeline bind.
func (q *Queue) SetPipeline(pl driver.Pipeline) { q.ops = append(q.ops, opSetPipeline{pl}) }

// SetViewport records a viewport update.
func (q *Queue) SetViewport(vp []driver.Viewport) {
	q.ops = append(q.ops, opSetViewport{append([]driver.Viewport(nil), vp...)})
}

// SetScissor records a scissor-rect update.
func (q *Queue) SetScissor(sciss []driver.Scissor) {
	q.ops = append(q.ops, opSetScissor{append([]driver.Scissor(nil), sciss...)})
}

// SetVertexBuf records a vertex buffer bind.
func (q *Queue) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	q.ops = append(q.ops, opSetVertexBuf{start, append([]driver.Buffer(nil), buf...), append([]int64(nil), off...)})
}

// SetIndexBuf records an index buffer bind.
func (q *Queue) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {
	q.ops = append(q.ops, opSetIndexBuf{format, buf, off})
}

// SetDescTableGraph records a descriptor table bind for the graphics
// pipeline. This is the queue's "bind" operation for textures,
// samplers and uniform buffers alike.
func (q *Queue) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	q.ops = append(q.ops, opSetDescTable{table, start, append([]int(nil), heapCopy...), false})
}

// SetDescTableComp records a descriptor table bind for the compute
// pipeline.
func (q *Queue) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	q.ops = append(q.ops, opSetDescTable{table, start, append([]int(nil), heapCopy...), true})
}

// UpdateUniform records a CPU-side write of data into a host-visible
// buffer's backing memory at the given byte offset, for pushing
// per-draw uniform/constant data ahead of a bind. It panics if buf is
// not host visible or the write would overrun its capacity; both are
// caller bugs, not recoverable runtime conditions.
func (q *Queue) UpdateUniform(buf driver.Buffer, off int64, data []byte) {
	if !buf.Visible() {
		panic("rqueue: UpdateUniform on non-visible buffer")
	}
	if off < 0 || off+int64(len(data)) > buf.Cap() {
		panic("rqueue: UpdateUniform out of bounds")
	}
	q.ops = append(q.ops, opUniform{buf, off, append([]byte(nil), data...)})
}

// Draw records a non-indexed draw call.
func (q *Queue) Draw(vertCount, instCount, baseVert, baseInst int) {
	q.ops = append(q.ops, opDraw{vertCount, instCount, baseVert, baseInst})
}

// DrawIndexed records an indexed draw call.
func (q *Queue) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	q.ops = append(q.ops, opDrawIndexed{idxCount, instCount, baseIdx, vertOff, baseInst})
}

// Dispatch records a compute dispatch.
func (q *Queue) Dispatch(x, y, z int) { q.ops = append(q.ops, opDispatch{x, y, z}) }

// Barrier records one or more global memory barriers.
func (q *Queue) Barrier(b []driver.Barrier) {
	q.ops = append(q.ops, opBarrier{append([]driver.Barrier(nil), b...)})
}

// Transition records one or more image layout transitions.
func (q *Queue) Transition(t []driver.Transition) {
	q.ops = append(q.ops, opTransition{append([]driver.Transition(nil), t...)})
}

// Scope brackets the operations recorded by fn with a named debug
// group, for the GPU-timeline-capture tooling driver implementations
// that support Scoper.
func (q *Queue) Scope(name string, fn func()) {
	q.ops = append(q.ops, opPushScope{name})
	fn()
	q.ops = append(q.ops, opPopScope{})
}

// Replay issues every recorded operation, in order, to cb. cb must
// already have had Begin called and the appropriate BeginPass/
// BeginWork block opened by the caller where the recorded ops expect
// one; Queue does not itself open or close those blocks unless they
// were recorded via BeginPass/BeginWork.
func (q *Queue) Replay(cb driver.CmdBuffer) {
	scoper, _ := cb.(Scoper)
	for _, op := range q.ops {
		switch o := op.(type) {
		case opBeginPass:
			cb.BeginPass(o.pass, o.fb, o.clear)
		case opNextSubpass:
			cb.NextSubpass()
		case opEndPass:
			cb.EndPass()
		case opBeginWork:
			cb.BeginWork(o.wait)
		case opEndWork:
			cb.EndWork()
		case opSetPipeline:
			cb.SetPipeline(o.pl)
		case opSetViewport:
			cb.SetViewport(o.vp)
		case opSetScissor:
			cb.SetScissor(o.sciss)
		case opSetVertexBuf:
			cb.SetVertexBuf(o.start, o.buf, o.off)
		case opSetIndexBuf:
			cb.SetIndexBuf(o.format, o.buf, o.off)
		case opSetDescTable:
			if o.compute {
				cb.SetDescTableComp(o.table, o.start, o.heapCopy)
			} else {
				cb.SetDescTableGraph(o.table, o.start, o.heapCopy)
			}
		case opUniform:
			copy(o.buf.Bytes()[o.off:], o.data)
		case opDraw:
			cb.Draw(o.vertCount, o.instCount, o.baseVert, o.baseInst)
		case opDrawIndexed:
			cb.DrawIndexed(o.idxCount, o.instCount, o.baseIdx, o.vertOff, o.baseInst)
		case opDispatch:
			cb.Dispatch(o.x, o.y, o.z)
		case opBarrier:
			cb.Barrier(o.b)
		case opTransition:
			cb.Transition(o.t)
		case opPushScope:
			if scoper != nil {
				scoper.PushScope(o.name)
			}
		case opPopScope:
			if scoper != nil {
				scoper.PopScope()
			}
		}
	}
}

type (
	opBeginPass struct {
		pass  driver.RenderPass
		fb    driver.Framebuf
		clear []driver.ClearValue
	}
	opNextSubpass struct{}
	opEndPass     struct{}
	opBeginWork   struct{ wait bool }
	opEndWork     struct{}
	opSetPipeline struct{ pl driver.Pipeline }
	opSetViewport struct{ vp []driver.Viewport }
	opSetScissor  struct{ sciss []driver.Scissor }
	opSetVertexBuf struct {
		start int
		buf   []driver.Buffer
		off   []int64
	}
	opSetIndexBuf struct {
		format driver.IndexFmt
		buf    driver.Buffer
		off    int64
	}
	opSetDescTable struct {
		table    driver.DescTable
		start    int
		heapCopy []int
		compute  bool
	}
	opUniform struct {
		buf  driver.Buffer
		off  int64
		data []byte
	}
	opDraw struct {
		vertCount, instCount, baseVert, baseInst int
	}
	opDrawIndexed struct {
		idxCount, instCount, baseIdx, vertOff, baseInst int
	}
	opDispatch    struct{ x, y, z int }
	opBarrier     struct{ b []driver.Barrier }
	opTransition  struct{ t []driver.Transition }
	opPushScope   struct{ name string }
	opPopScope    struct{}
)
