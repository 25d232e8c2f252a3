// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package null

import "github.com/kestrel3d/kestrel/driver"

// block identifies which kind of logical block (if any) a
// CmdBuffer is currently recording.
type block int

const (
	blockNone block = iota
	blockPass
	blockWork
	blockBlit
)

// CmdBuffer is a software driver.CmdBuffer. It records every
// call into an ordered log of ops; Commit marks it committed
// but performs no actual GPU work, since there is no GPU.
type CmdBuffer struct {
	recording bool
	committed bool
	cur       block
	ops       []any
}

func (b *CmdBuffer) Destroy() { *b = CmdBuffer{} }

func (b *CmdBuffer) Begin() error {
	if b.recording {
		return driver.ErrFatal
	}
	b.recording = true
	b.committed = false
	b.ops = b.ops[:0]
	b.cur = blockNone
	return nil
}

func (b *CmdBuffer) BeginPass(pass driver.RenderPass, fb driver.Framebuf, clear []driver.ClearValue) {
	b.cur = blockPass
	b.ops = append(b.ops, opBeginPass{pass, fb, append([]driver.ClearValue(nil), clear...)})
}

func (b *CmdBuffer) NextSubpass() { b.ops = append(b.ops, opNextSubpass{}) }
func (b *CmdBuffer) EndPass()     { b.cur = blockNone; b.ops = append(b.ops, opEndPass{}) }

func (b *CmdBuffer) BeginWork(wait bool) {
	b.cur = blockWork
	b.ops = append(b.ops, opBeginWork{wait})
}
func (b *CmdBuffer) EndWork() { b.cur = blockNone; b.ops = append(b.ops, opEndWork{}) }

func (b *CmdBuffer) BeginBlit(wait bool) {
	b.cur = blockBlit
	b.ops = append(b.ops, opBeginBlit{wait})
}
func (b *CmdBuffer) EndBlit() { b.cur = blockNone; b.ops = append(b.ops, opEndBlit{}) }

func (b *CmdBuffer) SetPipeline(pl driver.Pipeline) { b.ops = append(b.ops, opSetPipeline{pl}) }
func (b *CmdBuffer) SetViewport(vp []driver.Viewport) {
	b.ops = append(b.ops, opSetViewport{append([]driver.Viewport(nil), vp...)})
}
func (b *CmdBuffer) SetScissor(sciss []driver.Scissor) {
	b.ops = append(b.ops, opSetScissor{append([]driver.Scissor(nil), sciss...)})
}
func (b *CmdBuffer) SetBlendColor(r, g, bl, a float32) {
	b.ops = append(b.ops, opSetBlendColor{r, g, bl, a})
}
func (b *CmdBuffer) SetStencilRef(value uint32) { b.ops = append(b.ops, opSetStencilRef{value}) }

func (b *CmdBuffer) SetVertexBuf(start int, buf []driver.Buffer, off []int64) {
	b.ops = append(b.ops, opSetVertexBuf{start, append([]driver.Buffer(nil), buf...), append([]int64(nil), off...)})
}
func (b *CmdBuffer) SetIndexBuf(format driver.IndexFmt, buf driver.Buffer, off int64) {
	b.ops = append(b.ops, opSetIndexBuf{format, buf, off})
}
func (b *CmdBuffer) SetDescTableGraph(table driver.DescTable, start int, heapCopy []int) {
	b.ops = append(b.ops, opSetDescTable{table, start, append([]int(nil), heapCopy...), false})
}
func (b *CmdBuffer) SetDescTableComp(table driver.DescTable, start int, heapCopy []int) {
	b.ops = append(b.ops, opSetDescTable{table, start, append([]int(nil), heapCopy...), true})
}

func (b *CmdBuffer) Draw(vertCount, instCount, baseVert, baseInst int) {
	b.ops = append(b.ops, opDraw{vertCount, instCount, baseVert, baseInst})
}
func (b *CmdBuffer) DrawIndexed(idxCount, instCount, baseIdx, vertOff, baseInst int) {
	b.ops = append(b.ops, opDrawIndexed{idxCount, instCount, baseIdx, vertOff, baseInst})
}
func (b *CmdBuffer) Dispatch(x, y, z int) { b.ops = append(b.ops, opDispatch{x, y, z}) }

func (b *CmdBuffer) CopyBuffer(param *driver.BufferCopy) { b.ops = append(b.ops, opCopyBuffer{*param}) }
func (b *CmdBuffer) CopyImage(param *driver.ImageCopy)   { b.ops = append(b.ops, opCopyImage{*param}) }
func (b *CmdBuffer) CopyBufToImg(param *driver.BufImgCopy) {
	b.ops = append(b.ops, opCopyBufToImg{*param})
}
func (b *CmdBuffer) CopyImgToBuf(param *driver.BufImgCopy) {
	b.ops = append(b.ops, opCopyImgToBuf{*param})
}
func (b *CmdBuffer) Fill(buf driver.Buffer, off int64, value byte, size int64) {
	b.ops = append(b.ops, opFill{buf, off, value, size})
	if nb, ok := buf.(*Buffer); ok && nb.visible {
		for i := off; i < off+size; i++ {
			nb.data[i] = value
		}
	}
}

func (b *CmdBuffer) Barrier(bs []driver.Barrier)         { b.ops = append(b.ops, opBarrier{append([]driver.Barrier(nil), bs...)}) }
func (b *CmdBuffer) Transition(t []driver.Transition)    { b.ops = append(b.ops, opTransition{append([]driver.Transition(nil), t...)}) }

func (b *CmdBuffer) End() error {
	if !b.recording || b.cur != blockNone {
		b.Reset()
		return driver.ErrFatal
	}
	b.recording = false
	return nil
}

func (b *CmdBuffer) Reset() error {
	b.recording = false
	b.committed = false
	b.cur = blockNone
	b.ops = b.ops[:0]
	return nil
}

// Ops returns the recorded op log, for tests that assert on
// replay order (e.g., the render queue's record-then-replay
// contract in package rqueue).
func (b *CmdBuffer) Ops() []any { return b.ops }

// Committed reports whether GPU.Commit has processed this
// buffer since the last Begin/Reset.
func (b *CmdBuffer) Committed() bool { return b.committed }

type (
	opBeginPass     struct {
		pass  driver.RenderPass
		fb    driver.Framebuf
		clear []driver.ClearValue
	}
	opNextSubpass   struct{}
	opEndPass       struct{}
	opBeginWork     struct{ wait bool }
	opEndWork       struct{}
	opBeginBlit     struct{ wait bool }
	opEndBlit       struct{}
	opSetPipeline   struct{ pl driver.Pipeline }
	opSetViewport   struct{ vp []driver.Viewport }
	opSetScissor    struct{ sciss []driver.Scissor }
	opSetBlendColor struct{ r, g, b, a float32 }
	opSetStencilRef struct{ value uint32 }
	opSetVertexBuf  struct {
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
	opDraw struct {
		vertCount, instCount, baseVert, baseInst int
	}
	opDrawIndexed struct {
		idxCount, instCount, baseIdx, vertOff, baseInst int
	}
	opDispatch      struct{ x, y, z int }
	opCopyBuffer    struct{ param driver.BufferCopy }
	opCopyImage     struct{ param driver.ImageCopy }
	opCopyBufToImg  struct{ param driver.BufImgCopy }
	opCopyImgToBuf  struct{ param driver.BufImgCopy }
	opFill          struct {
		buf   driver.Buffer
		off   int64
		value byte
		size  int64
	}
	opBarrier    struct{ b []driver.Barrier }
	opTransition struct{ t []driver.Transition }
)
