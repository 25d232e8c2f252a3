// Copyright 2022 Gustavo C. Viegas. All rights reserved.

// Package null implements a software driver.GPU.
// It performs no rendering: buffers and images are backed by
// plain Go memory and command buffers simply record calls
// for later inspection. It exists so that the frame pipeline,
// render queue and asset manager can be exercised in full
// (including Commit round-trips) without a real display
// adapter, the same role video_backend_headless fills for a
// windowing backend.
package null

import (
	"sync"

	"github.com/kestrel3d/kestrel/driver"
)

func init() {
	driver.Register(nullDriver{})
}

type nullDriver struct{}

func (nullDriver) Name() string { return "null" }
func (nullDriver) Close()       {}

func (nullDriver) Open() (driver.GPU, error) {
	return &GPU{}, nil
}

// GPU is a software stand-in for driver.GPU.
type GPU struct{ mu sync.Mutex }

func (g *GPU) Driver() driver.Driver { return nullDriver{} }

// Commit marks every null CmdBuffer in cb committed and
// reports success on ch (if non-nil) before returning. No
// recorded command is executed.
func (g *GPU) Commit(cb []driver.CmdBuffer, ch chan<- error) {
	for _, b := range cb {
		if nb, ok := b.(*CmdBuffer); ok {
			nb.committed = true
		}
	}
	if ch != nil {
		ch <- nil
	}
}

func (g *GPU) NewCmdBuffer() (driver.CmdBuffer, error) { return &CmdBuffer{}, nil }

func (g *GPU) NewRenderPass(att []driver.Attachment, sub []driver.Subpass) (driver.RenderPass, error) {
	return &renderPass{att: att, sub: sub}, nil
}

func (g *GPU) NewShaderCode(data []byte) (driver.ShaderCode, error) {
	cp := append([]byte(nil), data...)
	return &shaderCode{data: cp}, nil
}

func (g *GPU) NewDescHeap(ds []driver.Descriptor) (driver.DescHeap, error) {
	return &descHeap{ds: ds}, nil
}

func (g *GPU) NewDescTable(dh []driver.DescHeap) (driver.DescTable, error) {
	return &descTable{dh: dh}, nil
}

func (g *GPU) NewPipeline(state any) (driver.Pipeline, error) {
	switch state.(type) {
	case *driver.GraphState, *driver.CompState:
		return &pipeline{state: state}, nil
	default:
		return nil, driver.ErrFatal
	}
}

func (g *GPU) NewBuffer(size int64, visible bool, usg driver.Usage) (driver.Buffer, error) {
	return &Buffer{data: make([]byte, size), visible: visible, usg: usg}, nil
}

func (g *GPU) NewImage(pf driver.PixelFmt, size driver.Dim3D, layers, levels, samples int, usg driver.Usage) (driver.Image, error) {
	return &Image{pf: pf, size: size, layers: layers, levels: levels, samples: samples, usg: usg}, nil
}

func (g *GPU) NewSampler(spln *driver.Sampling) (driver.Sampler, error) {
	return &sampler{spln: *spln}, nil
}

func (g *GPU) Limits() driver.Limits {
	return driver.Limits{
		MaxImage1D:        16384,
		MaxImage2D:        16384,
		MaxImageCube:      16384,
		MaxImage3D:        2048,
		MaxLayers:         2048,
		MaxDescHeaps:      8,
		MaxDBuffer:        1 << 16,
		MaxDImage:         1 << 16,
		MaxDConstant:      1 << 16,
		MaxDTexture:       1 << 16,
		MaxDSampler:       4096,
		MaxDBufferRange:   1 << 30,
		MaxDConstantRange: 1 << 16,
		MaxColorTargets:   8,
		MaxFBSize:         [2]int{16384, 16384},
		MaxFBLayers:       2048,
		MaxPointSize:      256,
		MaxViewports:      16,
		MaxVertexIn:       32,
		MaxFragmentIn:     32,
		MaxDispatch:       [3]int{65535, 65535, 65535},
	}
}

// Buffer is a host-visible, plain-memory driver.Buffer.
type Buffer struct {
	data    []byte
	visible bool
	usg     driver.Usage
}

func (b *Buffer) Destroy()       { b.data = nil }
func (b *Buffer) Visible() bool  { return b.visible }
func (b *Buffer) Cap() int64     { return int64(len(b.data)) }
func (b *Buffer) Bytes() []byte {
	if !b.visible {
		return nil
	}
	return b.data
}

// Image is a plain-memory driver.Image; it stores no texel
// data (images are not host-visible in the real interface
// either), only the parameters needed to validate views.
type Image struct {
	pf                      driver.PixelFmt
	size                    driver.Dim3D
	layers, levels, samples int
	usg                     driver.Usage
}

func (im *Image) Destroy() {}

func (im *Image) NewView(typ driver.ViewType, layer, layers, level, levels int) (driver.ImageView, error) {
	if layer+layers > im.layers || level+levels > im.levels {
		return nil, driver.ErrFatal
	}
	return &imageView{img: im, typ: typ}, nil
}

type imageView struct {
	img *Image
	typ driver.ViewType
}

func (*imageView) Destroy() {}

type sampler struct{ spln driver.Sampling }

func (*sampler) Destroy() {}

type shaderCode struct{ data []byte }

func (*shaderCode) Destroy() {}

type renderPass struct {
	att []driver.Attachment
	sub []driver.Subpass
}

func (*renderPass) Destroy() {}

func (p *renderPass) NewFB(iv []driver.ImageView, width, height, layers int) (driver.Framebuf, error) {
	return &framebuf{p, iv, driver.Dim3D{Width: width, Height: height, Depth: layers}}, nil
}

type descHeap struct{ ds []driver.Descriptor }

func (*descHeap) Destroy() {}

type descTable struct{ dh []driver.DescHeap }

func (*descTable) Destroy() {}

type pipeline struct{ state any }

func (*pipeline) Destroy() {}

type framebuf struct {
	pass driver.RenderPass
	att  []driver.ImageView
	size driver.Dim3D
}

func (*framebuf) Destroy() {}
