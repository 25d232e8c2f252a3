// Copyright 2022 Gustavo C. Viegas. All rights reserved.

package asset

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"reflect"

	"github.com/kestrel3d/kestrel/anim"
	"github.com/kestrel3d/kestrel/audio"
	"github.com/kestrel3d/kestrel/collider"
	"github.com/kestrel3d/kestrel/engine/texture"
	"github.com/kestrel3d/kestrel/gltf"
	"github.com/kestrel3d/kestrel/kerr"
)

// FlagLoop marks a Sound-scheme record whose clip should loop rather
// than play once, read from Record.Flags.
const FlagLoop uint32 = 1

// ControlThread is the custom-load queue index of the control
// stage, the same value as pipeline.ControlThread.
const ControlThread = 0

// RegisterBuiltinSchemes installs the Load/Done pair for every
// scheme index this module knows a concrete body format for: Raw,
// Pack and TextPack as plain byte passthroughs, Collider via
// package collider's own binary container, Skeleton and Animation
// via package anim's mirror of that same container, Sound as
// interleaved float32 PCM consumed directly by package audio,
// Texture via package engine/texture's image decoder, and Model via
// package gltf. Shader and Font are registered as stubs that fail
// with kerr.ErrNotImplemented: this package has no shader-bytecode
// compiler or font rasterizer to ground one in. SchemeObject is left
// entirely unregistered, since its whole purpose is runtime
// fabrication (Manager.Fabricate bypasses the load pipeline), and a
// caller wanting one configures its own Done/DataType per use.
func RegisterBuiltinSchemes(m *Manager) error {
	schemes := []Scheme{
		{Index: SchemeRaw, ThreadIndex: ControlThread, Load: loadRaw,
			DataType: reflect.TypeOf([]byte(nil))},
		{Index: SchemePack, ThreadIndex: ControlThread, Load: loadRaw,
			DataType: reflect.TypeOf([]byte(nil))},
		{Index: SchemeTextPack, ThreadIndex: ControlThread, Load: loadRaw,
			DataType: reflect.TypeOf([]byte(nil))},
		{Index: SchemeCollider, ThreadIndex: ControlThread, Load: loadCollider,
			DataType: reflect.TypeOf((*collider.Collider)(nil))},
		{Index: SchemeSkeleton, ThreadIndex: ControlThread, Load: loadSkeleton,
			DataType: reflect.TypeOf((*anim.Skeleton)(nil))},
		{Index: SchemeAnimation, ThreadIndex: ControlThread, Load: loadAnimation,
			DataType: reflect.TypeOf((*anim.Animation)(nil))},
		{Index: SchemeSound, ThreadIndex: ControlThread, Load: loadSound,
			DataType: reflect.TypeOf((*audio.ClipSource)(nil))},
		{Index: SchemeTexture, ThreadIndex: ControlThread, Load: loadTexture,
			DataType: reflect.TypeOf((*texture.Pixmap)(nil))},
		{Index: SchemeModel, ThreadIndex: ControlThread, Load: loadModel,
			DataType: reflect.TypeOf((*gltf.GLTF)(nil))},
		{Index: SchemeShader, ThreadIndex: ControlThread, Load: loadNotImplemented},
		{Index: SchemeFont, ThreadIndex: ControlThread, Load: loadNotImplemented},
	}
	for _, s := range schemes {
		if err := m.RegisterScheme(s); err != nil {
			return err
		}
	}
	return nil
}

func loadNotImplemented(rec *Record, body io.Reader) (any, error) {
	return nil, kerr.ErrNotImplemented
}

func loadRaw(rec *Record, body io.Reader) (any, error) {
	return io.ReadAll(body)
}

func loadCollider(rec *Record, body io.Reader) (any, error) {
	c := collider.New()
	if err := c.ImportBuffer(body); err != nil {
		return nil, err
	}
	return c, nil
}

func loadSkeleton(rec *Record, body io.Reader) (any, error) {
	return anim.ImportSkeleton(body)
}

func loadAnimation(rec *Record, body io.Reader) (any, error) {
	return anim.ImportAnimation(body)
}

// loadTexture decodes a Texture-scheme body as an image (PNG, JPEG or
// BMP) into a Pixmap at its native resolution. Uploading the decoded
// pixels to a GPU-backed Texture is left to whichever prepare-stage
// hook owns a driver.GPU: asset's workers run off that thread and
// never touch ctxt.GPU() themselves.
func loadTexture(rec *Record, body io.Reader) (any, error) {
	return texture.Decode(body)
}

// loadModel decodes a Model-scheme body as a glTF 2.0 asset, either
// the binary container (.glb) or plain JSON (.gltf), and validates
// its structure. Mesh/material/skin GPU resource creation from the
// decoded graph is left to the caller, for the same reason
// loadTexture stops short of a GPU upload.
func loadModel(rec *Record, body io.Reader) (any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	var f *gltf.GLTF
	if gltf.IsGLB(bytes.NewReader(raw)) {
		f, _, err = gltf.Unpack(bytes.NewReader(raw))
	} else {
		f, err = gltf.Decode(bytes.NewReader(raw))
	}
	if err != nil {
		return nil, err
	}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// loadSound decodes a Sound-scheme body as interleaved, little-
// endian float32 PCM samples and wraps them in a ClipSource ready
// for a Mixer, looping according to Record.Flags&FlagLoop.
func loadSound(rec *Record, body io.Reader) (any, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	samples := make([]float32, len(raw)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(raw[i*4:])
		samples[i] = math.Float32frombits(bits)
	}
	return audio.NewClipSource(samples, rec.Flags&FlagLoop != 0), nil
}
