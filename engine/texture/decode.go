// Copyright 2023 Gustavo C. Viegas. All rights reserved.

package texture

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
)

// Pixmap holds a decoded image as tightly packed RGBA8 pixels, the
// form a stagingBuffer expects when copying into a Texture's first
// mip level.
type Pixmap struct {
	Width, Height int
	Pix           []byte
}

// DecodePixels decodes r as an image in any format registered with
// package image (png, jpeg and bmp, via this file's blank imports) and
// resamples it to width×height RGBA8 pixels, tightly packed, ready
// for a stagingBuffer to copy into a Texture's first mip level. The
// GPU upload itself is left to whichever caller owns a driver.GPU.
func DecodePixels(r io.Reader, width, height int) ([]byte, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf(prefix+"DecodePixels: %w", err)
	}
	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix, nil
}

// Decode decodes r as an image at its own native resolution, with no
// resampling, returning a Pixmap. Used where the caller (the asset
// manager's Texture scheme, in particular) has no predetermined
// target size and instead derives the Texture's dimensions from the
// decoded image itself.
func Decode(r io.Reader) (*Pixmap, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf(prefix+"Decode: %w", err)
	}
	b := src.Bounds()
	dst := image.NewRGBA(b)
	draw.Draw(dst, b, src, b.Min, draw.Src)
	return &Pixmap{Width: b.Dx(), Height: b.Dy(), Pix: dst.Pix}, nil
}
