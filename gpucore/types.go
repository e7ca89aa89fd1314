// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpucore

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Size is a surface size in physical pixels.
type Size struct {
	Width  int
	Height int
}

// Clamped returns s with each dimension raised to at least 1.
// A zero-area surface configuration is invalid.
func (s Size) Clamped() Size {
	if s.Width < 1 {
		s.Width = 1
	}
	if s.Height < 1 {
		s.Height = 1
	}
	return s
}

// String returns "WxH".
func (s Size) String() string {
	return fmt.Sprintf("%dx%d", s.Width, s.Height)
}

// SurfaceConfig is the presentation configuration of a surface.
type SurfaceConfig struct {
	// Size is the configured surface size. Always at least 1x1 once applied.
	Size Size

	// Format is the negotiated surface texture format.
	Format gputypes.TextureFormat

	// PresentMode is the presentation mode (FIFO by default).
	PresentMode gputypes.PresentMode

	// AlphaMode is the composite alpha mode.
	AlphaMode gputypes.CompositeAlphaMode

	// MaxFrameLatency is the requested maximum number of queued frames.
	MaxFrameLatency int
}

// Image is a decoded frame: tightly packed, non-premultiplied RGBA8 pixels.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// NewImage allocates a zeroed width x height image.
func NewImage(width, height int) *Image {
	return &Image{
		Width:  width,
		Height: height,
		Pix:    make([]byte, width*height*4),
	}
}

// Stride returns the number of bytes per row.
func (img *Image) Stride() int {
	return img.Width * 4
}

// Size returns the image dimensions.
func (img *Image) Size() Size {
	return Size{Width: img.Width, Height: img.Height}
}

// Valid reports whether the pixel buffer matches the dimensions.
func (img *Image) Valid() bool {
	return img != nil && img.Width > 0 && img.Height > 0 && len(img.Pix) == img.Width*img.Height*4
}
