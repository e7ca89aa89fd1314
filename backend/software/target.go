// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package software is a CPU render target for hosts without a GPU surface.
//
// Target implements gpucore.Target on images: the frame texture is an
// *image.NRGBA, Present scales it to the configured surface size with a
// bilinear filter and applies the same threshold shading as the GPU
// fragment shader. The presented image is available through Snapshot.
//
//	target, _ := software.NewTarget(gpucore.Size{Width: 800, Height: 600}, frames.Size())
//	eng, _ := liveview.NewEngine(target, frames)
//	eng.Render(nil)
//	img := target.Snapshot()
package software

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/gogpu/gputypes"
	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/liveview/gpucore"
)

// Errors.
var (
	// ErrReleased is returned by operations on a released target.
	ErrReleased = errors.New("software: target released")

	// ErrInvalidDimensions is returned for a frame that does not match the
	// texture or a non-positive texture size.
	ErrInvalidDimensions = errors.New("software: invalid dimensions")
)

// Luma weights, matching the fragment shader.
const (
	lumaR = 0.299
	lumaG = 0.587
	lumaB = 0.114
)

// Option configures a Target.
type Option func(*options)

type options struct {
	filter xdraw.Interpolator
	format gputypes.TextureFormat
}

// WithFilter sets the texture filter. The default is bilinear, like the
// GPU sampler; xdraw.NearestNeighbor keeps texels exact.
func WithFilter(f xdraw.Interpolator) Option {
	return func(o *options) {
		if f != nil {
			o.filter = f
		}
	}
}

// Target renders to an in-memory surface. Like every gpucore.Target it is
// driven under the engine lock; Snapshot and Presents may be called from
// any goroutine.
type Target struct {
	texSize gpucore.Size
	filter  xdraw.Interpolator

	cfg        gpucore.SurfaceConfig
	texture    *image.NRGBA
	scaled     *image.NRGBA
	thresholds gpucore.Thresholds
	released   bool

	mu       sync.Mutex // guards surface, presents
	surface  *image.RGBA
	presents uint64
}

var _ gpucore.Target = (*Target)(nil)

// NewTarget creates a target with a surface of size and a frame texture
// of texSize.
func NewTarget(size, texSize gpucore.Size, opts ...Option) (*Target, error) {
	if texSize.Width < 1 || texSize.Height < 1 {
		return nil, fmt.Errorf("%w: frame texture %s", ErrInvalidDimensions, texSize)
	}
	o := options{
		filter: xdraw.BiLinear,
		format: gputypes.TextureFormatRGBA8Unorm,
	}
	for _, opt := range opts {
		opt(&o)
	}

	size = size.Clamped()
	return &Target{
		texSize: texSize,
		filter:  o.filter,
		cfg: gpucore.SurfaceConfig{
			Size:            size,
			Format:          o.format,
			PresentMode:     gputypes.PresentModeFifo,
			AlphaMode:       gputypes.CompositeAlphaModePremultiplied,
			MaxFrameLatency: 1,
		},
		texture:    image.NewNRGBA(image.Rect(0, 0, texSize.Width, texSize.Height)),
		thresholds: gpucore.DefaultThresholds(),
		surface:    image.NewRGBA(image.Rect(0, 0, size.Width, size.Height)),
	}, nil
}

// Configure resizes the surface.
func (t *Target) Configure(cfg gpucore.SurfaceConfig) error {
	if t.released {
		return ErrReleased
	}
	cfg.Size = cfg.Size.Clamped()
	t.cfg = cfg
	return nil
}

// Config returns the current surface configuration.
func (t *Target) Config() gpucore.SurfaceConfig { return t.cfg }

// TextureSize returns the frame texture dimensions.
func (t *Target) TextureSize() gpucore.Size { return t.texSize }

// UploadFrame copies img into the frame texture.
func (t *Target) UploadFrame(img *gpucore.Image) error {
	if t.released {
		return ErrReleased
	}
	if !img.Valid() || img.Size() != t.texSize {
		return fmt.Errorf("%w: image %s, texture %s", ErrInvalidDimensions, img.Size(), t.texSize)
	}
	copy(t.texture.Pix, img.Pix)
	return nil
}

// WriteThresholds sets the threshold window used by Present.
func (t *Target) WriteThresholds(th gpucore.Thresholds) error {
	if t.released {
		return ErrReleased
	}
	t.thresholds = th
	return nil
}

// Present draws the texture over the whole surface, shading every pixel
// with Shade.
func (t *Target) Present() error {
	if t.released {
		return ErrReleased
	}

	size := t.cfg.Size
	rect := image.Rect(0, 0, size.Width, size.Height)
	if t.scaled == nil || t.scaled.Rect != rect {
		t.scaled = image.NewNRGBA(rect)
	}
	t.filter.Scale(t.scaled, rect, t.texture, t.texture.Rect, xdraw.Src, nil)

	out := image.NewRGBA(rect)
	for y := range size.Height {
		for x := range size.Width {
			out.SetRGBA(x, y, Shade(t.scaled.NRGBAAt(x, y), t.thresholds))
		}
	}

	t.mu.Lock()
	t.surface = out
	t.presents++
	t.mu.Unlock()
	return nil
}

// Shade is the CPU form of the fragment shader: it returns transparent
// when the luminance of c, in percent, lies outside [th.Low, th.High] and
// the premultiplied color otherwise.
func Shade(c color.NRGBA, th gpucore.Thresholds) color.RGBA {
	if l := Level(c); l < th.Low || l > th.High {
		return color.RGBA{}
	}
	return color.RGBAModel.Convert(c).(color.RGBA)
}

// Level returns the luminance of c in percent, rounded to nearest.
func Level(c color.NRGBA) uint32 {
	luma := (lumaR*float64(c.R) + lumaG*float64(c.G) + lumaB*float64(c.B)) / 255
	return uint32(luma*100 + 0.5)
}

// Snapshot returns a copy of the last presented surface.
func (t *Target) Snapshot() *image.RGBA {
	t.mu.Lock()
	defer t.mu.Unlock()

	img := image.NewRGBA(t.surface.Rect)
	copy(img.Pix, t.surface.Pix)
	return img
}

// Presents returns the number of presented frames.
func (t *Target) Presents() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.presents
}

// Release marks the target unusable. The last snapshot stays readable.
func (t *Target) Release() {
	t.released = true
	t.texture = nil
	t.scaled = nil
}
