package assets

import (
	"fmt"

	"github.com/gogpu/liveview/gpucore"
)

// Memory is a frame sequence held entirely in memory.
type Memory struct {
	idle   *gpucore.Image
	frames []*gpucore.Image
}

// NewMemory returns a sequence over the given frames.
func NewMemory(idle *gpucore.Image, frames ...*gpucore.Image) *Memory {
	return &Memory{idle: idle, frames: frames}
}

// Len returns the number of frames.
func (m *Memory) Len() int { return len(m.frames) }

// Size returns the idle image dimensions.
func (m *Memory) Size() gpucore.Size { return m.idle.Size() }

// Idle returns the idle image.
func (m *Memory) Idle() (*gpucore.Image, error) {
	return m.idle, nil
}

// Frame returns frame index.
func (m *Memory) Frame(index int) (*gpucore.Image, error) {
	if index < 0 || index >= len(m.frames) {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, index, len(m.frames))
	}
	if m.frames[index] == nil {
		return nil, fmt.Errorf("%w: frame-%d", ErrMissingFrame, index+1)
	}
	return m.frames[index], nil
}

// Solid returns a width x height image filled with one color.
func Solid(width, height int, r, g, b, a uint8) *gpucore.Image {
	img := gpucore.NewImage(width, height)
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i] = r
		img.Pix[i+1] = g
		img.Pix[i+2] = b
		img.Pix[i+3] = a
	}
	return img
}

// Synthetic builds a count-frame test pattern: a dark idle image and frames
// whose brightness ramps across the sequence. Used when no asset directory
// is configured.
func Synthetic(count, width, height int) *Memory {
	frames := make([]*gpucore.Image, count)
	for i := range frames {
		frames[i] = gpucore.NewImage(width, height)
		level := uint8(255 * (i + 1) / count)
		pix := frames[i].Pix
		for y := range height {
			for x := range width {
				off := (y*width + x) * 4
				pix[off] = level
				pix[off+1] = uint8(255 * x / max(width-1, 1))
				pix[off+2] = uint8(255 * y / max(height-1, 1))
				pix[off+3] = 255
			}
		}
	}
	return NewMemory(Solid(width, height, 16, 16, 16, 255), frames...)
}
