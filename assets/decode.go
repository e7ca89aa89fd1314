package assets

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"os"
	"path/filepath"

	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"  // register BMP decoder
	_ "golang.org/x/image/tiff" // register TIFF decoder
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/gogpu/liveview/gpucore"
)

// Decode errors.
var (
	// ErrEmptyData is returned when image data is empty.
	ErrEmptyData = errors.New("assets: empty data")

	// ErrMissingFrame is returned when no file exists for a frame.
	ErrMissingFrame = errors.New("assets: missing frame")

	// ErrFrameIndex is returned for an index outside the sequence.
	ErrFrameIndex = errors.New("assets: frame index out of range")
)

// Extensions lists the file extensions probed for each frame, in order.
var Extensions = []string{".png", ".jpg", ".jpeg", ".bmp", ".tiff", ".tif", ".webp"}

// Load decodes the image at path into RGBA8.
func Load(path string) (*gpucore.Image, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("assets: open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return Decode(f)
}

// LoadBytes decodes an in-memory image into RGBA8.
func LoadBytes(data []byte) (*gpucore.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmptyData
	}
	return Decode(bytes.NewReader(data))
}

// Decode decodes an image from r, auto-detecting the format.
// Supported formats: PNG, JPEG, BMP, TIFF, WebP.
func Decode(r io.Reader) (*gpucore.Image, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("assets: decode: %w", err)
	}
	return FromStdImage(img), nil
}

// FromStdImage converts any image.Image to tightly packed non-premultiplied
// RGBA8, the layout of the frame texture.
func FromStdImage(img image.Image) *gpucore.Image {
	b := img.Bounds()
	out := gpucore.NewImage(b.Dx(), b.Dy())
	rowBytes := out.Stride()

	// Fast path: NRGBA already has the texture layout.
	if nrgba, ok := img.(*image.NRGBA); ok {
		for y := range out.Height {
			src := nrgba.Pix[nrgba.PixOffset(b.Min.X, b.Min.Y+y):]
			copy(out.Pix[y*rowBytes:(y+1)*rowBytes], src[:rowBytes])
		}
		return out
	}

	dst := &image.NRGBA{
		Pix:    out.Pix,
		Stride: rowBytes,
		Rect:   image.Rect(0, 0, out.Width, out.Height),
	}
	draw.Draw(dst, dst.Rect, img, b.Min, draw.Src)
	return out
}
