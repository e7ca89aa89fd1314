package assets

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func writePNG(t *testing.T, path string, w, h int, c color.NRGBA) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetNRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func writeBMP(t *testing.T, path string, w, h int, c color.RGBA) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, c)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := bmp.Encode(f, img); err != nil {
		t.Fatal(err)
	}
}

func newSequence(t *testing.T, count int) string {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "default.png"), 4, 3, color.NRGBA{A: 255})
	for i := 1; i <= count; i++ {
		writePNG(t, filepath.Join(dir, "frame-"+strconv.Itoa(i)+".png"), 4, 3,
			color.NRGBA{R: uint8(i * 10), A: 255})
	}
	return dir
}

func TestFromStdImage_NRGBA(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	src.SetNRGBA(1, 1, color.NRGBA{R: 128, G: 64, B: 32, A: 200})

	img := FromStdImage(src)

	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("Dimensions = (%d, %d), want (2, 2)", img.Width, img.Height)
	}
	off := (1*2 + 1) * 4
	got := img.Pix[off : off+4]
	if got[0] != 128 || got[1] != 64 || got[2] != 32 || got[3] != 200 {
		t.Errorf("Pixel = %v, want [128 64 32 200]", got)
	}
}

func TestFromStdImage_SubImage(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	src.SetNRGBA(2, 2, color.NRGBA{R: 255, A: 255})
	sub := src.SubImage(image.Rect(2, 2, 4, 4))

	img := FromStdImage(sub)

	if img.Width != 2 || img.Height != 2 {
		t.Fatalf("Dimensions = (%d, %d), want (2, 2)", img.Width, img.Height)
	}
	if img.Pix[0] != 255 || img.Pix[3] != 255 {
		t.Errorf("origin pixel = %v, want red", img.Pix[:4])
	}
}

func TestFromStdImage_Gray(t *testing.T) {
	gray := image.NewGray(image.Rect(0, 0, 3, 3))
	gray.SetGray(1, 1, color.Gray{Y: 128})

	img := FromStdImage(gray)

	off := (1*3 + 1) * 4
	got := img.Pix[off : off+4]
	if got[0] != 128 || got[1] != 128 || got[2] != 128 || got[3] != 255 {
		t.Errorf("Pixel = %v, want [128 128 128 255]", got)
	}
}

func TestDecodeFormats(t *testing.T) {
	dir := t.TempDir()

	bmpPath := filepath.Join(dir, "a.bmp")
	writeBMP(t, bmpPath, 5, 2, color.RGBA{G: 255, A: 255})

	tiffPath := filepath.Join(dir, "a.tiff")
	f, err := os.Create(tiffPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := tiff.Encode(f, image.NewNRGBA(image.Rect(0, 0, 5, 2)), nil); err != nil {
		t.Fatal(err)
	}
	f.Close()

	for _, p := range []string{bmpPath, tiffPath} {
		img, err := Load(p)
		if err != nil {
			t.Fatalf("Load(%s): %v", filepath.Base(p), err)
		}
		if img.Width != 5 || img.Height != 2 {
			t.Errorf("%s: got %dx%d, want 5x2", filepath.Base(p), img.Width, img.Height)
		}
		if !img.Valid() {
			t.Errorf("%s: invalid pixel buffer", filepath.Base(p))
		}
	}
}

func TestLoadBytesEmpty(t *testing.T) {
	if _, err := LoadBytes(nil); !errors.Is(err, ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}
	if _, err := LoadBytes([]byte("not an image")); err == nil {
		t.Error("expected decode error for garbage input")
	}
}

func TestOpenDir(t *testing.T) {
	dir := newSequence(t, 3)

	d, err := OpenDir(dir, 3)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if d.Len() != 3 {
		t.Errorf("Len() = %d, want 3", d.Len())
	}
	if s := d.Size(); s.Width != 4 || s.Height != 3 {
		t.Errorf("Size() = %v, want 4x3", s)
	}

	img, err := d.Frame(1)
	if err != nil {
		t.Fatalf("Frame(1): %v", err)
	}
	if img.Pix[0] != 20 {
		t.Errorf("Frame(1) red = %d, want 20 (frame-2)", img.Pix[0])
	}
}

func TestOpenDirMissingDefault(t *testing.T) {
	if _, err := OpenDir(t.TempDir(), 3); !errors.Is(err, ErrMissingFrame) {
		t.Errorf("expected ErrMissingFrame, got %v", err)
	}
}

func TestDirMissingFrame(t *testing.T) {
	dir := newSequence(t, 2)
	d, err := OpenDir(dir, 4)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := d.Frame(3); !errors.Is(err, ErrMissingFrame) {
		t.Errorf("expected ErrMissingFrame, got %v", err)
	}
	if _, err := d.Frame(4); !errors.Is(err, ErrFrameIndex) {
		t.Errorf("expected ErrFrameIndex, got %v", err)
	}
	if _, err := d.Frame(-1); !errors.Is(err, ErrFrameIndex) {
		t.Errorf("expected ErrFrameIndex for -1, got %v", err)
	}
}

func TestDirCachesDecodes(t *testing.T) {
	dir := newSequence(t, 2)
	d, err := OpenDir(dir, 2)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}

	d.Prefetch(0)
	first, _ := d.Frame(0)
	second, _ := d.Frame(0)
	if first != second {
		t.Error("expected the cached image to be returned")
	}
	if s := d.CacheStats(); s.Len != 2 {
		t.Errorf("cache len = %d, want 2 (idle + frame 0)", s.Len)
	}

	d.Invalidate(0)
	third, _ := d.Frame(0)
	if third == first {
		t.Error("expected a fresh decode after Invalidate")
	}
}

func TestKeyForFile(t *testing.T) {
	d := &Dir{count: 11}
	tests := []struct {
		name string
		key  int
		ok   bool
	}{
		{"/x/default.png", idleKey, true},
		{"frame-1.png", 0, true},
		{"frame-11.webp", 10, true},
		{"frame-12.png", 0, false},
		{"frame-0.png", 0, false},
		{"frame-x.png", 0, false},
		{"notes.txt", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, ok := d.keyForFile(tt.name)
			if ok != tt.ok || key != tt.key {
				t.Errorf("keyForFile(%q) = (%d, %v), want (%d, %v)", tt.name, key, ok, tt.key, tt.ok)
			}
		})
	}
}

func TestDirWatchInvalidates(t *testing.T) {
	dir := newSequence(t, 1)
	d, err := OpenDir(dir, 1)
	if err != nil {
		t.Fatalf("OpenDir: %v", err)
	}
	if _, err := d.Frame(0); err != nil {
		t.Fatalf("Frame(0): %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	changed := make(chan int, 64)
	onChange := func(i int) {
		select {
		case changed <- i:
		default:
		}
	}
	go func() { done <- d.Watch(ctx, onChange) }()
	defer func() {
		cancel()
		<-done
	}()

	// Rewrite until the watcher is registered and has dropped the entry.
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		writePNG(t, filepath.Join(dir, "frame-1.png"), 4, 3, color.NRGBA{R: 99, A: 255})
		time.Sleep(50 * time.Millisecond)
		img, err := d.Frame(0)
		if err == nil && img.Pix[0] == 99 {
			select {
			case i := <-changed:
				if i != 0 {
					t.Errorf("onChange(%d), want 0", i)
				}
			case <-time.After(time.Second):
				t.Error("onChange was not called")
			}
			return
		}
	}
	t.Fatal("watcher did not invalidate the rewritten frame")
}

func TestSynthetic(t *testing.T) {
	m := Synthetic(11, 8, 4)
	if m.Len() != 11 {
		t.Fatalf("Len() = %d, want 11", m.Len())
	}
	for i := range m.Len() {
		img, err := m.Frame(i)
		if err != nil {
			t.Fatalf("Frame(%d): %v", i, err)
		}
		if img.Size() != m.Size() {
			t.Errorf("Frame(%d) size %v, want %v", i, img.Size(), m.Size())
		}
	}
	if _, err := m.Frame(11); !errors.Is(err, ErrFrameIndex) {
		t.Errorf("expected ErrFrameIndex, got %v", err)
	}
}
