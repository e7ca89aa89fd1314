package main

import (
	"context"
	"fmt"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gpucontext"

	"github.com/gogpu/liveview/config"
)

// window is a GLFW window without a client API, so the GPU surface can be
// created from its native handle.
type window struct {
	w      *glfw.Window
	resize func(width, height int)
}

var _ gpucontext.WindowProvider = (*window)(nil)

// newWindow opens a resizable window with a transparent framebuffer and no
// client API, ready for a wgpu surface. glfw must be initialized.
func newWindow(cfg config.Window) (*window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.TransparentFramebuffer, glfw.True)

	w, err := glfw.CreateWindow(cfg.Width, cfg.Height, cfg.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("glfw: create window: %w", err)
	}
	win := &window{w: w}
	w.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		if win.resize != nil {
			win.resize(width, height)
		}
	})
	return win, nil
}

// onResize sets the callback that receives the framebuffer size in pixels.
// It runs on the main thread during event processing.
func (win *window) onResize(fn func(width, height int)) { win.resize = fn }

// Size returns the window size in screen coordinates.
func (win *window) Size() (width, height int) { return win.w.GetSize() }

// ScaleFactor returns the ratio of framebuffer pixels to screen
// coordinates: 2 on Retina displays, 1 where GLFW sizes are pixels.
func (win *window) ScaleFactor() float64 {
	fw, _ := win.w.GetFramebufferSize()
	w, _ := win.w.GetSize()
	if w <= 0 || fw <= 0 {
		return 1
	}
	return float64(fw) / float64(w)
}

// RequestRedraw wakes the event loop. Rendering is driven by the engine,
// so there is nothing else to schedule.
func (win *window) RequestRedraw() { glfw.PostEmptyEvent() }

// loop processes window events until the window is closed or ctx is done.
func (win *window) loop(ctx context.Context) {
	for !win.w.ShouldClose() && ctx.Err() == nil {
		glfw.WaitEvents()
	}
}

func (win *window) destroy() { win.w.Destroy() }
