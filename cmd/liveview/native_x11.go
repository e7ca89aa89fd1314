//go:build (linux && !android && !wayland) || (freebsd && !wayland)

package main

import (
	"errors"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	gpu "github.com/gogpu/liveview/backend/wgpu"
)

// nativeHandle returns the X11 Display* and Window XID.
func nativeHandle(w *glfw.Window) (gpu.WindowHandle, error) {
	display := uintptr(unsafe.Pointer(glfw.GetX11Display()))
	if display == 0 {
		return gpu.WindowHandle{}, errors.New("glfw: no X11 display")
	}
	return gpu.WindowHandle{
		Display: display,
		Window:  uintptr(w.GetX11Window()),
	}, nil
}
