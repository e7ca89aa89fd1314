//go:build windows

package main

import (
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	gpu "github.com/gogpu/liveview/backend/wgpu"
)

// nativeHandle returns the HWND of the window.
func nativeHandle(w *glfw.Window) (gpu.WindowHandle, error) {
	return gpu.WindowHandle{Window: uintptr(unsafe.Pointer(w.GetWin32Window()))}, nil
}
