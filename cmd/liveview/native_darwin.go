//go:build darwin

package main

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework Cocoa
#import <Cocoa/Cocoa.h>

static void *content_view(void *window) {
	return (void *)[(NSWindow *)window contentView];
}
*/
import "C"

import (
	"errors"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	gpu "github.com/gogpu/liveview/backend/wgpu"
)

// nativeHandle returns the content NSView of the window.
func nativeHandle(w *glfw.Window) (gpu.WindowHandle, error) {
	view := C.content_view(unsafe.Pointer(w.GetCocoaWindow()))
	if view == nil {
		return gpu.WindowHandle{}, errors.New("glfw: window has no content view")
	}
	return gpu.WindowHandle{Window: uintptr(view)}, nil
}
