//go:build !windows && !darwin && !((linux && !android && !wayland) || (freebsd && !wayland))

package main

import (
	"errors"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"

	gpu "github.com/gogpu/liveview/backend/wgpu"
)

func nativeHandle(*glfw.Window) (gpu.WindowHandle, error) {
	return gpu.WindowHandle{}, errors.New("liveview: no native window handle on " + runtime.GOOS)
}
