// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package wgpu

import (
	"fmt"
	"math"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu"

	"github.com/gogpu/liveview/gpucore"
)

// DefaultMaxFrameLatency is the requested number of queued frames.
const DefaultMaxFrameLatency = 2

// WindowHandle holds the native handles a surface is created from.
// On X11 Display is the Display* and Window the XID; on Windows Window is
// the HWND; on macOS Window is the content NSView and Display is unused.
type WindowHandle struct {
	Display uintptr
	Window  uintptr
}

// BootstrapOption configures Bootstrap.
type BootstrapOption func(*bootstrapOptions)

type bootstrapOptions struct {
	backends        wgpu.Backends
	power           gputypes.PowerPreference
	fallback        bool
	presentMode     gputypes.PresentMode
	maxFrameLatency int
}

func defaultBootstrapOptions() bootstrapOptions {
	return bootstrapOptions{
		backends:        wgpu.BackendsPrimary,
		power:           gputypes.PowerPreferenceHighPerformance,
		presentMode:     gputypes.PresentModeFifo,
		maxFrameLatency: DefaultMaxFrameLatency,
	}
}

// WithBackends restricts the graphics APIs the instance may use.
func WithBackends(b wgpu.Backends) BootstrapOption {
	return func(o *bootstrapOptions) { o.backends = b }
}

// WithPowerPreference sets the adapter power preference.
func WithPowerPreference(p gputypes.PowerPreference) BootstrapOption {
	return func(o *bootstrapOptions) { o.power = p }
}

// WithFallbackAdapter forces a software adapter.
func WithFallbackAdapter(force bool) BootstrapOption {
	return func(o *bootstrapOptions) { o.fallback = force }
}

// WithPresentMode overrides the FIFO present mode. The mode is used only if
// the surface supports it.
func WithPresentMode(m gputypes.PresentMode) BootstrapOption {
	return func(o *bootstrapOptions) { o.presentMode = m }
}

// WithMaxFrameLatency sets the requested maximum frame latency.
func WithMaxFrameLatency(n int) BootstrapOption {
	return func(o *bootstrapOptions) {
		if n > 0 {
			o.maxFrameLatency = n
		}
	}
}

// Context owns the instance, surface, adapter, device and queue of one
// window. It implements gpucontext.DeviceProvider.
type Context struct {
	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	info   GPUInfo
	config gpucore.SurfaceConfig
}

var _ gpucontext.DeviceProvider = (*Context)(nil)

// PhysicalSize returns the window size in physical pixels, clamped to at
// least 1x1.
func PhysicalSize(w gpucontext.WindowProvider) gpucore.Size {
	width, height := w.Size()
	scale := w.ScaleFactor()
	if scale <= 0 {
		scale = 1
	}
	return gpucore.Size{
		Width:  int(math.Round(float64(width) * scale)),
		Height: int(math.Round(float64(height) * scale)),
	}.Clamped()
}

// Bootstrap brings up the GPU for a window:
//
//  1. create an instance and a surface from the native handles;
//  2. request an adapter compatible with the surface;
//  3. request a device with downlevel limits raised to the adapter's
//     texture resolution;
//  4. choose the first reported surface format and alpha mode, and FIFO;
//  5. configure the surface at the window's physical size.
func Bootstrap(handle WindowHandle, window gpucontext.WindowProvider, opts ...BootstrapOption) (*Context, error) {
	o := defaultBootstrapOptions()
	for _, opt := range opts {
		opt(&o)
	}

	c := &Context{}
	ok := false
	defer func() {
		if !ok {
			c.Release()
		}
	}()

	var err error
	c.instance, err = wgpu.CreateInstance(&wgpu.InstanceDescriptor{Backends: o.backends})
	if err != nil {
		return nil, fmt.Errorf("wgpu: create instance: %w", err)
	}

	c.surface, err = c.instance.CreateSurface(handle.Display, handle.Window)
	if err != nil {
		return nil, fmt.Errorf("wgpu: create surface: %w", err)
	}

	c.adapter, err = c.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference:      o.power,
		ForceFallbackAdapter: o.fallback,
		CompatibleSurface:    c.surface,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoAdapter, err)
	}
	if c.adapter == nil {
		return nil, ErrNoAdapter
	}
	c.info = newGPUInfo(c.adapter.Info())

	limits := deviceLimits(c.adapter.Limits())
	c.device, err = c.adapter.RequestDevice(&wgpu.DeviceDescriptor{
		Label:          "liveview_device",
		RequiredLimits: limits,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDeviceCreation, err)
	}
	c.queue = c.device.Queue()
	logGPUInfo(c.info, limits)

	c.config, err = chooseSurfaceConfig(c.adapter.GetSurfaceCapabilities(c.surface), o)
	if err != nil {
		return nil, err
	}
	c.config.Size = PhysicalSize(window)
	if err := c.configure(c.config); err != nil {
		return nil, err
	}

	slogger().Info("wgpu: surface configured",
		"size", c.config.Size.String(),
		"format", c.config.Format.String(),
		"presentMode", c.config.PresentMode.String())

	ok = true
	return c, nil
}

// chooseSurfaceConfig picks the surface format, present mode and alpha
// mode from the reported capabilities.
func chooseSurfaceConfig(caps *wgpu.SurfaceCapabilities, o bootstrapOptions) (gpucore.SurfaceConfig, error) {
	if caps == nil || len(caps.Formats) == 0 {
		return gpucore.SurfaceConfig{}, ErrNoSurfaceFormat
	}

	cfg := gpucore.SurfaceConfig{
		Format:          caps.Formats[0],
		PresentMode:     gputypes.PresentModeFifo,
		AlphaMode:       gputypes.CompositeAlphaModeAuto,
		MaxFrameLatency: o.maxFrameLatency,
	}
	for _, m := range caps.PresentModes {
		if m == o.presentMode {
			cfg.PresentMode = m
			break
		}
	}
	if len(caps.AlphaModes) > 0 {
		cfg.AlphaMode = caps.AlphaModes[0]
	}
	return cfg, nil
}

// configure applies cfg to the surface.
func (c *Context) configure(cfg gpucore.SurfaceConfig) error {
	if c.surface == nil || c.device == nil {
		return ErrReleased
	}
	err := c.surface.Configure(c.device, &wgpu.SurfaceConfiguration{
		Width:       uint32(cfg.Size.Width),
		Height:      uint32(cfg.Size.Height),
		Format:      cfg.Format,
		Usage:       gputypes.TextureUsageRenderAttachment,
		PresentMode: cfg.PresentMode,
		AlphaMode:   cfg.AlphaMode,
	})
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrSurfaceConfigure, cfg.Size, err)
	}
	c.config = cfg
	return nil
}

// Config returns the current surface configuration.
func (c *Context) Config() gpucore.SurfaceConfig { return c.config }

// Info returns the selected GPU.
func (c *Context) Info() GPUInfo { return c.info }

// Device returns the *wgpu.Device.
func (c *Context) Device() gpucontext.Device { return c.device }

// Queue returns the *wgpu.Queue.
func (c *Context) Queue() gpucontext.Queue { return c.queue }

// Adapter returns the *wgpu.Adapter.
func (c *Context) Adapter() gpucontext.Adapter { return c.adapter }

// SurfaceFormat returns the negotiated surface format.
func (c *Context) SurfaceFormat() gputypes.TextureFormat { return c.config.Format }

// AdapterInfo returns the adapter name and type.
func (c *Context) AdapterInfo() gpucontext.AdapterInfo {
	return gpucontext.AdapterInfo{Name: c.info.Name, Type: c.info.AdapterType()}
}

// Release frees the device, adapter, surface and instance.
// Release is idempotent.
func (c *Context) Release() {
	if c.device != nil {
		c.device.Release()
		c.device = nil
		c.queue = nil
	}
	if c.adapter != nil {
		c.adapter.Release()
		c.adapter = nil
	}
	if c.surface != nil {
		c.surface.Release()
		c.surface = nil
	}
	if c.instance != nil {
		c.instance.Release()
		c.instance = nil
	}
}
