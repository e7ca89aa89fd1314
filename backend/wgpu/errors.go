package wgpu

import "errors"

// Package errors for the wgpu backend.
var (
	// ErrNoAdapter is returned when no adapter can render to the surface.
	ErrNoAdapter = errors.New("wgpu: no compatible GPU adapter")

	// ErrDeviceCreation is returned when the logical device cannot be created.
	ErrDeviceCreation = errors.New("wgpu: device creation failed")

	// ErrSurfaceConfigure is returned when the surface rejects a configuration.
	ErrSurfaceConfigure = errors.New("wgpu: surface configuration failed")

	// ErrNoSurfaceFormat is returned when the surface reports no formats.
	ErrNoSurfaceFormat = errors.New("wgpu: surface reports no texture formats")

	// ErrSurfaceLost is returned when a surface texture cannot be acquired
	// even after reconfiguring.
	ErrSurfaceLost = errors.New("wgpu: surface texture unavailable")

	// ErrBindingLayout is returned when a shader declares its resources in
	// other binding groups than the pipeline expects.
	ErrBindingLayout = errors.New("wgpu: shader binding layout mismatch")

	// ErrShaderInvalid is returned when WGSL validation fails.
	ErrShaderInvalid = errors.New("wgpu: invalid shader")

	// ErrReleased is returned by operations on a released target or context.
	ErrReleased = errors.New("wgpu: already released")

	// ErrInvalidDimensions is returned for a non-positive texture size.
	ErrInvalidDimensions = errors.New("wgpu: invalid dimensions")
)
