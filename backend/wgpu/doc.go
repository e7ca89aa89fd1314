// Package wgpu is the GPU render target of the live view, built on the
// gogpu/wgpu Pure Go WebGPU implementation (Vulkan, Metal, DX12, GLES).
//
// # Architecture Overview
//
//	Bootstrap (instance → surface → adapter → device → configure)
//	    │
//	    ▼
//	NewTarget (PipelineDescriptor → naga validation → pipeline, quad, texture, uniform)
//	    │
//	    ▼
//	liveview.Engine ── Configure / UploadFrame / WriteThresholds / Present
//
// Key components:
//
//   - Context: owns the GPU objects of one window and implements
//     gpucontext.DeviceProvider
//   - PipelineDescriptor: one parameterized pipeline builder with two
//     predefined variants, TexturedQuad and ColoredQuad
//   - ReflectShader: WGSL validation and @group/@binding reflection via naga
//   - Target: implements gpucore.Target
//
// # Binding groups
//
// Group indices are fixed for every variant:
//
//	@group(0) @binding(0)  texture_2d<f32>   frame texture (textured only)
//	@group(0) @binding(1)  sampler           linear clamp sampler
//	@group(1) @binding(0)  uniform           Thresholds { low, high }
//
// A variant without a texture binds an empty group 0.
//
// # Backends
//
// The HAL backends must be registered by the program:
//
//	import _ "github.com/gogpu/wgpu/hal/allbackends"
//
// # Presentation
//
// Present never waits for the GPU. A failed surface acquisition is followed
// by one reconfigure-and-retry; if that fails too, ErrSurfaceLost is
// returned and the engine stops playback.
package wgpu
