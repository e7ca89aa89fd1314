// Package gpucore provides the backend-neutral GPU abstractions used by the
// liveview render engine.
//
// The engine never touches wgpu handles directly. It drives a [Target], which
// owns the surface, device, queue, pipeline and every buffer the render
// operation reads. This lets the same frame-pacing logic run against the
// real wgpu backend (backend/wgpu) or against an in-memory fake in tests.
//
// # Architecture
//
//	               +-----------------+
//	               | liveview.Engine |
//	               |  (shared state) |
//	               +--------+--------+
//	                        |
//	               +--------v--------+
//	               | gpucore.Target  |
//	               +--------+--------+
//	                        |
//	         +--------------+--------------+
//	         |                             |
//	+--------v--------+          +--------v--------+
//	|  backend/wgpu   |          |   test fakes    |
//	|  (gogpu/wgpu)   |          |  (no GPU)       |
//	+-----------------+          +-----------------+
//
// # Data
//
// [Image] carries tightly packed RGBA8 pixels ready for texture upload.
// [Thresholds] is the two-value parameter block pushed into the uniform
// buffer every frame; [Thresholds.Bytes] produces its exact GPU layout.
package gpucore
