// Package liveview is a frame-paced GPU render engine for a live image view.
//
// # Overview
//
// An [Engine] owns one render target (surface, device, queue, pipeline,
// geometry, frame texture and threshold uniform) and the player state that
// decides what the texture shows. Three kinds of callers share it:
//
//   - the scheduler started by [Engine.StartLiveView], which renders on a
//     fixed period and swaps the texture through a finite image sequence;
//   - the host window, which calls [Engine.Render] or [Engine.Resize] from
//     its resize callback;
//   - control commands ([Engine.SetMinThreshold], [Engine.SetMaxThreshold],
//     [Engine.StopLiveView]).
//
// All of them serialize on one mutex, so GPU submissions never overlap.
//
// # Quick Start
//
//	import (
//	    "github.com/gogpu/liveview"
//	    "github.com/gogpu/liveview/assets"
//	    gpu "github.com/gogpu/liveview/backend/wgpu"
//	)
//
//	frames, _ := assets.OpenDir("frames", 11)
//	gctx, _ := gpu.Bootstrap(handle, window)
//	target, _ := gpu.NewTarget(gctx, gpu.TexturedQuad(), frames.Size())
//
//	eng, _ := liveview.NewEngine(target, frames)
//	defer eng.Close()
//
//	eng.Render(nil)        // idle image
//	eng.StartLiveView()    // frame 0, 1, 2, ... every 100ms
//
// # Frame pacing
//
// The scheduler sleeps to absolute deadlines t0+kP. The frame shown at
// time T is floor((T-t0)/P) mod N, so a slow frame delays its own
// presentation but never shifts the cadence. When rendering falls behind
// far enough that a frame is skipped, the drop is logged and counted in
// liveview_dropped_frames_total.
//
// # Errors
//
// Missing or mismatched frame images are data errors: they are logged and
// the previous frame stays on screen. Surface loss that survives one
// reconfigure-and-retry stops the scheduler and is delivered on
// [Engine.Errors].
package liveview
