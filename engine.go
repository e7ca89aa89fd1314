// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package liveview

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/liveview/gpucore"
)

// FrameSource provides the decoded images of the sequence.
type FrameSource interface {
	// Len returns the number of frames N.
	Len() int

	// Idle returns the default image shown when playback is inactive.
	Idle() (*gpucore.Image, error)

	// Frame returns image index, 0 <= index < Len().
	Frame(index int) (*gpucore.Image, error)
}

// Prefetcher is implemented by frame sources that can decode a frame ahead
// of time. The scheduler calls Prefetch outside the engine lock while it
// waits for the next deadline.
type Prefetcher interface {
	Prefetch(index int)
}

// Engine is the shared render state: the GPU target, the surface
// configuration, the player state and the threshold parameters, all
// guarded by a single mutex. Every entry point (scheduler ticks, resize
// events, control commands) acquires the same lock, so GPU submissions
// never overlap and presentation order is lock acquisition order.
//
// Under the lock the engine only reconfigures, uploads already decoded
// pixels, writes the uniform and submits. It never waits for GPU
// completion.
//
// Engine is safe for concurrent use.
type Engine struct {
	mu sync.Mutex

	target   gpucore.Target
	frames   FrameSource
	clock    Clock
	period   time.Duration
	metrics  *Metrics
	defaults gpucore.Thresholds

	config     gpucore.SurfaceConfig
	active     FrameIndex // != NoFrame iff playing
	uploaded   FrameIndex // contents of the frame texture
	failed     FrameIndex // last index whose image could not be fetched
	started    time.Time
	playing    bool
	thresholds gpucore.Thresholds

	state schedState
	run   *schedulerRun
	errs  chan error

	closed bool
}

// State is a snapshot of the shared render state.
type State struct {
	Running    bool
	Playing    bool
	Started    time.Time
	Active     FrameIndex
	Uploaded   FrameIndex
	Thresholds gpucore.Thresholds
	Config     gpucore.SurfaceConfig
}

// NewEngine creates an engine over target and frames. The engine takes
// ownership of target and releases it in Close.
//
// No frame is rendered until the first Render or StartLiveView call; hosts
// call Render once at startup to show the idle image.
func NewEngine(target gpucore.Target, frames FrameSource, opts ...Option) (*Engine, error) {
	if target == nil {
		return nil, ErrNilTarget
	}
	if frames == nil {
		return nil, ErrNilFrameSource
	}
	if frames.Len() < 1 {
		return nil, ErrEmptySequence
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.period <= 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, o.period)
	}
	if o.metrics == nil {
		o.metrics = NewMetrics()
	}

	propagateLogger(target, Logger())

	return &Engine{
		target:     target,
		frames:     frames,
		clock:      o.clock,
		period:     o.period,
		metrics:    o.metrics,
		defaults:   o.thresholds,
		config:     target.Config(),
		active:     NoFrame,
		uploaded:   unknownFrame,
		failed:     unknownFrame,
		thresholds: o.thresholds,
		state:      stateIdle,
		errs:       make(chan error, 1),
	}, nil
}

// Period returns the frame period.
func (e *Engine) Period() time.Duration { return e.period }

// Len returns the sequence length N.
func (e *Engine) Len() int { return e.frames.Len() }

// Metrics returns the collectors the engine reports to.
func (e *Engine) Metrics() *Metrics { return e.metrics }

// Errors delivers the error that stopped the scheduler, if any.
func (e *Engine) Errors() <-chan error { return e.errs }

// State returns a consistent snapshot of the shared state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	return State{
		Running:    e.state == stateRunning,
		Playing:    e.playing,
		Started:    e.started,
		Active:     e.active,
		Uploaded:   e.uploaded,
		Thresholds: e.thresholds,
		Config:     e.config,
	}
}

// Render runs the frame render operation. If newSize is non-nil the
// surface is first reconfigured to it, clamped to at least 1x1.
//
// Render reports whether playback is still active.
func (e *Engine) Render(newSize *gpucore.Size) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.renderLocked(newSize)
}

// Resize reconfigures the surface to width x height and renders a frame.
// Hosts call it from their resize callback.
func (e *Engine) Resize(width, height int) error {
	_, err := e.Render(&gpucore.Size{Width: width, Height: height})
	return err
}

// Close stops playback and releases the GPU target.
// Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil
	}
	r := e.detachLocked()
	e.closed = true
	e.mu.Unlock()

	if r != nil {
		<-r.done
	}

	e.mu.Lock()
	e.target.Release()
	e.mu.Unlock()
	return nil
}

// InvalidateFrame marks the image of index as changed: a previous fetch
// failure is forgotten, and if the texture holds index it is uploaded
// again by the next render. NoFrame names the idle image. Frame sources
// that watch their files call it through Dir.Watch.
func (e *Engine) InvalidateFrame(index FrameIndex) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.failed == index {
		e.failed = unknownFrame
	}
	if e.uploaded == index {
		e.uploaded = unknownFrame
	}
}

// renderLocked is the body of Render. Caller must hold e.mu.
func (e *Engine) renderLocked(newSize *gpucore.Size) (bool, error) {
	if e.closed {
		return false, ErrEngineClosed
	}
	begin := time.Now()

	// Reconfigure before acquiring: a stale configuration fails acquisition.
	if newSize != nil {
		if err := e.resizeLocked(*newSize); err != nil {
			return e.playing, err
		}
	}

	desired := NoFrame
	if e.playing {
		n := e.frames.Len()
		desired = FrameIndexAt(e.started, e.clock.Now(), e.period, n)
		if e.active != NoFrame && isDrop(e.active, desired, n) {
			skipped := frameDistance(e.active, desired, n) - 1
			e.metrics.DroppedFrames.Add(float64(skipped))
			Logger().Warn("liveview: dropped frames",
				"from", e.active.String(), "to", desired.String(), "skipped", skipped)
		}
	}
	e.active = desired
	e.metrics.ActiveFrame.Set(float64(desired))

	if desired != e.failed {
		e.failed = unknownFrame
	}
	if desired != e.uploaded && desired != e.failed {
		if err := e.uploadLocked(desired); err != nil {
			return e.playing, err
		}
	}

	if err := e.target.WriteThresholds(e.thresholds); err != nil {
		return e.playing, fmt.Errorf("liveview: write thresholds: %w", err)
	}

	if err := e.target.Present(); err != nil {
		return e.playing, fmt.Errorf("liveview: present frame %s: %w", desired, err)
	}

	e.metrics.FramesRendered.Inc()
	e.metrics.RenderDuration.Observe(time.Since(begin).Seconds())
	return e.playing, nil
}

// resizeLocked applies a clamped surface size. Caller must hold e.mu.
func (e *Engine) resizeLocked(size gpucore.Size) error {
	cfg := e.config
	cfg.Size = size.Clamped()
	if err := e.target.Configure(cfg); err != nil {
		return fmt.Errorf("liveview: configure surface %s: %w", cfg.Size, err)
	}
	e.config = cfg
	e.metrics.Reconfigurations.Inc()
	Logger().Debug("liveview: surface reconfigured",
		"requested", size.String(), "size", cfg.Size.String())
	return nil
}

// uploadLocked replaces the texture with image index. A missing or
// mismatched image is a data error: it is logged and counted once, the
// previous texture stays displayed, and nil is returned. The index is not
// fetched again until the desired frame changes or InvalidateFrame clears
// it. Only GPU errors are returned. Caller must hold e.mu.
func (e *Engine) uploadLocked(index FrameIndex) error {
	var (
		img *gpucore.Image
		err error
	)
	if index == NoFrame {
		img, err = e.frames.Idle()
	} else {
		img, err = e.frames.Frame(int(index))
	}
	if err == nil {
		if want := e.target.TextureSize(); img.Size() != want {
			err = fmt.Errorf("%w: frame %s is %s, texture is %s",
				ErrDimensionMismatch, index, img.Size(), want)
		}
	}
	if err != nil {
		e.failed = index
		e.metrics.AssetErrors.Inc()
		Logger().Warn("liveview: frame image unavailable, keeping previous frame",
			"frame", index.String(), "shown", e.uploaded.String(), "err", err)
		return nil
	}

	if err := e.target.UploadFrame(img); err != nil {
		return fmt.Errorf("liveview: upload frame %s: %w", index, err)
	}
	e.uploaded = index
	e.metrics.FrameUploads.Inc()
	Logger().Debug("liveview: frame uploaded", "frame", index.String())
	return nil
}
