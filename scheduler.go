package liveview

import (
	"context"
	"time"
)

// schedState is the scheduler state machine.
type schedState int

const (
	// stateIdle: no scheduler goroutine owns the playback.
	stateIdle schedState = iota
	// stateRunning: a goroutine is advancing an absolute deadline.
	stateRunning
)

func (s schedState) String() string {
	if s == stateRunning {
		return "running"
	}
	return "idle"
}

// schedulerRun is one Running period of the scheduler.
type schedulerRun struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartLiveView begins playback at the fixed frame period. Frame 0 is
// rendered before StartLiveView returns, under the same lock that starts
// the playback, so the texture never lags the active frame.
//
// If the scheduler is already running the call does nothing: the current
// playback keeps its start time.
func (e *Engine) StartLiveView() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.state == stateRunning {
		e.mu.Unlock()
		Logger().Debug("liveview: live view already running")
		return nil
	}

	now := e.clock.Now()
	e.started = now
	e.playing = true
	if _, err := e.renderLocked(nil); err != nil {
		e.detachLocked()
		e.metrics.ActiveFrame.Set(float64(NoFrame))
		e.mu.Unlock()
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	r := &schedulerRun{cancel: cancel, done: make(chan struct{})}
	e.run = r
	e.state = stateRunning
	e.mu.Unlock()

	Logger().Info("liveview: live view started",
		"period", e.period, "frames", e.frames.Len())

	go e.loop(ctx, r, now)
	return nil
}

// StopLiveView halts playback, restores the default thresholds and shows
// the idle image.
//
// The scheduler is cancelled under the lock, so an iteration that was
// waiting for the lock never renders a playback frame after StopLiveView
// has cleared the state. StopLiveView returns once the scheduler goroutine
// has exited and the idle frame has been submitted. Stopping an idle
// engine only re-renders the idle image.
func (e *Engine) StopLiveView() error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	r := e.detachLocked()
	e.thresholds = e.defaults
	e.mu.Unlock()

	if r != nil {
		<-r.done
		Logger().Info("liveview: live view stopped")
	}

	_, err := e.Render(nil)
	return err
}

// detachLocked clears the playback state, cancels the running scheduler
// and returns it so the caller can wait for it outside the lock.
// Caller must hold e.mu.
func (e *Engine) detachLocked() *schedulerRun {
	e.playing = false
	e.started = time.Time{}
	e.active = NoFrame

	r := e.run
	e.run = nil
	e.state = stateIdle
	if r != nil {
		r.cancel()
	}
	return r
}

// loop drives rendering at absolute deadlines t0+P, t0+2P, ...; the frame
// for t0 was rendered by StartLiveView. Sleeping to a fixed deadline instead
// of for P after each render keeps the long-run rate locked to the period
// even when single frames are late.
func (e *Engine) loop(ctx context.Context, r *schedulerRun, t0 time.Time) {
	defer close(r.done)

	n := e.frames.Len()
	prefetch, _ := e.frames.(Prefetcher)
	deadline := t0

	for {
		deadline = deadline.Add(e.period)
		now := e.clock.Now()
		if late := now.Sub(deadline); late > 0 {
			e.metrics.LateTicks.Inc()
			Logger().Debug("liveview: scheduler behind deadline", "late", late)
		}

		// Decode the next frame while sleeping, off the locked path.
		if prefetch != nil {
			prefetch.Prefetch(int(FrameIndexAt(t0, deadline, e.period, n)))
		}

		select {
		case <-ctx.Done():
			return
		case <-e.clock.After(deadline.Sub(e.clock.Now())):
		}

		playing, err := e.tick(ctx)
		if err != nil {
			e.fail(r, err)
			return
		}
		if !playing {
			return
		}
	}
}

// tick renders one scheduled frame unless the run was cancelled.
func (e *Engine) tick(ctx context.Context) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if ctx.Err() != nil {
		return false, nil
	}
	return e.renderLocked(nil)
}

// fail moves the engine to Idle after a render error and publishes it.
func (e *Engine) fail(r *schedulerRun, err error) {
	e.mu.Lock()
	if e.run == r {
		e.run = nil
		e.state = stateIdle
		e.playing = false
		e.started = time.Time{}
		e.active = NoFrame
	}
	e.mu.Unlock()
	r.cancel()

	Logger().Error("liveview: render failed, scheduler stopped", "err", err)
	select {
	case e.errs <- err:
	default:
	}
}
