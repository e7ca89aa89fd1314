package liveview

import "github.com/gogpu/liveview/gpucore"

// SetMinThreshold sets the low end of the threshold window. The value is
// pushed into the uniform buffer by every subsequent render; no range
// validation is performed.
func (e *Engine) SetMinThreshold(v uint32) {
	e.mu.Lock()
	e.thresholds.Low = v
	e.mu.Unlock()

	Logger().Debug("liveview: min threshold set", "value", v)
}

// SetMaxThreshold sets the high end of the threshold window.
func (e *Engine) SetMaxThreshold(v uint32) {
	e.mu.Lock()
	e.thresholds.High = v
	e.mu.Unlock()

	Logger().Debug("liveview: max threshold set", "value", v)
}

// Thresholds returns the current threshold window.
func (e *Engine) Thresholds() gpucore.Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.thresholds
}

// Playing reports whether playback is active.
func (e *Engine) Playing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.playing
}
