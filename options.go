package liveview

import (
	"time"

	"github.com/gogpu/liveview/gpucore"
)

// DefaultPeriod is the default frame period.
const DefaultPeriod = 100 * time.Millisecond

// Option configures an Engine during creation.
//
// Example:
//
//	eng, err := liveview.NewEngine(target, frames,
//	    liveview.WithPeriod(40*time.Millisecond),
//	    liveview.WithMetrics(liveview.NewMetrics()),
//	)
type Option func(*options)

// options holds optional configuration for Engine creation.
type options struct {
	period     time.Duration
	clock      Clock
	metrics    *Metrics
	thresholds gpucore.Thresholds
}

// defaultOptions returns the default engine options.
func defaultOptions() options {
	return options{
		period:     DefaultPeriod,
		clock:      SystemClock(),
		metrics:    nil, // Will be created if nil
		thresholds: gpucore.DefaultThresholds(),
	}
}

// WithPeriod sets the fixed frame period.
func WithPeriod(d time.Duration) Option {
	return func(o *options) {
		o.period = d
	}
}

// WithClock replaces the wall clock. Tests use it to drive the scheduler
// with simulated time.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithMetrics sets the collector set the engine reports to.
// Without it the engine registers its own collectors on a private registry.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithThresholds sets the initial threshold window, which is also the
// window restored by StopLiveView. The default is (0, 100).
func WithThresholds(t gpucore.Thresholds) Option {
	return func(o *options) {
		o.thresholds = t
	}
}
