package liveview

import "time"

// Clock is the time source of the engine and its scheduler.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After waits for d to elapse and then sends the current time on the
	// returned channel. A non-positive d fires immediately.
	After(d time.Duration) <-chan time.Time
}

// SystemClock returns a Clock backed by package time.
func SystemClock() Clock { return systemClock{} }

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }
