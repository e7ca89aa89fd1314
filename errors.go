package liveview

import "errors"

// Package errors.
var (
	// ErrEngineClosed is returned by operations on a closed Engine.
	ErrEngineClosed = errors.New("liveview: engine closed")

	// ErrNilTarget is returned when NewEngine is given a nil target.
	ErrNilTarget = errors.New("liveview: nil render target")

	// ErrNilFrameSource is returned when NewEngine is given a nil frame source.
	ErrNilFrameSource = errors.New("liveview: nil frame source")

	// ErrEmptySequence is returned when the frame source holds no frames.
	ErrEmptySequence = errors.New("liveview: frame sequence is empty")

	// ErrInvalidPeriod is returned for a non-positive frame period.
	ErrInvalidPeriod = errors.New("liveview: frame period must be positive")

	// ErrDimensionMismatch is reported when a frame image does not match the
	// texture dimensions fixed at construction.
	ErrDimensionMismatch = errors.New("liveview: frame dimensions do not match texture")
)
