package liveview

import (
	"strconv"
	"time"
)

// FrameIndex identifies an image of the sequence. Valid indices are
// 0..N-1; NoFrame stands for the idle (default) image.
type FrameIndex int

const (
	// NoFrame means no sequence frame is active; the idle image is shown.
	NoFrame FrameIndex = -1

	// unknownFrame marks a texture whose contents were never uploaded.
	unknownFrame FrameIndex = -2
)

// String returns the index, "idle" for NoFrame.
func (i FrameIndex) String() string {
	switch i {
	case NoFrame:
		return "idle"
	case unknownFrame:
		return "none"
	}
	return strconv.Itoa(int(i))
}

// FrameIndexAt returns the frame that should be showing at now for a
// playback that started at start:
//
//	floor((now - start) / period) mod n
//
// Times before start map to frame 0.
func FrameIndexAt(start, now time.Time, period time.Duration, n int) FrameIndex {
	if n <= 0 || period <= 0 {
		return 0
	}
	elapsed := now.Sub(start)
	if elapsed < 0 {
		return 0
	}
	return FrameIndex(int64(elapsed/period) % int64(n))
}

// frameDistance returns how many steps forward to reaches from from in a
// sequence of n frames, wrapping at the boundary.
func frameDistance(from, to FrameIndex, n int) int {
	return ((int(to)-int(from))%n + n) % n
}

// isDrop reports whether moving from prev to desired skipped at least one
// frame. A step of 0 (same frame) or 1 (next frame, including n-1 -> 0)
// is not a drop.
func isDrop(prev, desired FrameIndex, n int) bool {
	return frameDistance(prev, desired, n) > 1
}
