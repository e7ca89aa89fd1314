package liveview

import (
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gogpu/gputypes"

	"github.com/gogpu/liveview/gpucore"
)

const idleMarker = 255

// fakeTarget records every call the engine makes instead of touching a GPU.
type fakeTarget struct {
	mu sync.Mutex

	cfg        gpucore.SurfaceConfig
	texSize    gpucore.Size
	uploads    []int // Pix[0] of each uploaded image
	uniform    []byte
	presented  []gpucore.Thresholds // uniform contents at each Present
	configured []gpucore.Size
	released   bool

	presentErr error

	inUse   atomic.Int32
	overlap atomic.Bool
}

func newFakeTarget(w, h int) *fakeTarget {
	return &fakeTarget{
		cfg: gpucore.SurfaceConfig{
			Size:        gpucore.Size{Width: 800, Height: 600},
			Format:      gputypes.TextureFormatBGRA8Unorm,
			PresentMode: gputypes.PresentModeFifo,
		},
		texSize: gpucore.Size{Width: w, Height: h},
	}
}

// enter flags calls that overlap, which the engine lock must prevent.
func (f *fakeTarget) enter() func() {
	if f.inUse.Add(1) > 1 {
		f.overlap.Store(true)
	}
	runtime.Gosched()
	return func() { f.inUse.Add(-1) }
}

func (f *fakeTarget) Configure(cfg gpucore.SurfaceConfig) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if cfg.Size.Width < 1 || cfg.Size.Height < 1 {
		return fmt.Errorf("zero-area configure %v", cfg.Size)
	}
	f.cfg = cfg
	f.configured = append(f.configured, cfg.Size)
	return nil
}

func (f *fakeTarget) Config() gpucore.SurfaceConfig {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg
}

func (f *fakeTarget) TextureSize() gpucore.Size { return f.texSize }

func (f *fakeTarget) UploadFrame(img *gpucore.Image) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if img.Size() != f.texSize {
		return errors.New("upload size mismatch reached the target")
	}
	f.uploads = append(f.uploads, int(img.Pix[0]))
	return nil
}

func (f *fakeTarget) WriteThresholds(t gpucore.Thresholds) error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uniform = t.Bytes()
	return nil
}

func (f *fakeTarget) Present() error {
	defer f.enter()()
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.presentErr != nil {
		return f.presentErr
	}
	t, _ := gpucore.ThresholdsFromBytes(f.uniform)
	f.presented = append(f.presented, t)
	return nil
}

func (f *fakeTarget) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.released = true
}

func (f *fakeTarget) setPresentErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presentErr = err
}

func (f *fakeTarget) uploadLog() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int(nil), f.uploads...)
}

func (f *fakeTarget) lastUniform() gpucore.Thresholds {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, _ := gpucore.ThresholdsFromBytes(f.uniform)
	return t
}

func (f *fakeTarget) presentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.presented)
}

// fakeFrames is a sequence whose images carry their index in Pix[0].
type fakeFrames struct {
	mu         sync.Mutex
	n          int
	size       gpucore.Size
	missing    map[int]bool
	wrongSize  map[int]bool
	prefetched []int
}

func newFakeFrames(n int) *fakeFrames {
	return &fakeFrames{
		n:         n,
		size:      gpucore.Size{Width: 4, Height: 2},
		missing:   map[int]bool{},
		wrongSize: map[int]bool{},
	}
}

func (s *fakeFrames) Len() int { return s.n }

func (s *fakeFrames) image(marker int, size gpucore.Size) *gpucore.Image {
	img := gpucore.NewImage(size.Width, size.Height)
	img.Pix[0] = byte(marker)
	return img
}

func (s *fakeFrames) Idle() (*gpucore.Image, error) {
	return s.image(idleMarker, s.size), nil
}

func (s *fakeFrames) Frame(index int) (*gpucore.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.missing[index] {
		return nil, fmt.Errorf("frame-%d: missing", index+1)
	}
	size := s.size
	if s.wrongSize[index] {
		size.Width++
	}
	return s.image(index, size), nil
}

func (s *fakeFrames) Prefetch(index int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prefetched = append(s.prefetched, index)
}

func (s *fakeFrames) prefetchLog() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int(nil), s.prefetched...)
}

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu      sync.Mutex
	now     time.Time
	waiters []fakeWaiter
}

type fakeWaiter struct {
	at time.Time
	ch chan time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := make(chan time.Time, 1)
	if d <= 0 {
		ch <- c.now
		return ch
	}
	c.waiters = append(c.waiters, fakeWaiter{at: c.now.Add(d), ch: ch})
	return ch
}

// Advance moves time forward and fires every waiter that became due.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if !w.at.After(c.now) {
			w.ch <- c.now
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
}

// Set moves time without firing waiters.
func (c *fakeClock) Set(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.waiters)
}

// waitFor polls cond until it holds or the test times out.
func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fakeTarget, *fakeFrames, *fakeClock) {
	t.Helper()
	target := newFakeTarget(4, 2)
	frames := newFakeFrames(11)
	clock := newFakeClock()
	opts = append([]Option{WithClock(clock), WithPeriod(100 * time.Millisecond)}, opts...)
	eng, err := NewEngine(target, frames, opts...)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	t.Cleanup(func() { _ = eng.Close() })
	return eng, target, frames, clock
}
