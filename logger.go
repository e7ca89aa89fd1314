package liveview

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/gogpu/liveview/assets"
)

// nopHandler is a slog.Handler that silently discards all log records.
// The Enabled method returns false so the caller skips message formatting
// entirely, making disabled logging effectively zero-cost.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// newNopLogger creates a logger that silently discards all output.
func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// loggerPtr stores the active logger. Accessed atomically so that
// SetLogger can be called concurrently with logging from any goroutine.
var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	l := newNopLogger()
	loggerPtr.Store(l)
}

// SetLogger configures the logger for liveview and its sub-packages.
// By default, liveview produces no log output. Call SetLogger to enable logging.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by liveview:
//   - [slog.LevelDebug]: frame uploads, surface reconfiguration, late ticks
//   - [slog.LevelInfo]: lifecycle events (adapter selected, live view started/stopped)
//   - [slog.LevelWarn]: dropped frames, missing or mismatched frame images
//   - [slog.LevelError]: render failures that stop the scheduler
//
// Targets created before the call keep the logger they were given by
// [NewEngine]; call SetLogger before constructing engines.
//
// Example:
//
//	liveview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
	assets.SetLogger(l)
}

// Logger returns the current logger used by liveview.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return loggerPtr.Load()
}

// loggerSetter is implemented by targets that accept a logger.
type loggerSetter interface {
	SetLogger(*slog.Logger)
}

// propagateLogger passes the logger to a target if it implements
// the loggerSetter interface.
func propagateLogger(target any, l *slog.Logger) {
	if ls, ok := target.(loggerSetter); ok {
		ls.SetLogger(l)
	}
}
