// Command liveview shows a frame-paced image sequence in a native window
// and accepts playback commands over a websocket.
//
// Usage:
//
//	liveview -config liveview.toml
//	liveview -assets ./frames -frames 11 -period 100ms -addr 127.0.0.1:7878
//	liveview -synthetic -headless
//
// Flags override the configuration file. In headless mode frames are
// rendered on the CPU and served on /snapshot.png.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/gogpu/gputypes"
	_ "github.com/gogpu/wgpu/hal/allbackends"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/liveview"
	"github.com/gogpu/liveview/assets"
	"github.com/gogpu/liveview/backend/software"
	gpu "github.com/gogpu/liveview/backend/wgpu"
	"github.com/gogpu/liveview/config"
	"github.com/gogpu/liveview/control"
	"github.com/gogpu/liveview/gpucore"
)

// syntheticSize is the frame size of the generated test pattern.
const syntheticSize = 256

func init() {
	// GLFW and the surface must stay on the main thread.
	runtime.LockOSThread()
}

func main() {
	if err := run(); err != nil {
		slog.Error("liveview: exiting", "err", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", "", "TOML configuration file")
		assetsDir  = flag.String("assets", "", "frame directory (frame-1..frame-N plus default)")
		frames     = flag.Int("frames", 0, "number of frames N")
		period     = flag.Duration("period", 0, "frame period")
		addr       = flag.String("addr", "", "control server address")
		pipeline   = flag.String("pipeline", "", "pipeline variant: textured or colored")
		synthetic  = flag.Bool("synthetic", false, "play a generated test pattern")
		headless   = flag.Bool("headless", false, "render on the CPU without a window")
		logLevel   = flag.String("log-level", "", "debug, info, warn or error")
	)
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "assets":
			cfg.Assets.Dir = *assetsDir
		case "frames":
			cfg.Playback.Frames = *frames
		case "period":
			cfg.Playback.Period = config.Duration(*period)
		case "addr":
			cfg.Control.Addr = *addr
		case "pipeline":
			cfg.Playback.Pipeline = *pipeline
		case "synthetic":
			cfg.Assets.Synthetic = *synthetic
		case "headless":
			cfg.Window.Headless = *headless
		case "log-level":
			cfg.Log.Level = *logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return err
	}

	handler, err := cfg.Log.NewHandler(os.Stderr)
	if err != nil {
		return err
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	liveview.SetLogger(logger)
	gpu.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	frameSrc, dir, err := openFrames(cfg)
	if err != nil {
		return err
	}
	h := &host{cfg: cfg, logger: logger, frames: frameSrc, dir: dir}
	if cfg.Window.Headless {
		return h.runHeadless(ctx)
	}
	return h.runWindow(ctx)
}

// frameSource is a liveview.FrameSource with a fixed image size.
type frameSource interface {
	liveview.FrameSource
	Size() gpucore.Size
}

func openFrames(cfg config.Config) (frameSource, *assets.Dir, error) {
	if cfg.Assets.Synthetic {
		return assets.Synthetic(cfg.Playback.Frames, syntheticSize, syntheticSize), nil, nil
	}
	var opts []assets.DirOption
	if cfg.Assets.Cache > 0 {
		opts = append(opts, assets.WithCacheSize(cfg.Assets.Cache))
	}
	dir, err := assets.OpenDir(cfg.Assets.Dir, cfg.Playback.Frames, opts...)
	if err != nil {
		return nil, nil, err
	}
	return dir, dir, nil
}

func pipelineDescriptor(name string) gpu.PipelineDescriptor {
	if name == config.PipelineColored {
		return gpu.ColoredQuad()
	}
	return gpu.TexturedQuad()
}

func presentMode(name string) gputypes.PresentMode {
	switch strings.ToLower(name) {
	case "mailbox":
		return gputypes.PresentModeMailbox
	case "immediate":
		return gputypes.PresentModeImmediate
	default:
		return gputypes.PresentModeFifo
	}
}

// host owns the engine lifecycle of one run.
type host struct {
	cfg    config.Config
	logger *slog.Logger
	frames frameSource
	dir    *assets.Dir
}

func (h *host) newEngine(target gpucore.Target) (*liveview.Engine, error) {
	eng, err := liveview.NewEngine(target, h.frames,
		liveview.WithPeriod(h.cfg.Playback.Period.Std()),
		liveview.WithThresholds(gpucore.Thresholds{
			Low:  h.cfg.Playback.MinThreshold,
			High: h.cfg.Playback.MaxThreshold,
		}),
	)
	if err != nil {
		target.Release()
		return nil, err
	}
	// The idle image is visible before the first command.
	if _, err := eng.Render(nil); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

func (h *host) runWindow(ctx context.Context) error {
	if err := glfw.Init(); err != nil {
		return fmt.Errorf("glfw: %w", err)
	}
	defer glfw.Terminate()

	win, err := newWindow(h.cfg.Window)
	if err != nil {
		return err
	}
	defer win.destroy()

	handle, err := nativeHandle(win.w)
	if err != nil {
		return err
	}

	dc, err := gpu.Bootstrap(handle, win, gpu.WithPresentMode(presentMode(h.cfg.Playback.PresentMode)))
	if err != nil {
		return err
	}
	target, err := gpu.NewTarget(dc, pipelineDescriptor(h.cfg.Playback.Pipeline), h.frames.Size())
	if err != nil {
		dc.Release()
		return err
	}
	eng, err := h.newEngine(target)
	if err != nil {
		return err
	}
	defer eng.Close()

	h.logger.Info("liveview: ready",
		"gpu", dc.Info().String(),
		"frames", eng.Len(),
		"period", eng.Period(),
		"pipeline", h.cfg.Playback.Pipeline)

	win.onResize(func(w, hgt int) {
		if err := eng.Resize(w, hgt); err != nil && !errors.Is(err, liveview.ErrEngineClosed) {
			h.logger.Error("liveview: resize render failed", "err", err)
		}
	})

	return h.serve(ctx, eng, win.loop, glfw.PostEmptyEvent,
		control.WithDevice(control.DeviceOf(dc)))
}

func (h *host) runHeadless(ctx context.Context) error {
	size := gpucore.Size{Width: h.cfg.Window.Width, Height: h.cfg.Window.Height}
	target, err := software.NewTarget(size, h.frames.Size())
	if err != nil {
		return err
	}
	eng, err := h.newEngine(target)
	if err != nil {
		return err
	}
	defer eng.Close()

	h.logger.Info("liveview: ready (headless)",
		"size", size.String(),
		"frames", eng.Len(),
		"period", eng.Period())

	wait := func(ctx context.Context) { <-ctx.Done() }
	return h.serve(ctx, eng, wait, func() {}, control.WithSnapshotter(target))
}

// serve runs the control server, the asset watcher and the engine error
// watcher next to loop, which blocks on the calling thread until its
// context is done. wake interrupts loop.
func (h *host) serve(ctx context.Context, eng *liveview.Engine, loop func(context.Context), wake func(), opts ...control.ServerOption) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	if h.cfg.Control.Enabled {
		opts = append([]control.ServerOption{
			control.WithGatherer(eng.Metrics().Registry()),
			control.WithLogger(h.logger),
		}, opts...)
		srv := control.NewServer(eng, opts...)
		g.Go(func() error { return srv.ListenAndServe(gctx, h.cfg.Control.Addr) })
	}
	if h.dir != nil && h.cfg.Assets.Watch {
		g.Go(func() error {
			return h.dir.Watch(gctx, func(i int) { eng.InvalidateFrame(liveview.FrameIndex(i)) })
		})
	}
	g.Go(func() error {
		select {
		case err := <-eng.Errors():
			return err
		case <-gctx.Done():
			return nil
		}
	})
	g.Go(func() error {
		<-gctx.Done()
		wake()
		return nil
	})

	loop(gctx)
	cancel()

	if err := eng.Close(); err != nil {
		h.logger.Warn("liveview: close", "err", err)
	}
	err := g.Wait()
	h.logger.Info("liveview: stopped")
	return err
}
