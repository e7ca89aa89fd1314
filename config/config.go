// Package config loads the liveview command configuration from TOML.
//
// Every field has a default; a file only needs the values it changes:
//
//	[playback]
//	period = "40ms"
//	frames = 24
//	pipeline = "textured"
//
//	[assets]
//	dir = "/var/lib/liveview/frames"
//
//	[control]
//	addr = "0.0.0.0:7878"
//
//	[log]
//	level = "debug"
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Defaults.
const (
	DefaultTitle        = "liveview"
	DefaultWidth        = 800
	DefaultHeight       = 600
	DefaultPeriod       = 100 * time.Millisecond
	DefaultFrames       = 11
	DefaultMinThreshold = 0
	DefaultMaxThreshold = 100
	DefaultPipeline     = PipelineTextured
	DefaultPresentMode  = "fifo"
	DefaultAssetsDir    = "./frames"
	DefaultControlAddr  = "127.0.0.1:7878"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
)

// Pipeline variants.
const (
	PipelineTextured = "textured"
	PipelineColored  = "colored"
)

// ErrInvalid is returned by Validate and Load for out-of-range values.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the complete command configuration.
type Config struct {
	Window   Window   `toml:"window"`
	Playback Playback `toml:"playback"`
	Assets   Assets   `toml:"assets"`
	Control  Control  `toml:"control"`
	Log      Log      `toml:"log"`
}

// Window configures the host window.
type Window struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`

	// Headless renders on the CPU into an offscreen surface of the window
	// size instead of opening a window.
	Headless bool `toml:"headless"`
}

// Playback configures the engine.
type Playback struct {
	Period       Duration `toml:"period"`
	Frames       int      `toml:"frames"`
	MinThreshold uint32   `toml:"min_threshold"`
	MaxThreshold uint32   `toml:"max_threshold"`

	// Pipeline is "textured" or "colored".
	Pipeline string `toml:"pipeline"`

	// PresentMode is "fifo", "mailbox" or "immediate". Unsupported modes
	// fall back to fifo.
	PresentMode string `toml:"present_mode"`
}

// Assets configures the frame source.
type Assets struct {
	Dir string `toml:"dir"`

	// Cache is the decoded-frame cache size; 0 holds the whole sequence.
	Cache int `toml:"cache"`

	// Watch invalidates cached frames when their files change.
	Watch bool `toml:"watch"`

	// Synthetic replaces the directory with generated frames.
	Synthetic bool `toml:"synthetic"`
}

// Control configures the command server.
type Control struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// Log configures the slog handler.
type Log struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`

	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Duration is a time.Duration written as a Go duration string in TOML.
type Duration time.Duration

// UnmarshalText parses a duration such as "100ms".
func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText formats the duration.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Std returns the time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Default returns the default configuration.
func Default() Config {
	return Config{
		Window: Window{
			Title:  DefaultTitle,
			Width:  DefaultWidth,
			Height: DefaultHeight,
		},
		Playback: Playback{
			Period:       Duration(DefaultPeriod),
			Frames:       DefaultFrames,
			MinThreshold: DefaultMinThreshold,
			MaxThreshold: DefaultMaxThreshold,
			Pipeline:     DefaultPipeline,
			PresentMode:  DefaultPresentMode,
		},
		Assets: Assets{
			Dir:   DefaultAssetsDir,
			Watch: true,
		},
		Control: Control{
			Enabled: true,
			Addr:    DefaultControlAddr,
		},
		Log: Log{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// Load reads the file at path over the defaults.
func Load(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	defer f.Close()

	cfg, err := Decode(f)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Decode reads TOML from r over the defaults. Unknown keys are errors.
func Decode(r io.Reader) (Config, error) {
	cfg := Default()
	dec := toml.NewDecoder(r).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("config: unknown keys:\n%s", strict.String())
		}
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			row, col := derr.Position()
			return Config{}, fmt.Errorf("config: line %d column %d: %w", row, col, err)
		}
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Encode writes cfg as TOML.
func (c Config) Encode(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}

// Validate reports the first out-of-range value.
func (c Config) Validate() error {
	switch {
	case c.Window.Width < 1 || c.Window.Height < 1:
		return fmt.Errorf("%w: window size %dx%d", ErrInvalid, c.Window.Width, c.Window.Height)
	case c.Playback.Period <= 0:
		return fmt.Errorf("%w: playback.period %s must be positive", ErrInvalid, c.Playback.Period.Std())
	case c.Playback.Frames < 1:
		return fmt.Errorf("%w: playback.frames %d must be at least 1", ErrInvalid, c.Playback.Frames)
	case c.Playback.Pipeline != PipelineTextured && c.Playback.Pipeline != PipelineColored:
		return fmt.Errorf("%w: playback.pipeline %q", ErrInvalid, c.Playback.Pipeline)
	case c.Assets.Cache < 0:
		return fmt.Errorf("%w: assets.cache %d", ErrInvalid, c.Assets.Cache)
	case !c.Assets.Synthetic && c.Assets.Dir == "":
		return fmt.Errorf("%w: assets.dir is empty", ErrInvalid)
	case c.Control.Enabled && c.Control.Addr == "":
		return fmt.Errorf("%w: control.addr is empty", ErrInvalid)
	}
	switch strings.ToLower(c.Playback.PresentMode) {
	case "fifo", "mailbox", "immediate":
	default:
		return fmt.Errorf("%w: playback.present_mode %q", ErrInvalid, c.Playback.PresentMode)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// SlogLevel parses Level.
func (l Log) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

// NewHandler returns the slog handler Log describes, writing to w.
func (l Log) NewHandler(w io.Writer) (slog.Handler, error) {
	level, err := l.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.NewJSONHandler(w, opts), nil
	}
	return slog.NewTextHandler(w, opts), nil
}
