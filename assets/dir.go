package assets

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/liveview/gpucore"
	"github.com/gogpu/liveview/internal/framecache"
)

// File name stems inside an asset directory.
const (
	DefaultStem = "default"
	FramePrefix = "frame-"
)

// idleKey is the cache key of the default image.
const idleKey = -1

// Dir is a frame sequence stored on disk as frame-1..frame-N plus a
// default image. Decoded images are kept in an LRU cache so repeated
// playback cycles decode each file once.
//
// Dir is safe for concurrent use.
type Dir struct {
	root  string
	count int
	size  gpucore.Size
	cache *framecache.Cache[int, *gpucore.Image]
}

// DirOption configures a Dir.
type DirOption func(*dirOptions)

type dirOptions struct {
	cacheSize int
}

func defaultDirOptions(count int) dirOptions {
	return dirOptions{cacheSize: count + 1}
}

// WithCacheSize sets the decoded-frame cache soft limit.
// The default holds the whole sequence plus the default image.
func WithCacheSize(n int) DirOption {
	return func(o *dirOptions) {
		o.cacheSize = n
	}
}

// OpenDir opens the asset directory root holding count frames.
// The default image is decoded eagerly: its dimensions fix the texture size.
// Missing frame files are reported as warnings, not errors; they surface
// as data errors when their index comes up.
func OpenDir(root string, count int, opts ...DirOption) (*Dir, error) {
	if count < 1 {
		return nil, fmt.Errorf("%w: count %d", ErrFrameIndex, count)
	}
	o := defaultDirOptions(count)
	for _, opt := range opts {
		opt(&o)
	}

	d := &Dir{
		root:  root,
		count: count,
		cache: framecache.New[int, *gpucore.Image](o.cacheSize),
	}

	idle, err := d.Idle()
	if err != nil {
		return nil, err
	}
	d.size = idle.Size()

	for i := range count {
		if _, err := d.path(i); err != nil {
			slogger().Warn("assets: frame file not found",
				"dir", root, "frame", i+1)
		}
	}

	slogger().Info("assets: opened frame directory",
		"dir", root, "frames", count, "size", d.size.String())
	return d, nil
}

// Len returns the number of frames in the sequence.
func (d *Dir) Len() int { return d.count }

// Size returns the dimensions of the default image.
func (d *Dir) Size() gpucore.Size { return d.size }

// Root returns the directory path.
func (d *Dir) Root() string { return d.root }

// Idle returns the decoded default image.
func (d *Dir) Idle() (*gpucore.Image, error) {
	return d.cache.GetOrLoad(idleKey, func() (*gpucore.Image, error) {
		p, err := d.find(DefaultStem)
		if err != nil {
			return nil, err
		}
		return Load(p)
	})
}

// Frame returns the decoded image for the zero-based index, read from
// frame-(index+1).
func (d *Dir) Frame(index int) (*gpucore.Image, error) {
	if index < 0 || index >= d.count {
		return nil, fmt.Errorf("%w: %d of %d", ErrFrameIndex, index, d.count)
	}
	return d.cache.GetOrLoad(index, func() (*gpucore.Image, error) {
		p, err := d.path(index)
		if err != nil {
			return nil, err
		}
		return Load(p)
	})
}

// Prefetch decodes frame index into the cache if it is not there yet.
// Errors are left for Frame to report.
func (d *Dir) Prefetch(index int) {
	if index < 0 || index >= d.count {
		return
	}
	_, _ = d.Frame(index)
}

// Invalidate drops the cached decode for index; idle uses -1.
func (d *Dir) Invalidate(index int) {
	d.cache.Delete(index)
}

// CacheStats returns statistics of the decoded-frame cache.
func (d *Dir) CacheStats() framecache.Stats {
	return d.cache.Stats()
}

func (d *Dir) path(index int) (string, error) {
	return d.find(FramePrefix + strconv.Itoa(index+1))
}

// find returns the first existing file named stem with a known extension.
func (d *Dir) find(stem string) (string, error) {
	for _, ext := range Extensions {
		p := filepath.Join(d.root, stem+ext)
		if _, err := os.Stat(p); err == nil {
			return p, nil
		} else if !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("assets: stat %s: %w", p, err)
		}
	}
	return "", fmt.Errorf("%w: %s in %s", ErrMissingFrame, stem, d.root)
}

// keyForFile maps a file name to its cache key.
func (d *Dir) keyForFile(name string) (int, bool) {
	base := filepath.Base(name)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if stem == DefaultStem {
		return idleKey, true
	}
	num, ok := strings.CutPrefix(stem, FramePrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(num)
	if err != nil || n < 1 || n > d.count {
		return 0, false
	}
	return n - 1, true
}

// Watch invalidates cached decodes whenever a frame file is created,
// written, removed or renamed, then calls onChange, if non-nil, with the
// frame index (-1 for the default image). It blocks until ctx is done.
func (d *Dir) Watch(ctx context.Context, onChange func(index int)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("assets: create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(d.root); err != nil {
		return fmt.Errorf("assets: watch %s: %w", d.root, err)
	}

	const changed = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&changed == 0 {
				continue
			}
			if key, ok := d.keyForFile(event.Name); ok {
				d.Invalidate(key)
				slogger().Debug("assets: invalidated frame",
					"file", event.Name, "op", event.Op.String())
				if onChange != nil {
					onChange(key)
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slogger().Warn("assets: watcher error", "err", err)
		}
	}
}
