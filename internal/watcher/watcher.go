// Package watcher watches the corpus directory with fsnotify and reports debounced
// changes to matching files.
package watcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 400 * time.Millisecond

// Watcher watches one directory and calls onChange once a burst of events on matching
// files has settled. Calls to onChange never overlap.
type Watcher struct {
	dir        string
	extensions []string
	onChange   func(ctx context.Context)
	debounce   time.Duration
	watcher    *fsnotify.Watcher
	mu         sync.Mutex
	timer      *time.Timer
	pending    []string
	fireMu     sync.Mutex // serializes onChange
	done       chan struct{}
	started    bool
	stopOnce   sync.Once
	logger     *zap.Logger // optional; when set, logs debug events
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithLogger sets a logger for debug output.
func WithLogger(l *zap.Logger) WatcherOption {
	return func(w *Watcher) { w.logger = l }
}

// WithDebounce overrides the 400ms quiet period.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a watcher for dir. extensions filter which files count (empty = all);
// hidden files are always ignored.
func NewWatcher(dir string, extensions []string, onChange func(ctx context.Context), opts ...WatcherOption) *Watcher {
	w := &Watcher{
		dir:        filepath.Clean(dir),
		extensions: extensions,
		onChange:   onChange,
		debounce:   defaultDebounce,
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string { return w.dir }

// Start starts the watcher. It runs until ctx is cancelled or Stop is called. The
// directory is created if missing.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return nil
	}
	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(w.dir); err != nil {
		_ = watcher.Close()
		return err
	}
	w.watcher = watcher
	w.started = true
	if w.logger != nil {
		w.logger.Debug("watcher starting", zap.String("dir", w.dir), zap.Strings("extensions", w.extensions))
	}
	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.Stop()
			return
		case <-w.done:
			return
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, ev)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			if err != nil && w.logger != nil {
				w.logger.Debug("watcher error", zap.Error(err))
			}
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, ev fsnotify.Event) {
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
		return
	}
	if !w.relevant(ev.Name) {
		return
	}
	if w.logger != nil {
		w.logger.Debug("watcher event", zap.String("op", ev.Op.String()), zap.String("path", ev.Name))
	}
	w.schedule(ctx, ev.Name)
}

func (w *Watcher) relevant(path string) bool {
	clean := filepath.Clean(path)
	if filepath.Dir(clean) != w.dir {
		return false
	}
	if strings.HasPrefix(filepath.Base(clean), ".") {
		return false
	}
	return matchExtension(clean, w.extensions)
}

func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pending = append(w.pending, path)
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		paths := w.pending
		w.pending = nil
		w.timer = nil
		w.mu.Unlock()
		select {
		case <-w.done:
			return
		default:
		}
		w.fireMu.Lock()
		defer w.fireMu.Unlock()
		if w.logger != nil {
			w.logger.Debug("watcher change settled", zap.Strings("paths", paths))
		}
		if w.onChange != nil {
			w.onChange(ctx)
		}
	})
}

// Stop stops the watcher and cancels any pending callback.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.mu.Lock()
		defer w.mu.Unlock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		if w.watcher != nil {
			_ = w.watcher.Close()
		}
	})
}

func matchExtension(path string, extensions []string) bool {
	ext := filepath.Ext(path)
	if len(extensions) == 0 {
		return true
	}
	for _, e := range extensions {
		eNorm := strings.TrimPrefix(strings.ToLower(e), ".")
		extNorm := strings.TrimPrefix(strings.ToLower(ext), ".")
		if eNorm == extNorm {
			return true
		}
	}
	return false
}
