// Package watcher re-runs a callback when source images change.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"imgresponsiver/logging"
)

// DefaultDebounce is the quiet period after the last event before a run.
const DefaultDebounce = 500 * time.Millisecond

// ErrNothingToWatch is returned when none of the directories exist.
var ErrNothingToWatch = errors.New("no existing directory to watch")

// Watcher monitors image directories. Only the directories themselves are
// watched, never the output or HTML directories, so a run's own writes do
// not retrigger it.
type Watcher struct {
	dirs       []string
	extensions map[string]bool
	debounce   time.Duration
	logger     *logging.Logger

	// ready is closed once every directory has been added by the first
	// call to Watch. Later calls leave it closed.
	ready     chan struct{}
	readyOnce sync.Once
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) { w.debounce = d }
}

// WithExtensions limits events to files with these extensions (dot optional,
// case-insensitive). By default every non-hidden file counts.
func WithExtensions(exts []string) Option {
	return func(w *Watcher) {
		w.extensions = make(map[string]bool, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(ext)
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			w.extensions[ext] = true
		}
	}
}

// New creates a Watcher over dirs.
func New(dirs []string, logger *logging.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		dirs:     dirs,
		debounce: DefaultDebounce,
		logger:   logger.Named("watcher"),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Watch blocks until ctx is done, calling onChange once per burst of
// changes. A failing onChange is logged and watching continues. Missing
// directories are skipped with a warning.
func (w *Watcher) Watch(ctx context.Context, onChange func(ctx context.Context) error) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	defer fw.Close()

	watched := 0
	for _, dir := range w.dirs {
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
			w.logger.Warn("Image directory missing, not watching", zap.String("dir", dir))
			continue
		}
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
		watched++
		w.logger.Info("Watching directory", zap.String("dir", dir))
	}
	if watched == 0 {
		return ErrNothingToWatch
	}
	w.readyOnce.Do(func() { close(w.ready) })

	var (
		timer   *time.Timer
		fire    <-chan time.Time
		pending []string
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			pending = append(pending, event.Name)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", zap.Error(err))

		case <-fire:
			fire = nil
			w.logger.Info("Change detected, running",
				zap.Int("events", len(pending)),
				zap.Strings("files", unique(pending)),
			)
			pending = pending[:0]
			if err := onChange(ctx); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				w.logger.Error("Run after change failed", zap.Error(err))
			}
		}
	}
}

// relevant reports whether event should trigger a run.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
		!event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}
	if w.extensions == nil {
		return true
	}
	return w.extensions[strings.ToLower(filepath.Ext(base))]
}

// unique returns names without repeats, in first-seen order.
func unique(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := make([]string, 0, len(names))
	for _, n := range names {
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out
}
