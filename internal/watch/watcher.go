// Package watch reports file changes after a quiet period.
package watch

import (
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before pending changes are reported.
const DefaultDebounce = 300 * time.Millisecond

// Callback is called with the changed paths, sorted, after the debounce delay.
type Callback func(changed []string)

// Filter selects which event paths are reported.
type Filter func(path string) bool

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets the quiet period before a callback.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithFilter restricts reported events to paths accepted by f.
func WithFilter(f Filter) Option {
	return func(w *Watcher) {
		w.filter = f
	}
}

// WithLogger sets the logger.
func WithLogger(l zerolog.Logger) Option {
	return func(w *Watcher) {
		w.logger = l
	}
}

// Watcher coalesces fsnotify events and invokes a callback once activity settles.
type Watcher struct {
	fsw      *fsnotify.Watcher
	callback Callback
	filter   Filter
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopCh  chan struct{}
	stopped bool
}

// New watches paths (files or directories). Paths that cannot be watched are
// logged and skipped.
func New(paths []string, callback Callback, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsw:      fsw,
		callback: callback,
		filter:   func(string) bool { return true },
		debounce: DefaultDebounce,
		logger:   zerolog.Nop(),
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, p := range paths {
		if err := fsw.Add(p); err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("watch: failed to watch path")
		} else {
			w.logger.Debug().Str("path", p).Msg("watch: watching path")
		}
	}

	go w.loop()
	return w, nil
}

// Files watches individual files. Their parent directories are watched so
// that editors which save by renaming a temporary file are still seen.
func Files(files []string, callback Callback, opts ...Option) (*Watcher, error) {
	targets := make(map[string]struct{}, len(files))
	dirs := make(map[string]struct{})
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, err
		}
		targets[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}

	var paths []string
	for d := range dirs {
		paths = append(paths, d)
	}
	sort.Strings(paths)

	filter := func(path string) bool {
		abs, err := filepath.Abs(path)
		if err != nil {
			return false
		}
		_, ok := targets[abs]
		return ok
	}
	return New(paths, callback, append(opts, WithFilter(filter))...)
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !w.filter(event.Name) {
				continue
			}

			w.logger.Debug().
				Str("file", event.Name).
				Str("op", event.Op.String()).
				Msg("watch: file changed")

			w.addPending(event.Name)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watch: watcher error")

		case <-w.stopCh:
			return
		}
	}
}

// addPending records a change and restarts the debounce timer.
func (w *Watcher) addPending(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	w.pending[file] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.firePending)
}

func (w *Watcher) firePending() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	w.mu.Unlock()

	if len(files) == 0 {
		return
	}
	sort.Strings(files)
	w.callback(files)
}

// Close stops the watcher. Pending changes are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	return w.fsw.Close()
}
