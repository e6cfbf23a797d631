// Package watcher monitors persisted configuration files and reports
// changes so mods can react to edits made while the host is running.
package watcher

import (
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dshills/modhost/internal/fanout"
)

// Event describes one changed configuration file.
type Event struct {
	// Path is the path to the changed file.
	Path string

	// Owner is the mod the file belongs to (file name without extension).
	Owner string
}

// Watcher watches state directories for edits to per-mod TOML snapshots.
// Subscribers are invoked with per-handler fault isolation; a failing
// subscriber never blocks the others.
type Watcher struct {
	fw       *fsnotify.Watcher
	logger   *slog.Logger
	debounce time.Duration

	subs fanout.Group[Event]

	mu     sync.Mutex
	timers map[string]*time.Timer
	closed bool

	done chan struct{}
	wg   sync.WaitGroup
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce sets how long rapid successive writes to one file are
// coalesced before subscribers run. Default is 100ms.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d >= 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the logger used for subscriber failures and watch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// New creates a watcher and starts its event loop.
func New(opts ...Option) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fw:       fw,
		logger:   slog.Default(),
		debounce: 100 * time.Millisecond,
		timers:   make(map[string]*time.Timer),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()

	return w, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(dir string) error {
	return w.fw.Add(dir)
}

// Subscribe registers a handler for change events and returns an
// unsubscribe function.
func (w *Watcher) Subscribe(h func(Event) error) func() {
	return w.subs.Subscribe(h)
}

// Close stops the event loop and releases the underlying watcher.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	for _, t := range w.timers {
		t.Stop()
	}
	w.mu.Unlock()

	close(w.done)
	err := w.fw.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if filepath.Ext(ev.Name) != ".toml" {
				continue
			}
			w.schedule(ev.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

// schedule coalesces rapid writes to one file into a single dispatch.
func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.dispatch(path)
	})
}

func (w *Watcher) dispatch(path string) {
	base := filepath.Base(path)
	owner := strings.TrimSuffix(base, filepath.Ext(base))

	if err := w.subs.Invoke(Event{Path: path, Owner: owner}); err != nil {
		w.logger.Warn("config change handler failed", "path", path, "error", err)
	}
}
