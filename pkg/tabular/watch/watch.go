// Package watch ingests spreadsheets dropped into a directory.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/papercomputeco/pitch/pkg/tabular"
)

const defaultSettle = 500 * time.Millisecond

// Handler processes one settled file.
type Handler func(ctx context.Context, path string) error

// Config configures a Watcher.
type Config struct {
	Dir string

	// Settle is how long a file must go without writes before it is
	// handled. Defaults to 500ms.
	Settle time.Duration

	Handler Handler
	Logger  *slog.Logger
}

// Watcher calls its handler for every supported file created or rewritten
// in a directory.
type Watcher struct {
	config  Config
	watcher *fsnotify.Watcher
	logger  *slog.Logger

	mu      sync.Mutex
	pending map[string]*time.Timer
	stopped bool
	wg      sync.WaitGroup
}

// New starts watching c.Dir. Events are not handled until Run is called.
func New(c Config) (*Watcher, error) {
	if c.Handler == nil {
		return nil, fmt.Errorf("watch handler is required")
	}
	if c.Settle <= 0 {
		c.Settle = defaultSettle
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(c.Dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watching %s: %w", c.Dir, err)
	}

	return &Watcher{
		config:  c,
		watcher: fw,
		logger:  c.Logger.With("component", "watch", "dir", c.Dir),
		pending: make(map[string]*time.Timer),
	}, nil
}

// Run dispatches events until ctx is done, then waits for in-flight handlers.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.wg.Wait()
	defer w.stopTimers()

	w.logger.Info("watching for uploads")
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !tabular.Supported(event.Name) {
				continue
			}
			w.schedule(ctx, event.Name)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		}
	}
}

// Close stops the underlying watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

// schedule (re)arms the settle timer for path.
func (w *Watcher) schedule(ctx context.Context, path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(w.config.Settle)
		return
	}

	w.pending[path] = time.AfterFunc(w.config.Settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		if w.stopped {
			w.mu.Unlock()
			return
		}
		w.wg.Add(1)
		w.mu.Unlock()
		defer w.wg.Done()

		if ctx.Err() != nil {
			return
		}
		if err := w.config.Handler(ctx, path); err != nil {
			w.logger.Error("handling upload failed", "path", path, "error", err)
			return
		}
		w.logger.Info("upload handled", "path", path)
	})
}

func (w *Watcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for path, t := range w.pending {
		t.Stop()
		delete(w.pending, path)
	}
}
