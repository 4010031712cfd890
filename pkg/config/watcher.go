package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is the quiet period before a change is reported.
const DefaultDebounceInterval = 200 * time.Millisecond

// ErrWatcherRunning is returned by Watch when the watcher is already active.
var ErrWatcherRunning = errors.New("config watcher already running")

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Dir is the configuration directory to watch.
	Dir string

	// DebounceInterval collapses bursts of events (editors often write
	// several times per save).
	// Default: 200ms
	DebounceInterval time.Duration

	// Extensions are the file extensions that count as document changes.
	// Default: .yaml, .yml
	Extensions []string
}

// Watcher reports changes to the YAML documents of a configuration
// directory. The usual callback is Store.ReloadAll.
type Watcher struct {
	cfg      WatcherConfig
	fsw      *fsnotify.Watcher
	debounce *debouncer
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewWatcher creates a Watcher for cfg.Dir. Watching starts with Watch.
func NewWatcher(cfg WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, errors.New("watcher directory is required")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if len(cfg.Extensions) == 0 {
		cfg.Extensions = []string{DocumentExtension, ".yml"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}

	return &Watcher{
		cfg:      cfg,
		fsw:      fsw,
		debounce: newDebouncer(cfg.DebounceInterval),
		logger:   logger.With("component", "config.watcher"),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}, nil
}

// Watch blocks until ctx is cancelled or Stop is called, invoking onChange
// once per debounced burst of document changes.
func (w *Watcher) Watch(ctx context.Context, onChange func()) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return ErrWatcherRunning
	}
	w.running = true
	w.mu.Unlock()

	defer close(w.doneCh)

	if err := w.fsw.Add(w.cfg.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.cfg.Dir, err)
	}

	w.logger.Info("watching configuration directory",
		"dir", w.cfg.Dir,
		"debounce_ms", w.cfg.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped", "reason", ctx.Err())
			return nil

		case <-w.stopCh:
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("configuration file changed",
				"path", event.Name,
				"op", event.Op.String(),
			)
			w.debounce.trigger(func() {
				w.logger.Info("reloading configuration", "path", event.Name)
				onChange()
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

// Stop ends a running Watch and releases the underlying watcher.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	running := w.running
	w.running = false
	w.mu.Unlock()

	if running {
		close(w.stopCh)
		<-w.doneCh
	}
	w.debounce.stop()

	if err := w.fsw.Close(); err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") {
		return false
	}

	ext := strings.ToLower(filepath.Ext(base))
	for _, want := range w.cfg.Extensions {
		if ext == strings.ToLower(want) {
			return true
		}
	}
	return false
}
