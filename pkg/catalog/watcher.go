package catalog

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/obiverse/dojo/pkg/ninja"
	"github.com/rs/zerolog"
)

// ReloadFunc is called after every reload attempt
type ReloadFunc func(c *Catalog, err error)

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	Path               string
	Registry           *ninja.Registry
	StabilityThreshold time.Duration
	OnReload           ReloadFunc
	Logger             zerolog.Logger
}

// Watcher reloads the catalog into a registry when its file changes
type Watcher struct {
	watcher            *fsnotify.Watcher
	path               string
	registry           *ninja.Registry
	stabilityThreshold time.Duration
	onReload           ReloadFunc
	logger             zerolog.Logger
	done               chan struct{}
	timer              *time.Timer
	timerMu            sync.Mutex
	stopOnce           sync.Once
}

// NewWatcher creates a catalog watcher
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("catalog path is required")
	}
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if cfg.StabilityThreshold == 0 {
		cfg.StabilityThreshold = 100 * time.Millisecond
	}

	path, err := filepath.Abs(cfg.Path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
	}

	return &Watcher{
		watcher:            watcher,
		path:               path,
		registry:           cfg.Registry,
		stabilityThreshold: cfg.StabilityThreshold,
		onReload:           cfg.OnReload,
		logger:             cfg.Logger,
		done:               make(chan struct{}),
	}, nil
}

// Start watches the catalog's directory. Editors often replace files by
// rename, so the directory is watched rather than the file.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch catalog: %w", err)
	}

	go w.eventLoop()

	w.logger.Info().Str("path", w.path).Msg("Catalog watcher started")
	return nil
}

// Stop stops the watcher
func (w *Watcher) Stop() error {
	w.stopOnce.Do(func() {
		close(w.done)
	})

	w.timerMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timerMu.Unlock()

	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}

	w.logger.Info().Msg("Catalog watcher stopped")
	return nil
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			w.debounce()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("Catalog watcher error")

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) debounce() {
	w.timerMu.Lock()
	defer w.timerMu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.stabilityThreshold, func() {
		select {
		case <-w.done:
			return
		default:
			w.Reload()
		}
	})
}

// Reload loads the catalog file and applies it. On failure the registry
// keeps its current catalog.
func (w *Watcher) Reload() {
	c, err := LoadMerged(w.path)
	if err == nil {
		err = c.Apply(w.registry)
	}

	if err != nil {
		w.logger.Error().Err(err).Str("path", w.path).Msg("Failed to reload catalog")
	} else {
		w.logger.Info().
			Str("path", w.path).
			Int("capabilities", len(c.Capabilities)).
			Int("contracts", len(c.Contracts)).
			Msg("Catalog reloaded")
	}

	if w.onReload != nil {
		w.onReload(c, err)
	}
}
