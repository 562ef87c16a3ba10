package config

import (
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceDelay = 500 * time.Millisecond

// Watcher hot-reloads the tunables section when the config file changes
// and notifies registered callbacks. The rest of the configuration is
// fixed for the process lifetime.
type Watcher struct {
	path      string
	tunables  TunablesConfig
	callbacks []func(TunablesConfig)
	mu        sync.RWMutex
	logger    *zap.Logger
	watcher   *fsnotify.Watcher
	stopCh    chan struct{}
}

// NewWatcher starts watching the config file at path. The initial
// tunables come from the already-loaded configuration.
func NewWatcher(path string, initial TunablesConfig, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsWatcher.Add(path); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("watch %s: %w", path, err)
	}

	w := &Watcher{
		path:     path,
		tunables: initial,
		logger:   logger,
		watcher:  fsWatcher,
		stopCh:   make(chan struct{}),
	}
	go w.watchLoop()

	logger.Info("tunables hot reloading enabled", zap.String("path", path))
	return w, nil
}

// OnChange registers a callback invoked with the new tunables after
// each successful reload.
func (w *Watcher) OnChange(callback func(TunablesConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Tunables returns the current tunables.
func (w *Watcher) Tunables() TunablesConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.tunables
}

// Stop terminates the watch loop.
func (w *Watcher) Stop() {
	close(w.stopCh)
}

func (w *Watcher) watchLoop() {
	defer w.watcher.Close()

	var debounce *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			// Editors often fire several events per save.
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error", zap.Error(err))

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		w.logger.Error("config reload rejected", zap.Error(err))
		return
	}

	w.mu.Lock()
	if cfg.Tunables == w.tunables {
		w.mu.Unlock()
		return
	}
	old := w.tunables
	w.tunables = cfg.Tunables
	callbacks := append([]func(TunablesConfig){}, w.callbacks...)
	w.mu.Unlock()

	w.logger.Info("tunables reloaded",
		zap.Float64("cluster_threshold", cfg.Tunables.ClusterThreshold),
		zap.Float64("old_cluster_threshold", old.ClusterThreshold),
		zap.Int("top_k", cfg.Tunables.TopK))
	for _, cb := range callbacks {
		cb(cfg.Tunables)
	}
}
