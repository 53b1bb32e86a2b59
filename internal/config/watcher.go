package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Tunables are the runtime-changeable settings picked up on file change
// without a restart: cache TTLs and the slow-query threshold.
type Tunables struct {
	Cache   Cache   `yaml:"cache"`
	Monitor Monitor `yaml:"monitor"`
}

// Watcher watches the config file and republishes tunables on change.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	mu       sync.RWMutex
	current  Tunables
	onChange []func(Tunables)
	stopCh   chan struct{}
}

// NewWatcher creates a watcher seeded with the given tunables. The watch
// does not start until Start is called.
func NewWatcher(path string, initial Tunables, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	// Watch the directory rather than the file: editors replace files on
	// save, which drops a direct file watch.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch config dir: %w", err)
	}
	return &Watcher{
		path:    path,
		watcher: fsw,
		logger:  logger,
		current: initial,
		stopCh:  make(chan struct{}),
	}, nil
}

// OnChange registers a callback invoked with the new tunables after each
// successful reload.
func (w *Watcher) OnChange(fn func(Tunables)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Current returns the most recently loaded tunables.
func (w *Watcher) Current() Tunables {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching in a background goroutine.
func (w *Watcher) Start() {
	go w.loop()
}

// Stop terminates the watch loop and releases the file watcher.
func (w *Watcher) Stop() {
	close(w.stopCh)
	_ = w.watcher.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Name != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) reload() {
	data, err := os.ReadFile(w.path)
	if err != nil {
		w.logger.Warn("config reload failed", zap.String("path", w.path), zap.Error(err))
		return
	}

	tunables := w.Current()
	if err := yaml.Unmarshal(data, &tunables); err != nil {
		w.logger.Warn("config reload: invalid yaml, keeping previous values",
			zap.String("path", w.path), zap.Error(err))
		return
	}
	if tunables.Cache.TranscriptTTL <= 0 || tunables.Cache.VideoTTL <= 0 ||
		tunables.Cache.SearchTTL <= 0 || tunables.Monitor.SlowQueryThreshold <= 0 {
		w.logger.Warn("config reload: non-positive durations, keeping previous values",
			zap.String("path", w.path))
		return
	}

	w.mu.Lock()
	w.current = tunables
	callbacks := make([]func(Tunables), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	w.logger.Info("config tunables reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn(tunables)
	}
}
