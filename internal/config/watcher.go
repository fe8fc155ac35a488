package config

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// defaultReloadDebounce coalesces the event bursts editors produce when
// saving a file (write + chmod, or remove + create).
const defaultReloadDebounce = 200 * time.Millisecond

// Watcher monitors a config file through fsnotify and calls a callback when
// its content changes. The parent directory is watched rather than the file
// itself so atomic-rename saves keep working. An invalid new config is
// logged and discarded; the previous config stays current.
type Watcher struct {
	path     string
	onChange func(old, new *Config)
	debounce time.Duration

	mu      sync.Mutex
	current *Config

	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithReloadDebounce sets the event coalescing delay. Default: 200 ms.
func WithReloadDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// NewWatcher creates a config file watcher. It loads the initial config
// immediately and starts watching in a background goroutine.
func NewWatcher(path string, onChange func(old, new *Config), opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		onChange: onChange,
		debounce: defaultReloadDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, fmt.Errorf("config: watcher initial load: %w", err)
	}
	w.current = cfg

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config: watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("config: watch %q: %w", filepath.Dir(path), err)
	}
	w.fsw = fsw

	go w.loop()
	return w, nil
}

// Current returns the most recently loaded valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.fsw.Close()
	})
}

// loop consumes fsnotify events, debouncing reloads of the watched file.
func (w *Watcher) loop() {
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(w.debounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(w.debounce)
		}
	}

	base := filepath.Base(w.path)
	for {
		select {
		case <-w.done:
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			return

		case <-reloadCh:
			w.reload()

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher: error", "path", w.path, "error", err)
		}
	}
}

// reload re-reads the config file and swaps it in when its content changed.
func (w *Watcher) reload() {
	cfg, err := Load(w.path)
	if err != nil {
		slog.Warn("config watcher: keeping previous config", "path", w.path, "error", err)
		return
	}

	w.mu.Lock()
	old := w.current
	if Diff(old, cfg).Empty() {
		w.mu.Unlock()
		return
	}
	w.current = cfg
	w.mu.Unlock()

	slog.Info("config watcher: configuration reloaded", "path", w.path)

	// Callback outside the lock so it can safely call Current().
	if w.onChange != nil {
		w.onChange(old, cfg)
	}
}
