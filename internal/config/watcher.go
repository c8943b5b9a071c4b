package config

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"
)

const defaultWatchInterval = 5 * time.Second

// ChangeFunc receives a newly loaded configuration together with its
// difference from the one it replaces.
type ChangeFunc func(cfg *Config, d ConfigDiff)

// fileState identifies one version of the config file.
type fileState struct {
	modTime time.Time
	size    int64
	sum     [sha256.Size]byte
}

// Watcher polls a config file and reports edits that validate and change at
// least one setting. An invalid edit is logged and the last good config stays
// current; a comment-only edit is absorbed silently.
type Watcher struct {
	path     string
	interval time.Duration
	onChange ChangeFunc

	// reloadMu serialises reloads from Run and Reload.
	reloadMu sync.Mutex

	mu      sync.Mutex
	current *Config
	state   fileState
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithInterval sets the polling interval. Default: 5s.
func WithInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.interval = d
		}
	}
}

// NewWatcher loads path once and returns a watcher for it. Polling starts
// with [Watcher.Run].
func NewWatcher(path string, onChange ChangeFunc, opts ...WatcherOption) (*Watcher, error) {
	w := &Watcher{path: path, interval: defaultWatchInterval, onChange: onChange}
	for _, opt := range opts {
		opt(w)
	}
	cfg, st, err := w.read()
	if err != nil {
		return nil, fmt.Errorf("config: watch %s: %w", path, err)
	}
	w.current, w.state = cfg, st
	return w, nil
}

// Current returns the last valid config.
func (w *Watcher) Current() *Config {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.current
}

// Run polls until ctx is done. Load errors are logged, never returned.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if !w.modified() {
				continue
			}
			if _, err := w.Reload(); err != nil {
				slog.Warn("config watcher: keeping previous config", "path", w.path, "err", err)
			}
		}
	}
}

// Reload re-reads the file now, regardless of its modification time, and
// reports whether the config changed. The callback runs before Reload
// returns. An invalid file leaves the current config in place.
func (w *Watcher) Reload() (bool, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	cfg, st, err := w.read()
	if err != nil {
		// Remember the broken version so Run does not re-parse it every tick.
		w.mu.Lock()
		w.state.modTime, w.state.size = st.modTime, st.size
		w.mu.Unlock()
		return false, err
	}

	w.mu.Lock()
	if st.sum == w.state.sum {
		w.state = st
		w.mu.Unlock()
		return false, nil
	}
	old := w.current
	w.current, w.state = cfg, st
	w.mu.Unlock()

	d := Diff(old, cfg)
	if !d.HasChanges() {
		slog.Debug("config watcher: file edited without setting changes", "path", w.path)
		return false, nil
	}
	slog.Info("config watcher: configuration reloaded", "path", w.path,
		"log_level_changed", d.LogLevelChanged,
		"region_changed", d.RegionChanged,
		"interval_changed", d.IntervalChanged,
		"restart_required", d.RestartRequired,
	)
	if w.onChange != nil {
		w.onChange(cfg, d)
	}
	return true, nil
}

// modified reports whether the file's size or modification time differs from
// the last version read.
func (w *Watcher) modified() bool {
	info, err := os.Stat(w.path)
	if err != nil {
		slog.Warn("config watcher: cannot stat file", "path", w.path, "err", err)
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return !info.ModTime().Equal(w.state.modTime) || info.Size() != w.state.size
}

// read loads and validates the file. The returned state carries the stat
// fields even when parsing fails.
func (w *Watcher) read() (*Config, fileState, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return nil, fileState{}, err
	}
	st := fileState{modTime: info.ModTime(), size: info.Size()}
	data, err := os.ReadFile(w.path)
	if err != nil {
		return nil, st, err
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, st, err
	}
	st.sum = sha256.Sum256(data)
	return cfg, st, nil
}
