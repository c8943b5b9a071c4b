package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/MrWong99/ocrlite/internal/config"
)

const watcherValidYAML = `
server:
  log_level: info
capture:
  source:
    name: file
recognizer:
  name: tesseract
pipeline:
  interval: 350ms
`

const watcherUpdatedYAML = `
server:
  log_level: debug
capture:
  source:
    name: file
  region: {x: 0, y: 500, width: 1280, height: 220}
recognizer:
  name: tesseract
pipeline:
  interval: 700ms
`

const watcherInvalidYAML = `
server:
  log_level: bananas
`

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %q: %v", path, err)
	}
}

type change struct {
	cfg  *config.Config
	diff config.ConfigDiff
}

// newTestWatcher writes initial to a temp file and watches it. Every callback
// is forwarded to the returned channel.
func newTestWatcher(t *testing.T, initial string, opts ...config.WatcherOption) (*config.Watcher, string, chan change) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, initial)
	changes := make(chan change, 4)
	w, err := config.NewWatcher(path, func(cfg *config.Config, d config.ConfigDiff) {
		changes <- change{cfg: cfg, diff: d}
	}, opts...)
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	return w, path, changes
}

func TestWatcher_InitialLoad(t *testing.T) {
	w, _, _ := newTestWatcher(t, watcherValidYAML)
	cfg := w.Current()
	if cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("log level = %q, want info", cfg.Server.LogLevel)
	}
	if cfg.Pipeline.Interval != 350*time.Millisecond {
		t.Errorf("interval = %v, want 350ms", cfg.Pipeline.Interval)
	}
}

func TestWatcher_InitialLoadFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, watcherInvalidYAML)
	if _, err := config.NewWatcher(path, nil); err == nil {
		t.Fatal("expected an error for an invalid initial config")
	}
	if _, err := config.NewWatcher(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestWatcher_Reload(t *testing.T) {
	tests := []struct {
		name         string
		edit         string
		wantChanged  bool
		wantErr      bool
		wantLogLevel config.LogLevel
	}{
		{name: "settings changed", edit: watcherUpdatedYAML, wantChanged: true, wantLogLevel: config.LogDebug},
		{name: "identical content", edit: watcherValidYAML, wantLogLevel: config.LogInfo},
		{name: "comment only", edit: watcherValidYAML + "# tuned for 1080p\n", wantLogLevel: config.LogInfo},
		{name: "invalid edit", edit: watcherInvalidYAML, wantErr: true, wantLogLevel: config.LogInfo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, path, changes := newTestWatcher(t, watcherValidYAML)
			writeFile(t, path, tt.edit)

			changed, err := w.Reload()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Reload err = %v, wantErr %v", err, tt.wantErr)
			}
			if changed != tt.wantChanged {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got := w.Current().Server.LogLevel; got != tt.wantLogLevel {
				t.Errorf("current log level = %q, want %q", got, tt.wantLogLevel)
			}
			if got := len(changes); (got == 1) != tt.wantChanged {
				t.Errorf("callbacks = %d, want changed=%v", got, tt.wantChanged)
			}
		})
	}
}

func TestWatcher_ReloadReportsDiff(t *testing.T) {
	w, path, changes := newTestWatcher(t, watcherValidYAML)
	writeFile(t, path, watcherUpdatedYAML)
	if _, err := w.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	c := <-changes
	if c.cfg != w.Current() {
		t.Error("callback config is not the current config")
	}
	d := c.diff
	if !d.LogLevelChanged || d.NewLogLevel != config.LogDebug {
		t.Errorf("log level diff = %v %q", d.LogLevelChanged, d.NewLogLevel)
	}
	if want := (config.RegionConfig{X: 0, Y: 500, Width: 1280, Height: 220}); !d.RegionChanged || d.NewRegion != want {
		t.Errorf("region diff = %v %+v", d.RegionChanged, d.NewRegion)
	}
	if !d.IntervalChanged || d.NewInterval != 700*time.Millisecond {
		t.Errorf("interval diff = %v %v", d.IntervalChanged, d.NewInterval)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("RestartRequired = %v, want none", d.RestartRequired)
	}
}

func TestWatcher_RunPicksUpEdits(t *testing.T) {
	w, path, changes := newTestWatcher(t, watcherValidYAML, config.WithInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	// An invalid edit is skipped, the following valid one is applied.
	writeFile(t, path, watcherInvalidYAML)
	time.Sleep(50 * time.Millisecond)
	writeFile(t, path, watcherUpdatedYAML)

	select {
	case c := <-changes:
		if c.cfg.Pipeline.Interval != 700*time.Millisecond {
			t.Errorf("interval = %v, want 700ms", c.cfg.Pipeline.Interval)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the change callback")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
