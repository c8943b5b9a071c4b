package config

import (
	"time"

	"github.com/google/go-cmp/cmp"
)

// ConfigDiff describes what changed between two configs.
// Only region, loop interval and log level are applied at runtime; every
// other changed section is listed in RestartRequired.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	RegionChanged bool
	NewRegion     RegionConfig

	IntervalChanged bool
	NewInterval     time.Duration

	// RestartRequired names the top-level sections whose changes only take
	// effect after a restart (translation settings also after the next
	// pipeline start).
	RestartRequired []string
}

// HasChanges reports whether anything changed at all.
func (d ConfigDiff) HasChanges() bool {
	return d.LogLevelChanged || d.RegionChanged || d.IntervalChanged || len(d.RestartRequired) > 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Capture.Region != new.Capture.Region {
		d.RegionChanged = true
		d.NewRegion = new.Capture.Region
	}
	if old.Pipeline.Interval != new.Pipeline.Interval {
		d.IntervalChanged = true
		d.NewInterval = new.Pipeline.Interval
	}

	// Compare the remaining fields with the hot-reloadable ones masked out.
	oldRest, newRest := restartRelevant(old), restartRelevant(new)
	sections := []struct {
		name string
		a, b any
	}{
		{"server", oldRest.Server, newRest.Server},
		{"capture", oldRest.Capture, newRest.Capture},
		{"recognizer", oldRest.Recognizer, newRest.Recognizer},
		{"recognizer_fallbacks", oldRest.RecognizerFallbacks, newRest.RecognizerFallbacks},
		{"translation", oldRest.Translation, newRest.Translation},
		{"pipeline", oldRest.Pipeline, newRest.Pipeline},
		{"transcript", oldRest.Transcript, newRest.Transcript},
		{"overlay", oldRest.Overlay, newRest.Overlay},
		{"discord", oldRest.Discord, newRest.Discord},
	}
	for _, s := range sections {
		if !cmp.Equal(s.a, s.b) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}

func restartRelevant(c *Config) Config {
	rest := *c
	rest.Server.LogLevel = ""
	rest.Capture.Region = RegionConfig{}
	rest.Pipeline.Interval = 0
	return rest
}
