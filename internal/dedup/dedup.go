// Package dedup implements the emission gate that sits between the text
// recogniser and everything downstream of it.
//
// Recognition output is noisy and re-fires on an unchanged screen. A
// [Deduplicator] suppresses near-identical repeats (by normalised edit-distance
// similarity against the last accepted text) and rate-limits acceptances to a
// minimum interval, while still letting genuinely changed text through.
package dedup

import (
	"strings"
	"time"

	"github.com/MrWong99/ocrlite/internal/textsim"
)

const (
	defaultSimilarityThreshold = 0.93
	defaultMinInterval         = 150 * time.Millisecond
)

// Option is a functional option for configuring a [Deduplicator].
type Option func(*Deduplicator)

// WithSimilarityThreshold sets the similarity at or above which a candidate is
// treated as a duplicate of the last accepted text. Default: 0.93.
func WithSimilarityThreshold(threshold float64) Option {
	return func(d *Deduplicator) {
		d.threshold = threshold
	}
}

// WithMinInterval sets the minimum time between two acceptances. Zero disables
// rate limiting. Default: 150ms.
func WithMinInterval(interval time.Duration) Option {
	return func(d *Deduplicator) {
		if interval >= 0 {
			d.minInterval = interval
		}
	}
}

// Deduplicator decides whether a recognised text should be emitted.
//
// State changes only on acceptance. A Deduplicator belongs to exactly one
// pipeline run and is not safe for concurrent use.
type Deduplicator struct {
	threshold   float64
	minInterval time.Duration

	lastText string
	lastAt   time.Time
}

// New returns a [Deduplicator] with empty state.
func New(opts ...Option) *Deduplicator {
	d := &Deduplicator{
		threshold:   defaultSimilarityThreshold,
		minInterval: defaultMinInterval,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// ShouldEmit reports whether raw, observed at now, should be passed on. The
// text is whitespace-normalised first; blank input is always rejected.
func (d *Deduplicator) ShouldEmit(raw string, now time.Time) bool {
	text := Normalize(raw)
	if text == "" {
		return false
	}

	if !d.lastAt.IsZero() && now.Sub(d.lastAt) < d.minInterval {
		return false
	}

	if d.lastText == "" {
		d.remember(text, now)
		return true
	}

	if textsim.Similarity(d.lastText, text) >= d.threshold {
		return false
	}

	d.remember(text, now)
	return true
}

// LastAccepted returns the most recently accepted normalised text and the time
// it was accepted. Both are zero before the first acceptance.
func (d *Deduplicator) LastAccepted() (string, time.Time) {
	return d.lastText, d.lastAt
}

func (d *Deduplicator) remember(text string, now time.Time) {
	d.lastText = text
	d.lastAt = now
}

// Normalize collapses every run of whitespace (including line breaks) to a
// single space and trims both ends.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
