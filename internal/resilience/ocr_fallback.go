package resilience

import (
	"context"
	"fmt"
	"image"
	"log/slog"

	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
)

// RecognizerFallback implements [ocr.Recognizer] with automatic failover
// across several engines, for example a remote vision model backed by a local
// tesseract. Each engine has its own circuit breaker.
type RecognizerFallback struct {
	group *FallbackGroup[ocr.Recognizer]
}

var _ ocr.Recognizer = (*RecognizerFallback)(nil)

// NewRecognizerFallback creates a [RecognizerFallback] with primary as the
// preferred engine.
func NewRecognizerFallback(primary ocr.Recognizer, cfg FallbackConfig) *RecognizerFallback {
	return &RecognizerFallback{
		group: NewFallbackGroup(primary, primary.Name(), cfg),
	}
}

// AddFallback registers an additional engine.
func (f *RecognizerFallback) AddFallback(r ocr.Recognizer) {
	f.group.AddFallback(r.Name(), r)
}

// Name returns the primary engine's label.
func (f *RecognizerFallback) Name() string {
	return f.group.Primary().Name()
}

// Init initialises every engine. A primary failure is returned; fallback
// failures are only logged since the primary may never need them.
func (f *RecognizerFallback) Init(ctx context.Context, lang string) (string, error) {
	var (
		active string
		err    error
		first  = true
	)
	f.group.Each(func(name string, r ocr.Recognizer) {
		a, e := r.Init(ctx, lang)
		switch {
		case first:
			active, err = a, e
		case e != nil:
			slog.Warn("fallback recognizer init failed", "recognizer", name, "lang", lang, "err", e)
		}
		first = false
	})
	if err != nil {
		return "", fmt.Errorf("resilience: init %s: %w", f.Name(), err)
	}
	return active, nil
}

// Recognize runs the first healthy engine and fails over on errors.
func (f *RecognizerFallback) Recognize(ctx context.Context, img image.Image) (string, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, r ocr.Recognizer) (string, error) {
		return r.Recognize(ctx, img)
	})
}
