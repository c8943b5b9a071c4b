// Package mock provides a test double for the ocr.Recognizer interface.
package mock

import (
	"context"
	"image"
	"sync"

	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
)

var _ ocr.Recognizer = (*Recognizer)(nil)

// Recognizer is a mock implementation of ocr.Recognizer. Texts are returned in
// order; the last one repeats once the list is exhausted.
type Recognizer struct {
	mu sync.Mutex

	// EngineName is returned by Name. Default: "mock".
	EngineName string

	// Texts are returned by Recognize.
	Texts []string

	// RecognizeFunc, if non-nil, overrides Texts.
	RecognizeFunc func(ctx context.Context, img image.Image) (string, error)

	// Err, if non-nil, is returned by Recognize.
	Err error

	// InitErr, if non-nil, is returned by Init.
	InitErr error

	// Languages records every Init call.
	Languages []string

	// Regions records the bounds of every recognized image.
	Regions []image.Rectangle
}

// Name implements [ocr.Recognizer].
func (r *Recognizer) Name() string {
	if r.EngineName == "" {
		return "mock"
	}
	return r.EngineName
}

// Init implements [ocr.Recognizer]. Blank tags report [ocr.AutoLanguage].
func (r *Recognizer) Init(_ context.Context, lang string) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Languages = append(r.Languages, lang)
	if r.InitErr != nil {
		return "", r.InitErr
	}
	return ocr.NormalizeLanguage(lang), nil
}

// Recognize implements [ocr.Recognizer].
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	r.mu.Lock()
	idx := len(r.Regions)
	r.Regions = append(r.Regions, img.Bounds())
	fn, texts, err := r.RecognizeFunc, r.Texts, r.Err
	r.mu.Unlock()

	if fn != nil {
		return fn(ctx, img)
	}
	if err != nil {
		return "", err
	}
	if len(texts) == 0 {
		return "", nil
	}
	return texts[min(idx, len(texts)-1)], nil
}

// Calls returns the number of Recognize calls so far.
func (r *Recognizer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.Regions)
}
