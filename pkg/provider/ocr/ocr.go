// Package ocr defines the Recognizer interface for text recognition backends.
package ocr

import (
	"context"
	"image"
	"strings"
)

// AutoLanguage is the language tag meaning "let the recognizer decide".
const AutoLanguage = "auto"

// Recognizer extracts text from an image.
//
// Implementations must tolerate Init being called again with a different
// language between runs. Recognize is never called concurrently by the
// pipeline, but implementations should still be safe for concurrent use.
type Recognizer interface {
	// Init prepares the recognizer for lang, a BCP-47 or ISO-639-1 tag such as
	// "ja" or "zh-TW". Unsupported, blank or "auto" tags fall back to automatic
	// detection. It returns the language actually in effect.
	Init(ctx context.Context, lang string) (active string, err error)

	// Recognize returns the text in img, possibly empty.
	Recognize(ctx context.Context, img image.Image) (string, error)

	// Name returns the engine label used in transcripts, e.g. "tesseract".
	Name() string
}

// NormalizeLanguage lower-cases lang and maps blank values to
// [AutoLanguage].
func NormalizeLanguage(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return AutoLanguage
	}
	return strings.ReplaceAll(lang, "_", "-")
}
