// Package capture defines the Source interface for image sources that the
// pipeline pulls frames from.
//
// A Source produces a full pixel snapshot of some external surface on demand.
// Failures are reported with the sentinel errors of this package so callers
// can tell an unusable source from a transient glitch; every failure only
// skips the current capture.
package capture

import (
	"context"
	"errors"
	"image"
	"image/draw"
)

var (
	// ErrInvalidSource means the source no longer refers to a usable surface,
	// e.g. a closed window or a missing file.
	ErrInvalidSource = errors.New("capture: invalid source")

	// ErrMinimized means the surface exists but currently has nothing to show.
	ErrMinimized = errors.New("capture: source is minimized")

	// ErrTooSmall means the surface is one pixel wide or tall, or smaller.
	ErrTooSmall = errors.New("capture: source bounds too small")
)

// Descriptor identifies a source for transcripts and status messages.
type Descriptor struct {
	// Handle is a stable identifier such as a window handle or file path.
	Handle string

	// Title is a human-readable name.
	Title string
}

// Source is the abstraction over any image source.
//
// Implementations must be safe for concurrent use.
type Source interface {
	// Capture returns a fresh snapshot. The returned image is owned by the
	// caller. Bounds always start at the origin.
	Capture(ctx context.Context) (*image.RGBA, error)

	// Descriptor returns the identity of the source.
	Descriptor() Descriptor
}

// CheckBounds returns [ErrTooSmall] when b is at most one pixel wide or tall.
func CheckBounds(b image.Rectangle) error {
	if b.Dx() <= 1 || b.Dy() <= 1 {
		return ErrTooSmall
	}
	return nil
}

// ToRGBA copies img into a new origin-based [image.RGBA].
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
