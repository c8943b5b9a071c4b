package pipeline

import (
	"errors"
	"image"
	"math"
	"sync"
	"time"

	"github.com/MrWong99/ocrlite/pkg/provider/capture"
)

// defaultRegionRatio is the share of the frame height covered by the default
// dialogue band at the bottom of the frame.
const defaultRegionRatio = 0.28

var (
	errNoFrame  = errors.New("pipeline: no frame captured yet")
	errNoRegion = errors.New("pipeline: region of interest is empty")
)

// Rect builds a region from x/y/width/height coordinates.
func Rect(x, y, width, height int) image.Rectangle {
	return image.Rect(x, y, x+width, y+height)
}

// DefaultRegion returns the bottom dialogue band of a frame of the given size:
// full width, height round(0.28*H), anchored at the bottom edge. A zero size
// yields the empty rectangle.
func DefaultRegion(size image.Point) image.Rectangle {
	if size.X <= 0 || size.Y <= 0 {
		return image.Rectangle{}
	}
	h := int(math.Round(float64(size.Y) * defaultRegionRatio))
	return Rect(0, size.Y-h, size.X, h)
}

// ClampToBounds moves r inside bounds. Each origin coordinate is clamped into
// [min, max-1]; width and height are clamped to at least 1 and to the extent
// remaining inside bounds. The result is never empty for a non-empty bounds.
func ClampToBounds(r, bounds image.Rectangle) image.Rectangle {
	x := max(bounds.Min.X, min(r.Min.X, bounds.Max.X-1))
	y := max(bounds.Min.Y, min(r.Min.Y, bounds.Max.Y-1))
	w := max(1, min(r.Dx(), bounds.Max.X-x))
	h := max(1, min(r.Dy(), bounds.Max.Y-y))
	return Rect(x, y, w, h)
}

// FrameBuffer holds the latest captured frame and the region of interest
// under one mutex. The capture producer writes frames; the loop reads a
// cropped copy once per cycle. Nothing handed out by a FrameBuffer aliases
// its internal memory.
//
// All methods are safe for concurrent use.
type FrameBuffer struct {
	mu         sync.Mutex
	frame      *image.RGBA
	capturedAt time.Time
	region     image.Rectangle
}

// NewFrameBuffer returns an empty buffer. A non-empty region is used as the
// initial region of interest; otherwise the first frame seeds the default
// dialogue band.
func NewFrameBuffer(region image.Rectangle) *FrameBuffer {
	return &FrameBuffer{region: region.Canon()}
}

// Put stores frame as the latest snapshot. The buffer takes ownership of
// frame; the caller must not modify it afterwards. When no region is set yet,
// the default dialogue band of the frame becomes the region.
func (b *FrameBuffer) Put(frame *image.RGBA, at time.Time) {
	if frame == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.frame = frame
	b.capturedAt = at
	if b.region.Empty() {
		b.region = DefaultRegion(frame.Bounds().Size())
	}
}

// HasFrame reports whether at least one frame has been stored.
func (b *FrameBuffer) HasFrame() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.frame != nil
}

// CapturedAt returns the time the latest frame was stored, or the zero time.
func (b *FrameBuffer) CapturedAt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.capturedAt
}

// FrameSize returns the size of the latest frame, or the zero point.
func (b *FrameBuffer) FrameSize() image.Point {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		return image.Point{}
	}
	return b.frame.Bounds().Size()
}

// Region returns the current region of interest in frame coordinates.
func (b *FrameBuffer) Region() image.Rectangle {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.region
}

// SetRegion replaces the region of interest. The region is stored as given
// (canonicalised) and clamped only when a frame is cropped.
func (b *FrameBuffer) SetRegion(r image.Rectangle) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.region = r.Canon()
}

// ResetRegion replaces the region with the default dialogue band of the latest
// frame, or clears it when no frame exists. It returns the new region.
func (b *FrameBuffer) ResetRegion() image.Rectangle {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.frame == nil {
		b.region = image.Rectangle{}
	} else {
		b.region = DefaultRegion(b.frame.Bounds().Size())
	}
	return b.region
}

// Snapshot returns a private copy of the latest frame cropped to the region of
// interest clamped to the frame bounds, along with the clamped region. The
// copy's bounds start at the origin.
func (b *FrameBuffer) Snapshot() (*image.RGBA, image.Rectangle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.frame == nil {
		return nil, image.Rectangle{}, errNoFrame
	}
	if b.region.Dx() <= 0 || b.region.Dy() <= 0 {
		return nil, image.Rectangle{}, errNoRegion
	}
	clamped := ClampToBounds(b.region, b.frame.Bounds())
	return capture.ToRGBA(b.frame.SubImage(clamped)), clamped, nil
}
