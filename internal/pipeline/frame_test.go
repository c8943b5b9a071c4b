package pipeline

import (
	"image"
	"image/color"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 1, 21, 4, 5, 0, time.UTC)

func TestClampToBounds(t *testing.T) {
	bounds := image.Rect(0, 0, 100, 50)

	tests := []struct {
		name string
		in   image.Rectangle
		want image.Rectangle
	}{
		{name: "inside", in: Rect(10, 10, 20, 20), want: Rect(10, 10, 20, 20)},
		{name: "overhang right and bottom", in: Rect(90, 40, 30, 30), want: Rect(90, 40, 10, 10)},
		{name: "negative origin", in: Rect(-5, -5, 20, 20), want: Rect(0, 0, 20, 20)},
		{name: "origin past max", in: Rect(150, 80, 10, 10), want: Rect(99, 49, 1, 1)},
		{name: "zero size grows to one", in: Rect(5, 5, 0, 0), want: Rect(5, 5, 1, 1)},
		{name: "larger than bounds", in: Rect(0, 0, 500, 500), want: Rect(0, 0, 100, 50)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := ClampToBounds(tc.in, bounds)
			if got != tc.want {
				t.Errorf("ClampToBounds(%v) = %v, want %v", tc.in, got, tc.want)
			}
			if !got.In(bounds) {
				t.Errorf("result %v not inside %v", got, bounds)
			}
		})
	}
}

func TestDefaultRegion(t *testing.T) {
	tests := []struct {
		size image.Point
		want image.Rectangle
	}{
		{size: image.Pt(1920, 1080), want: Rect(0, 778, 1920, 302)},
		{size: image.Pt(200, 100), want: Rect(0, 72, 200, 28)},
		{size: image.Pt(0, 0), want: image.Rectangle{}},
	}
	for _, tc := range tests {
		if got := DefaultRegion(tc.size); got != tc.want {
			t.Errorf("DefaultRegion(%v) = %v, want %v", tc.size, got, tc.want)
		}
	}
}

func TestFrameBuffer_PutSeedsDefaultRegionOnce(t *testing.T) {
	b := NewFrameBuffer(image.Rectangle{})
	if b.HasFrame() {
		t.Fatal("new buffer should have no frame")
	}

	b.Put(image.NewRGBA(image.Rect(0, 0, 200, 100)), t0)
	if got, want := b.Region(), Rect(0, 72, 200, 28); got != want {
		t.Fatalf("seeded region = %v, want %v", got, want)
	}

	b.SetRegion(Rect(10, 10, 50, 20))
	b.Put(image.NewRGBA(image.Rect(0, 0, 400, 300)), t0.Add(time.Second))
	if got, want := b.Region(), Rect(10, 10, 50, 20); got != want {
		t.Errorf("region after second frame = %v, want %v", got, want)
	}
	if got := b.CapturedAt(); !got.Equal(t0.Add(time.Second)) {
		t.Errorf("CapturedAt = %v", got)
	}
	if got := b.FrameSize(); got != image.Pt(400, 300) {
		t.Errorf("FrameSize = %v", got)
	}
}

func TestFrameBuffer_ConfiguredRegionKept(t *testing.T) {
	b := NewFrameBuffer(Rect(5, 5, 10, 10))
	b.Put(image.NewRGBA(image.Rect(0, 0, 200, 100)), t0)
	if got, want := b.Region(), Rect(5, 5, 10, 10); got != want {
		t.Errorf("region = %v, want %v", got, want)
	}
}

func TestFrameBuffer_ResetRegion(t *testing.T) {
	b := NewFrameBuffer(Rect(5, 5, 10, 10))
	if got := b.ResetRegion(); !got.Empty() {
		t.Errorf("reset without frame = %v, want empty", got)
	}

	b.Put(image.NewRGBA(image.Rect(0, 0, 200, 100)), t0)
	b.SetRegion(Rect(1, 1, 2, 2))
	if got, want := b.ResetRegion(), Rect(0, 72, 200, 28); got != want {
		t.Errorf("reset with frame = %v, want %v", got, want)
	}
}

func TestFrameBuffer_Snapshot(t *testing.T) {
	b := NewFrameBuffer(image.Rectangle{})
	if _, _, err := b.Snapshot(); err != errNoFrame {
		t.Fatalf("Snapshot without frame: err = %v, want errNoFrame", err)
	}

	frame := image.NewRGBA(image.Rect(0, 0, 100, 50))
	marker := color.RGBA{R: 255, A: 255}
	frame.SetRGBA(95, 45, marker)
	b.Put(frame, t0)

	b.SetRegion(Rect(90, 40, 30, 30))
	crop, region, err := b.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if want := Rect(90, 40, 10, 10); region != want {
		t.Errorf("clamped region = %v, want %v", region, want)
	}
	if crop.Bounds() != image.Rect(0, 0, 10, 10) {
		t.Errorf("crop bounds = %v, want origin-based 10x10", crop.Bounds())
	}
	if got := crop.RGBAAt(5, 5); got != marker {
		t.Errorf("crop pixel = %v, want %v", got, marker)
	}

	// The crop is a copy: modifying it leaves the buffered frame untouched.
	crop.SetRGBA(5, 5, color.RGBA{})
	again, _, _ := b.Snapshot()
	if got := again.RGBAAt(5, 5); got != marker {
		t.Errorf("buffer aliased by snapshot: pixel = %v", got)
	}

	b.SetRegion(Rect(10, 10, 0, 5))
	if _, _, err := b.Snapshot(); err != errNoRegion {
		t.Errorf("Snapshot with zero-area region: err = %v, want errNoRegion", err)
	}
}

func TestFrameBuffer_ConcurrentAccess(t *testing.T) {
	b := NewFrameBuffer(image.Rectangle{})
	var wg sync.WaitGroup
	for i := range 4 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := range 50 {
				b.Put(image.NewRGBA(image.Rect(0, 0, 50+i, 40+j)), t0)
			}
		}()
		go func() {
			defer wg.Done()
			for range 50 {
				_, _, _ = b.Snapshot()
				b.SetRegion(Rect(0, 0, 10, 10))
			}
		}()
	}
	wg.Wait()
	if !b.HasFrame() {
		t.Error("expected a frame after concurrent puts")
	}
}
