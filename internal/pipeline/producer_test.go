package pipeline

import (
	"context"
	"image"
	"testing"
	"time"

	"github.com/MrWong99/ocrlite/pkg/provider/capture"
	capturemock "github.com/MrWong99/ocrlite/pkg/provider/capture/mock"
)

func TestProducer_CaptureOnceSeedsRegion(t *testing.T) {
	src := &capturemock.Source{Frames: []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 200, 100))}}
	frames := NewFrameBuffer(image.Rectangle{})
	p := NewProducer(src, frames)

	if !p.CaptureOnce(context.Background()) {
		t.Fatal("CaptureOnce reported no frame")
	}
	if !frames.HasFrame() {
		t.Fatal("frame not stored")
	}
	if got, want := frames.Region(), Rect(0, 72, 200, 28); got != want {
		t.Errorf("region = %v, want %v", got, want)
	}
}

func TestProducer_CaptureErrorsReportedOnce(t *testing.T) {
	src := &capturemock.Source{Err: capture.ErrMinimized}
	frames := NewFrameBuffer(image.Rectangle{})
	rec := &recorder{}
	p := NewProducer(src, frames, WithProducerObserver(rec.observe))

	for range 3 {
		if p.CaptureOnce(context.Background()) {
			t.Fatal("CaptureOnce stored a frame despite error")
		}
	}
	st := rec.statuses()
	if len(st) != 1 || st[0] != "Capture error: capture: source is minimized" {
		t.Errorf("statuses = %q, want one capture error", st)
	}
	if frames.HasFrame() {
		t.Error("no frame expected")
	}

	src.SetErr(nil)
	src.Frames = []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 10, 10))}
	if !p.CaptureOnce(context.Background()) {
		t.Fatal("expected recovery")
	}
	src.SetErr(capture.ErrTooSmall)
	p.CaptureOnce(context.Background())
	if got := len(rec.statuses()); got != 2 {
		t.Errorf("statuses after recovery = %d, want 2", got)
	}
}

func TestProducer_RunUntilCancelled(t *testing.T) {
	src := &capturemock.Source{Frames: []*image.RGBA{image.NewRGBA(image.Rect(0, 0, 20, 20))}}
	frames := NewFrameBuffer(image.Rectangle{})
	p := NewProducer(src, frames, WithPollInterval(5*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	eventually(t, "several captures", func() bool { return src.Calls() >= 3 })
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
