package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/pkg/provider/capture"
)

// DefaultPollInterval is the default pause between two captures.
const DefaultPollInterval = 120 * time.Millisecond

// ProducerOption is a functional option for configuring a [Producer].
type ProducerOption func(*Producer)

// WithPollInterval sets the pause between captures. Default: 120ms.
func WithPollInterval(d time.Duration) ProducerOption {
	return func(p *Producer) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithProducerObserver sets the observer that receives capture status events.
func WithProducerObserver(o Observer) ProducerOption {
	return func(p *Producer) {
		if o != nil {
			p.observer = o
		}
	}
}

// WithProducerMetrics sets the metrics used to count capture failures.
func WithProducerMetrics(m *observe.Metrics) ProducerOption {
	return func(p *Producer) {
		if m != nil {
			p.metrics = m
		}
	}
}

// Producer captures frames from a source on its own schedule and stores them
// in a [FrameBuffer]. It is independent of the orchestrator state: frames keep
// flowing while the loop is Idle so the region can be chosen beforehand.
type Producer struct {
	source   capture.Source
	frames   *FrameBuffer
	interval time.Duration
	observer Observer
	metrics  *observe.Metrics
	now      func() time.Time

	// lastErr suppresses repeated identical status events. Only touched by
	// the goroutine running Run.
	lastErr string
}

// NewProducer creates a producer that captures from source into frames.
func NewProducer(source capture.Source, frames *FrameBuffer, opts ...ProducerOption) *Producer {
	p := &Producer{
		source:   source,
		frames:   frames,
		interval: DefaultPollInterval,
		observer: func(Event) {},
		now:      time.Now,
	}
	for _, o := range opts {
		o(p)
	}
	if p.metrics == nil {
		p.metrics = observe.DefaultMetrics()
	}
	return p
}

// Run captures until ctx is cancelled. It always returns nil; capture failures
// skip one tick and are reported as status events.
func (p *Producer) Run(ctx context.Context) error {
	t := time.NewTicker(p.interval)
	defer t.Stop()

	p.CaptureOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			p.CaptureOnce(ctx)
		}
	}
}

// CaptureOnce takes one snapshot and stores it. It reports whether a frame
// was stored.
func (p *Producer) CaptureOnce(ctx context.Context) bool {
	frame, err := p.source.Capture(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		p.metrics.RecordCycle(ctx, observe.OutcomeCaptureError)
		msg := "Capture error: " + err.Error()
		if msg != p.lastErr {
			p.lastErr = msg
			slog.Warn("pipeline: capture failed", "handle", p.source.Descriptor().Handle, "err", err)
			p.observer(Event{Kind: EventStatus, Time: p.now(), Message: msg})
		}
		return false
	}
	if p.lastErr != "" {
		slog.Info("pipeline: capture recovered", "handle", p.source.Descriptor().Handle)
		p.lastErr = ""
	}
	p.frames.Put(frame, p.now())
	return true
}
