package pipeline

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/ocrlite/internal/observe"
)

// loop runs cycles until ctx is cancelled. Cancellation is checked before
// every cycle and during every pause; a cycle interrupted by cancellation
// logs nothing.
func (o *Orchestrator) loop(ctx context.Context, r *run) {
	defer close(r.done)
	for {
		if ctx.Err() != nil {
			return
		}
		wait := o.cycle(ctx, r)
		if !sleep(ctx, wait) {
			return
		}
	}
}

// cycle performs one pass and returns the pause before the next one.
func (o *Orchestrator) cycle(ctx context.Context, r *run) time.Duration {
	crop, region, err := o.frames.Snapshot()
	switch {
	case errors.Is(err, errNoFrame):
		o.metrics.RecordCycle(ctx, observe.OutcomeNoFrame)
		return noFrameWait
	case errors.Is(err, errNoRegion):
		return o.Interval()
	}

	start := time.Now()
	ctx, span := observe.StartSpan(ctx, "pipeline.cycle", attribute.String("region", region.String()))
	defer span.End()
	defer func() {
		o.metrics.CycleDuration.Record(ctx, time.Since(start).Seconds())
	}()

	text, err := o.recognize(ctx, crop)
	if err != nil {
		if ctx.Err() != nil {
			return 0
		}
		observe.Fail(span, err)
		o.metrics.RecordCycle(ctx, observe.OutcomeRecognizeError)
		slog.WarnContext(ctx, "pipeline: recognize failed", "err", err)
		o.status("OCR error: " + err.Error())
		return o.Interval()
	}

	if ctx.Err() != nil {
		return 0
	}

	text = NormalizeText(text)
	if text == "" {
		o.metrics.RecordCycle(ctx, observe.OutcomeEmpty)
		return o.Interval()
	}
	if !r.dedup.ShouldEmit(text, o.now()) {
		o.metrics.RecordCycle(ctx, observe.OutcomeDuplicate)
		return o.Interval()
	}

	res, err := r.provider.Translate(ctx, text)
	if err != nil || ctx.Err() != nil {
		// Cancelled mid-flight: the cycle is abandoned.
		return 0
	}
	translated := res.Text
	if strings.TrimSpace(translated) == "" {
		translated = text
	}

	entry, err := r.writer.Log(text, translated)
	if err != nil {
		slog.ErrorContext(ctx, "pipeline: write transcript", "err", err)
		o.status("Transcript error: " + err.Error())
	} else {
		o.metrics.TranscriptEntries.Add(ctx, 1)
		slog.DebugContext(ctx, "pipeline: entry logged",
			"entry_id", entry.EntryID,
			"window_id", entry.DialogueWindowID,
		)
	}

	o.metrics.RecordCycle(ctx, observe.OutcomeEmitted)
	ev := Event{
		Kind:       EventEntry,
		Payload:    FormatPayload(text, translated, r.sourceOnly),
		SessionDir: r.writer.Dir(),
	}
	if err == nil {
		ev.Entry = &entry
	}
	o.emit(ev)
	if res.IsError {
		o.status(res.ErrorMessage)
	}
	return o.Interval()
}

func (o *Orchestrator) recognize(ctx context.Context, crop *image.RGBA) (string, error) {
	ctx, span := observe.StartSpan(ctx, "recognize", attribute.String("engine", o.recognizer.Name()))
	defer span.End()

	start := time.Now()
	text, err := o.recognizer.Recognize(ctx, crop)
	o.metrics.RecognizeDuration.Record(ctx, time.Since(start).Seconds())
	observe.Fail(span, err)
	return text, err
}

// sleep pauses for d or until ctx is done. It reports whether the loop should
// continue.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
