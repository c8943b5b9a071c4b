package gateway

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/metric"

	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

// instrumented records latency, request and error metrics for every
// non-blank translate call.
type instrumented struct {
	inner   translate.Provider
	metrics *observe.Metrics
}

func (p *instrumented) Name() string {
	return p.inner.Name()
}

func (p *instrumented) Translate(ctx context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}

	name := p.inner.Name()
	ctx, span := observe.StartSpan(ctx, "translate", observe.Attr("provider", name))
	defer span.End()

	start := time.Now()
	res, err := p.inner.Translate(ctx, text)
	p.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("provider", name)))

	switch {
	case err != nil:
		p.metrics.RecordProviderRequest(ctx, name, "translate", "cancelled")
	case res.IsError:
		observe.Fail(span, errors.New(res.ErrorMessage))
		p.metrics.RecordProviderRequest(ctx, name, "translate", "error")
		p.metrics.RecordProviderError(ctx, name, "translate")
	default:
		p.metrics.RecordProviderRequest(ctx, name, "translate", "ok")
	}
	return res, err
}
