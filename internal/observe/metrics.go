// Package observe wires ocrlite into OpenTelemetry: metric instruments for the
// recognition loop and its providers, span helpers, a trace-aware slog
// handler and the HTTP middleware of the control surface.
//
// [InitProvider] installs the SDK and a Prometheus registry. Production code
// records through [DefaultMetrics]; tests build their own with [NewMetrics]
// and a manual reader.
package observe

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Cycle outcomes recorded on [Metrics.Cycles].
const (
	OutcomeEmitted        = "emitted"
	OutcomeDuplicate      = "duplicate"
	OutcomeEmpty          = "empty"
	OutcomeCaptureError   = "capture_error"
	OutcomeRecognizeError = "recognize_error"
	OutcomeNoFrame        = "no_frame"
)

// Metrics holds every instrument ocrlite records. Attribute keys are listed
// per field; the Record helpers set them consistently.
type Metrics struct {
	RecognizeDuration metric.Float64Histogram
	// provider
	TranslateDuration metric.Float64Histogram
	CycleDuration     metric.Float64Histogram
	// method, route, status
	HTTPRequestDuration metric.Float64Histogram

	// outcome
	Cycles metric.Int64Counter
	// provider, kind, status
	ProviderRequests metric.Int64Counter
	// provider, kind
	ProviderErrors     metric.Int64Counter
	TranscriptEntries  metric.Int64Counter
	TokenRefreshes     metric.Int64Counter
	BreakerTransitions metric.Int64Counter // breaker, state

	// PipelineRunning is 1 while a run is active.
	PipelineRunning metric.Int64UpDownCounter
	OverlayClients  metric.Int64UpDownCounter
}

// latencyBuckets are histogram boundaries in seconds, from a local tesseract
// pass up to a slow vision model.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 12,
}

// builder creates instruments on one meter and collects their errors.
type builder struct {
	meter metric.Meter
	errs  []error
}

func (b *builder) latency(name, desc string) metric.Float64Histogram {
	h, err := b.meter.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	)
	b.errs = append(b.errs, err)
	return h
}

func (b *builder) counter(name, desc string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return c
}

func (b *builder) gauge(name, desc string) metric.Int64UpDownCounter {
	g, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc))
	b.errs = append(b.errs, err)
	return g
}

// NewMetrics creates all instruments on mp.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	b := &builder{meter: mp.Meter(scope)}
	m := &Metrics{
		RecognizeDuration:   b.latency("ocrlite.recognize.duration", "Latency of text recognition on the region of interest."),
		TranslateDuration:   b.latency("ocrlite.translate.duration", "Latency of translation provider calls."),
		CycleDuration:       b.latency("ocrlite.cycle.duration", "Duration of one capture-recognize-translate-log cycle."),
		HTTPRequestDuration: b.latency("ocrlite.http.request.duration", "HTTP request latency by method, route pattern and status."),

		Cycles:             b.counter("ocrlite.cycles", "Loop cycles by outcome."),
		ProviderRequests:   b.counter("ocrlite.provider.requests", "Provider calls by provider, kind and status."),
		ProviderErrors:     b.counter("ocrlite.provider.errors", "Provider errors by provider and kind."),
		TranscriptEntries:  b.counter("ocrlite.transcript.entries", "Entries appended to the session transcript."),
		TokenRefreshes:     b.counter("ocrlite.token.refreshes", "OAuth access token refreshes."),
		BreakerTransitions: b.counter("ocrlite.breaker.transitions", "Circuit breaker state changes by breaker and new state."),

		PipelineRunning: b.gauge("ocrlite.pipeline.running", "1 while the recognition loop runs."),
		OverlayClients:  b.gauge("ocrlite.overlay.clients", "Connected overlay clients."),
	}
	if err := errors.Join(b.errs...); err != nil {
		return nil, err
	}
	return m, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the process-wide instance bound to the global meter
// provider. It panics if an instrument cannot be created.
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is shorthand for [attribute.String].
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordCycle counts one loop cycle.
func (m *Metrics) RecordCycle(ctx context.Context, outcome string) {
	m.Cycles.Add(ctx, 1, metric.WithAttributes(Attr("outcome", outcome)))
}

// RecordProviderRequest counts one provider call.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1, metric.WithAttributes(
		Attr("provider", provider), Attr("kind", kind), Attr("status", status)))
}

// RecordProviderError counts one failed provider call.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1, metric.WithAttributes(Attr("provider", provider), Attr("kind", kind)))
}

// RecordBreakerTransition counts a circuit breaker entering state.
func (m *Metrics) RecordBreakerTransition(ctx context.Context, breaker, state string) {
	m.BreakerTransitions.Add(ctx, 1, metric.WithAttributes(Attr("breaker", breaker), Attr("state", state)))
}
