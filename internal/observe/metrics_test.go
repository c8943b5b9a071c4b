package observe

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// newTestMetrics returns a Metrics instance backed by a ManualReader for
// programmatic metric inspection.
func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// collect gathers all metric data from the reader.
func collect(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	return rm
}

// findMetric searches for a metric by name across all scope metrics.
func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for _, sm := range rm.ScopeMetrics {
		for i := range sm.Metrics {
			if sm.Metrics[i].Name == name {
				return &sm.Metrics[i]
			}
		}
	}
	return nil
}

func TestNewMetrics_Histograms(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	histograms := map[string]metric.Float64Histogram{
		"ocrlite.recognize.duration":    m.RecognizeDuration,
		"ocrlite.translate.duration":    m.TranslateDuration,
		"ocrlite.cycle.duration":        m.CycleDuration,
		"ocrlite.http.request.duration": m.HTTPRequestDuration,
	}
	for _, h := range histograms {
		h.Record(ctx, 0.2)
		h.Record(ctx, 1.7)
	}

	rm := collect(t, reader)
	for name := range histograms {
		t.Run(name, func(t *testing.T) {
			met := findMetric(rm, name)
			if met == nil {
				t.Fatalf("metric %q not found", name)
			}
			if met.Unit != "s" {
				t.Errorf("unit = %q, want s", met.Unit)
			}
			hist, ok := met.Data.(metricdata.Histogram[float64])
			if !ok || len(hist.DataPoints) != 1 {
				t.Fatalf("data = %T %+v, want one histogram point", met.Data, met.Data)
			}
			if got := hist.DataPoints[0].Count; got != 2 {
				t.Errorf("count = %d, want 2", got)
			}
		})
	}
}

// sumFor returns the value of the data point of the named sum whose attribute
// key equals value.
func sumFor(t *testing.T, rm metricdata.ResourceMetrics, name, key, value string) int64 {
	t.Helper()
	met := findMetric(rm, name)
	if met == nil {
		t.Fatalf("metric %q not found", name)
	}
	sum, ok := met.Data.(metricdata.Sum[int64])
	if !ok {
		t.Fatalf("metric %q is %T, want a sum", name, met.Data)
	}
	for _, dp := range sum.DataPoints {
		if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
			return dp.Value
		}
	}
	t.Fatalf("no %s=%s point in %q", key, value, name)
	return 0
}

func TestRecordHelpers(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordCycle(ctx, OutcomeEmitted)
	m.RecordCycle(ctx, OutcomeDuplicate)
	m.RecordCycle(ctx, OutcomeDuplicate)
	m.RecordCycle(ctx, OutcomeNoFrame)
	m.RecordProviderRequest(ctx, "DeepL", "translate", "ok")
	m.RecordProviderRequest(ctx, "DeepL", "translate", "ok")
	m.RecordProviderRequest(ctx, "DeepL", "translate", "error")
	m.RecordProviderError(ctx, "Google", "translate")

	rm := collect(t, reader)
	tests := []struct {
		metric, key, value string
		want               int64
	}{
		{"ocrlite.cycles", "outcome", OutcomeDuplicate, 2},
		{"ocrlite.cycles", "outcome", OutcomeEmitted, 1},
		{"ocrlite.cycles", "outcome", OutcomeNoFrame, 1},
		{"ocrlite.provider.requests", "status", "ok", 2},
		{"ocrlite.provider.requests", "status", "error", 1},
		{"ocrlite.provider.errors", "provider", "Google", 1},
	}
	for _, tt := range tests {
		if got := sumFor(t, rm, tt.metric, tt.key, tt.value); got != tt.want {
			t.Errorf("%s{%s=%s} = %d, want %d", tt.metric, tt.key, tt.value, got, tt.want)
		}
	}
}

func TestPlainCountersAndGauges(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.TranscriptEntries.Add(ctx, 3)
	m.TokenRefreshes.Add(ctx, 1)
	// Start, stop, start.
	m.PipelineRunning.Add(ctx, 1)
	m.PipelineRunning.Add(ctx, -1)
	m.PipelineRunning.Add(ctx, 1)
	m.OverlayClients.Add(ctx, 2)

	rm := collect(t, reader)
	want := map[string]int64{
		"ocrlite.transcript.entries": 3,
		"ocrlite.token.refreshes":    1,
		"ocrlite.pipeline.running":   1,
		"ocrlite.overlay.clients":    2,
	}
	for name, v := range want {
		met := findMetric(rm, name)
		if met == nil {
			t.Errorf("metric %q not found", name)
			continue
		}
		sum, ok := met.Data.(metricdata.Sum[int64])
		if !ok || len(sum.DataPoints) != 1 {
			t.Errorf("%s: data = %+v, want one sum point", name, met.Data)
			continue
		}
		if got := sum.DataPoints[0].Value; got != v {
			t.Errorf("%s = %d, want %d", name, got, v)
		}
	}
}

func TestBreakerTransitions(t *testing.T) {
	m, reader := newTestMetrics(t)
	ctx := context.Background()

	m.RecordBreakerTransition(ctx, "translate/deepl", "open")
	m.RecordBreakerTransition(ctx, "translate/deepl", "half-open")
	m.RecordBreakerTransition(ctx, "translate/deepl", "open")

	rm := collect(t, reader)
	if got := sumFor(t, rm, "ocrlite.breaker.transitions", "state", "open"); got != 2 {
		t.Errorf("open transitions = %d, want 2", got)
	}
	if got := sumFor(t, rm, "ocrlite.breaker.transitions", "state", "half-open"); got != 1 {
		t.Errorf("half-open transitions = %d, want 1", got)
	}
}

func TestLatencyBuckets(t *testing.T) {
	m, reader := newTestMetrics(t)
	m.RecognizeDuration.Record(context.Background(), 0.3)

	met := findMetric(collect(t, reader), "ocrlite.recognize.duration")
	if met == nil {
		t.Fatal("metric not found")
	}
	dp := met.Data.(metricdata.Histogram[float64]).DataPoints[0]
	if len(dp.Bounds) != len(latencyBuckets) {
		t.Fatalf("bounds = %v, want %v", dp.Bounds, latencyBuckets)
	}
	// 0.3s lands in the (0.25, 0.5] bucket.
	for i, b := range dp.Bounds {
		if b == 0.5 && dp.BucketCounts[i] != 1 {
			t.Errorf("bucket <= 0.5 count = %d, want 1", dp.BucketCounts[i])
		}
	}
}

func TestDefaultMetrics_Singleton(t *testing.T) {
	a := DefaultMetrics()
	b := DefaultMetrics()
	if a != b {
		t.Error("DefaultMetrics returned different pointers")
	}
}
