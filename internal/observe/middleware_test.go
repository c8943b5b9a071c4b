package observe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// newTestServer wraps a mux with two control-style routes in Middleware.
func newTestServer(t *testing.T) (http.Handler, *sdkmetric.ManualReader, *tracetest.InMemoryExporter) {
	t.Helper()
	exp := useTestTracer(t)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pipeline", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("PUT /sessions/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	return Middleware(m)(mux), reader, exp
}

func TestMiddleware_Routes(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		wantRoute  string
		wantStatus int
	}{
		{name: "static route", method: "GET", path: "/pipeline", wantRoute: "GET /pipeline", wantStatus: 200},
		{name: "wildcard route", method: "PUT", path: "/sessions/2026-03-01", wantRoute: "PUT /sessions/{id}", wantStatus: 500},
		{name: "no route", method: "GET", path: "/nope", wantRoute: unmatchedRoute, wantStatus: 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, reader, exp := newTestServer(t)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}

			spans := exp.GetSpans()
			if len(spans) != 1 {
				t.Fatalf("recorded %d spans, want 1", len(spans))
			}
			if spans[0].Name != tt.wantRoute {
				t.Errorf("span name = %q, want %q", spans[0].Name, tt.wantRoute)
			}

			met := findMetric(collect(t, reader), "ocrlite.http.request.duration")
			if met == nil {
				t.Fatal("duration histogram not recorded")
			}
			hist := met.Data.(metricdata.Histogram[float64])
			if len(hist.DataPoints) != 1 {
				t.Fatalf("data points = %d, want 1", len(hist.DataPoints))
			}
			attrs := hist.DataPoints[0].Attributes
			if v, _ := attrs.Value(attribute.Key("route")); v.AsString() != tt.wantRoute {
				t.Errorf("route attribute = %q, want %q", v.AsString(), tt.wantRoute)
			}
			if v, _ := attrs.Value(attribute.Key("status")); v.AsInt64() != int64(tt.wantStatus) {
				t.Errorf("status attribute = %d, want %d", v.AsInt64(), tt.wantStatus)
			}
		})
	}
}

func TestMiddleware_TraceHeader(t *testing.T) {
	tests := []struct {
		name        string
		traceparent string
		wantID      string
	}{
		{name: "new trace"},
		{
			name:        "continued trace",
			traceparent: "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01",
			wantID:      "4bf92f3577b34da6a3ce929d0e0e4736",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _, _ := newTestServer(t)
			req := httptest.NewRequest("GET", "/pipeline", nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			got := rec.Header().Get(TraceHeader)
			if len(got) != 32 {
				t.Fatalf("%s = %q, want a 32 char trace ID", TraceHeader, got)
			}
			if tt.wantID != "" && got != tt.wantID {
				t.Errorf("%s = %q, want %q", TraceHeader, got, tt.wantID)
			}
		})
	}
}

func TestMiddleware_AllowsHijack(t *testing.T) {
	m, _ := newTestMetrics(t)

	hijacked := make(chan error, 1)
	srv := httptest.NewServer(Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		conn, _, err := http.NewResponseController(w).Hijack()
		if err == nil {
			conn.Write([]byte("HTTP/1.1 204 No Content\r\nConnection: close\r\n\r\n"))
			conn.Close()
		}
		hijacked <- err
	})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws")
	if err == nil {
		resp.Body.Close()
	}
	if err := <-hijacked; err != nil {
		t.Fatalf("Hijack through middleware: %v", err)
	}
}
