package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func pass(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, h *Handler, path string) (int, report) {
	t.Helper()
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	var rep report
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decode %s: %v", path, err)
	}
	return rec.Code, rep
}

func TestHealthz(t *testing.T) {
	h := New([]Checker{{Name: "pipeline", Check: failWith("idle")}})
	code, rep := get(t, h, "/healthz")
	if code != http.StatusOK || rep.Status != StatusOK {
		t.Errorf("healthz = %d %q, want 200 ok regardless of checks", code, rep.Status)
	}
}

func TestReadyz(t *testing.T) {
	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantFailed []string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "pipeline", Check: pass},
				{Name: "frames", Check: pass, Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "optional failure degrades",
			checkers: []Checker{
				{Name: "pipeline", Check: pass},
				Checker{Name: "transcript_store", Check: failWith("connection refused")}.AsOptional(),
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantFailed: []string{"transcript_store"},
		},
		{
			name: "required failure",
			checkers: []Checker{
				{Name: "pipeline", Check: failWith("state is idle")},
				{Name: "frames", Check: failWith("no frame captured yet"), Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantFailed: []string{"pipeline", "frames"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, rep := get(t, New(tt.checkers), "/readyz")
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			if rep.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", rep.Status, tt.wantStatus)
			}
			if len(rep.Checks) != len(tt.checkers) {
				t.Fatalf("checks = %v, want %d entries", rep.Checks, len(tt.checkers))
			}
			failed := map[string]bool{}
			for _, name := range tt.wantFailed {
				failed[name] = true
			}
			for name, res := range rep.Checks {
				if got := res.Status == StatusFail; got != failed[name] {
					t.Errorf("check %q = %+v, want failed=%v", name, res, failed[name])
				}
				if failed[name] && res.Error == "" {
					t.Errorf("check %q failed without an error message", name)
				}
			}
		})
	}
}

func TestReadyz_ChecksRunConcurrently(t *testing.T) {
	var inFlight, peak atomic.Int32
	slow := func(context.Context) error {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		inFlight.Add(-1)
		return nil
	}
	h := New([]Checker{{Name: "a", Check: slow}, {Name: "b", Check: slow}, {Name: "c", Check: slow}})

	if _, rep := get(t, h, "/readyz"); rep.Status != StatusOK {
		t.Fatalf("status = %q", rep.Status)
	}
	if peak.Load() < 2 {
		t.Errorf("peak concurrency = %d, want checks to overlap", peak.Load())
	}
}

func TestReadyz_CheckTimeout(t *testing.T) {
	h := New([]Checker{{
		Name: "transcript_store",
		Check: func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}}, WithCheckTimeout(20*time.Millisecond))

	start := time.Now()
	code, rep := get(t, h, "/readyz")
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("readyz took %s, want the check deadline to apply", elapsed)
	}
	if code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", code)
	}
	if res := rep.Checks["transcript_store"]; res.Error != context.DeadlineExceeded.Error() {
		t.Errorf("error = %q, want deadline exceeded", res.Error)
	}
}
