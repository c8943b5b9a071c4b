// Package health serves the liveness and readiness probes of the ocrlite HTTP
// surface.
//
// GET /healthz always answers 200 while the process can serve HTTP. GET
// /readyz runs every registered [Checker] concurrently and answers 200 when
// all required checks pass. A failing optional check only downgrades the
// reported status to "degraded".
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
)

const defaultCheckTimeout = 5 * time.Second

// Status values reported by /readyz.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Checker is a named readiness probe. Check returns nil when healthy and must
// honour ctx.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error

	// Optional checks cannot make the service unready.
	Optional bool
}

// AsOptional returns a copy of c marked optional.
func (c Checker) AsOptional() Checker {
	c.Optional = true
	return c
}

// checkResult is one entry of the "checks" map.
type checkResult struct {
	Status     string `json:"status"`
	Error      string `json:"error,omitempty"`
	Optional   bool   `json:"optional,omitempty"`
	DurationMS int64  `json:"duration_ms"`
}

type report struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

// Option configures a [Handler].
type Option func(*Handler)

// WithCheckTimeout bounds each check. Default: 5s.
func WithCheckTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// Handler serves the probes. The checker list is fixed at construction.
type Handler struct {
	checkers []Checker
	timeout  time.Duration
}

// New returns a handler evaluating checkers on every /readyz request.
func New(checkers []Checker, opts ...Option) *Handler {
	h := &Handler{
		checkers: append([]Checker(nil), checkers...),
		timeout:  defaultCheckTimeout,
	}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds GET /healthz and GET /readyz to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// Healthz is the liveness probe.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, report{Status: StatusOK})
}

// Readyz is the readiness probe. It answers 503 when a required check fails.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := h.evaluate(r.Context())
	code := http.StatusOK
	if rep.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, rep)
}

// evaluate runs all checks concurrently, each under its own deadline.
func (h *Handler) evaluate(ctx context.Context) report {
	results := make([]checkResult, len(h.checkers))
	var g errgroup.Group
	for i, c := range h.checkers {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			start := time.Now()
			err := c.Check(cctx)
			res := checkResult{
				Status:     StatusOK,
				Optional:   c.Optional,
				DurationMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				res.Status = StatusFail
				res.Error = err.Error()
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	rep := report{Status: StatusOK, Checks: make(map[string]checkResult, len(results))}
	for i, res := range results {
		rep.Checks[h.checkers[i].Name] = res
		switch {
		case res.Status == StatusOK:
		case res.Optional:
			if rep.Status == StatusOK {
				rep.Status = StatusDegraded
			}
		default:
			rep.Status = StatusFail
		}
	}
	return rep
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
