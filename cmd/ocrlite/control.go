package main

import (
	"encoding/json"
	"errors"
	"image"
	"log/slog"
	"net/http"
	"time"

	"github.com/MrWong99/ocrlite/internal/config"
	"github.com/MrWong99/ocrlite/internal/pipeline"
)

// controller exposes the orchestrator's lifecycle and region over HTTP.
type controller struct {
	orch *pipeline.Orchestrator
}

// stateResponse is the body of every control response.
type stateResponse struct {
	State      pipeline.State      `json:"state"`
	SessionDir string              `json:"session_dir,omitempty"`
	Region     config.RegionConfig `json:"region"`
	IntervalMS int64               `json:"interval_ms"`
	HasFrame   bool                `json:"has_frame"`
	Message    string              `json:"message,omitempty"`
}

func (c *controller) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /pipeline", c.handleState)
	mux.HandleFunc("POST /pipeline/start", c.handleStart)
	mux.HandleFunc("POST /pipeline/stop", c.handleStop)
	mux.HandleFunc("PUT /pipeline/region", c.handleSetRegion)
	mux.HandleFunc("DELETE /pipeline/region", c.handleResetRegion)
	mux.HandleFunc("PUT /pipeline/interval", c.handleSetInterval)
}

func (c *controller) snapshot(msg string) stateResponse {
	frames := c.orch.Frames()
	r := frames.Region()
	return stateResponse{
		State:      c.orch.State(),
		SessionDir: c.orch.SessionDir(),
		Region:     config.RegionConfig{X: r.Min.X, Y: r.Min.Y, Width: r.Dx(), Height: r.Dy()},
		IntervalMS: c.orch.Interval().Milliseconds(),
		HasFrame:   frames.HasFrame(),
		Message:    msg,
	}
}

func (c *controller) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, c.snapshot(""))
}

func (c *controller) handleStart(w http.ResponseWriter, r *http.Request) {
	err := c.orch.Start(r.Context())
	var verr *pipeline.ValidationError
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, c.snapshot(""))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, c.snapshot(verr.Message))
	case errors.Is(err, pipeline.ErrAlreadyRunning), errors.Is(err, pipeline.ErrStillStopping):
		writeJSON(w, http.StatusConflict, c.snapshot(err.Error()))
	default:
		slog.Error("control: start failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, c.snapshot(err.Error()))
	}
}

func (c *controller) handleStop(w http.ResponseWriter, r *http.Request) {
	err := c.orch.Stop(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, c.snapshot(""))
	case errors.Is(err, pipeline.ErrNotRunning):
		writeJSON(w, http.StatusConflict, c.snapshot(err.Error()))
	default:
		slog.Error("control: stop failed", "err", err)
		writeJSON(w, http.StatusInternalServerError, c.snapshot(err.Error()))
	}
}

func (c *controller) handleSetRegion(w http.ResponseWriter, r *http.Request) {
	var body config.RegionConfig
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, c.snapshot("invalid region: "+err.Error()))
		return
	}
	if body.Width <= 0 || body.Height <= 0 {
		writeJSON(w, http.StatusUnprocessableEntity, c.snapshot("region width and height must be positive"))
		return
	}
	rect := body.Rect()
	frames := c.orch.Frames()
	if size := frames.FrameSize(); size != (image.Point{}) {
		rect = pipeline.ClampToBounds(rect, image.Rectangle{Max: size})
	}
	frames.SetRegion(rect)
	slog.Info("region updated", "region", rect)
	writeJSON(w, http.StatusOK, c.snapshot(""))
}

func (c *controller) handleResetRegion(w http.ResponseWriter, _ *http.Request) {
	c.orch.Frames().ResetRegion()
	writeJSON(w, http.StatusOK, c.snapshot(""))
}

func (c *controller) handleSetInterval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IntervalMS int64 `json:"interval_ms"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, c.snapshot("invalid interval: "+err.Error()))
		return
	}
	c.orch.SetInterval(time.Duration(body.IntervalMS) * time.Millisecond)
	writeJSON(w, http.StatusOK, c.snapshot(""))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("control: encode response", "err", err)
	}
}
