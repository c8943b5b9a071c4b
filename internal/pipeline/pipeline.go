// Package pipeline runs the recognition loop: it crops the latest captured
// frame to the region of interest, recognises the text, suppresses repeats,
// translates what is new, writes it to the session transcript and notifies
// observers.
//
// An [Orchestrator] moves through Idle → Running → Stopping → Idle. Start
// refuses to allocate anything unless an image source is attached, the region
// of interest has a positive area and the translation settings validate. Each
// run owns a fresh deduplicator, translation provider and transcript writer.
//
// The loop is strictly sequential: no two recognise, translate or log calls
// of one run ever overlap. The only other actor touching shared state is the
// capture [Producer], which writes frames into the [FrameBuffer].
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrWong99/ocrlite/internal/dedup"
	"github.com/MrWong99/ocrlite/internal/gateway"
	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/internal/transcript"
	"github.com/MrWong99/ocrlite/pkg/provider/capture"
	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

const (
	// DefaultInterval is the pause between two loop cycles.
	DefaultInterval = 350 * time.Millisecond

	// MinInterval and MaxInterval bound the configurable cycle interval.
	MinInterval = 100 * time.Millisecond
	MaxInterval = 5000 * time.Millisecond

	// noFrameWait is the pause before re-checking for a first frame.
	noFrameWait = 120 * time.Millisecond

	defaultStopTimeout = time.Second
)

var (
	// ErrAlreadyRunning is returned by Start when the orchestrator is not Idle.
	ErrAlreadyRunning = errors.New("pipeline: OCR loop is already running")

	// ErrNotRunning is returned by Stop when the orchestrator is not Running.
	ErrNotRunning = errors.New("pipeline: OCR loop is not running")

	// ErrStillStopping is returned by Start while the loop of a run whose
	// Stop timed out has not exited yet.
	ErrStillStopping = errors.New("pipeline: OCR loop is still stopping")
)

// State is a lifecycle state of the [Orchestrator].
type State string

const (
	StateIdle     State = "idle"
	StateRunning  State = "running"
	StateStopping State = "stopping"
)

// ValidationError is a Start precondition failure. Message is suitable for
// showing to the user as-is.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "pipeline: " + e.Message
}

// ClampInterval bounds d to [MinInterval, MaxInterval]. Non-positive values
// select [DefaultInterval].
func ClampInterval(d time.Duration) time.Duration {
	if d <= 0 {
		return DefaultInterval
	}
	return min(max(d, MinInterval), MaxInterval)
}

// Config holds the per-run settings of an [Orchestrator]. It is copied at
// Start; changes take effect on the next run unless a setter says otherwise.
type Config struct {
	// Translation selects and configures the translation provider.
	Translation gateway.Settings

	// Interval is the pause between cycles, bounded by [ClampInterval].
	// Adjustable while running via [Orchestrator.SetInterval].
	Interval time.Duration

	// StopTimeout bounds how long Stop waits for the loop to exit. Default: 1s.
	StopTimeout time.Duration

	// DedupThreshold and DedupMinInterval configure the deduplicator. Zero
	// values select the deduplicator defaults.
	DedupThreshold   float64
	DedupMinInterval time.Duration

	// LogDir is the transcript root directory, resolved by
	// [transcript.ResolveRoot].
	LogDir string

	// TranscriptOptions are passed to every new [transcript.Writer].
	TranscriptOptions []transcript.Option

	// DisplaySourceOnly shows only the source text in entry payloads even
	// when a translation provider is active.
	DisplaySourceOnly bool
}

// Deps are the collaborators of an [Orchestrator].
type Deps struct {
	// Source is the attached image source. A nil Source refuses Start.
	Source capture.Source

	// Recognizer turns cropped frames into text. Required.
	Recognizer ocr.Recognizer

	// Frames is the buffer the capture producer fills. Required.
	Frames *FrameBuffer

	// Observer receives every event. Optional.
	Observer Observer

	// Metrics records loop instruments. Default: [observe.DefaultMetrics].
	Metrics *observe.Metrics

	// GatewayOptions are passed to the translator factory on every Start.
	GatewayOptions []gateway.Option

	// NewTranslator builds the translation provider of a run from validated
	// settings. Default: [gateway.New].
	NewTranslator TranslatorFactory

	// Now overrides the clock used for deduplication and events.
	Now func() time.Time
}

// TranslatorFactory builds a translation provider from settings.
type TranslatorFactory func(s gateway.Settings, opts ...gateway.Option) (translate.Provider, error)

// run is the state owned by one Running period.
type run struct {
	cancel     context.CancelFunc
	done       chan struct{}
	provider   translate.Provider
	writer     *transcript.Writer
	dedup      *dedup.Deduplicator
	sourceOnly bool
}

// Orchestrator owns the recognition loop lifecycle.
//
// All exported methods are safe for concurrent use.
type Orchestrator struct {
	source     capture.Source
	recognizer ocr.Recognizer
	frames     *FrameBuffer
	observer   Observer
	metrics    *observe.Metrics
	gwOpts     []gateway.Option
	newTrans   TranslatorFactory
	now        func() time.Time

	interval atomic.Int64

	mu    sync.Mutex
	cfg   Config
	state State
	cur   *run

	// lastDone is closed once the previous run's loop has exited.
	lastDone <-chan struct{}
}

// New creates an Idle orchestrator.
func New(deps Deps, cfg Config) (*Orchestrator, error) {
	if deps.Recognizer == nil {
		return nil, errors.New("pipeline: recognizer is required")
	}
	if deps.Frames == nil {
		return nil, errors.New("pipeline: frame buffer is required")
	}
	o := &Orchestrator{
		source:     deps.Source,
		recognizer: deps.Recognizer,
		frames:     deps.Frames,
		observer:   deps.Observer,
		metrics:    deps.Metrics,
		gwOpts:     deps.GatewayOptions,
		newTrans:   deps.NewTranslator,
		now:        deps.Now,
		cfg:        cfg,
		state:      StateIdle,
	}
	if o.observer == nil {
		o.observer = func(Event) {}
	}
	if o.metrics == nil {
		o.metrics = observe.DefaultMetrics()
	}
	if o.now == nil {
		o.now = time.Now
	}
	if o.newTrans == nil {
		o.newTrans = gateway.New
	}
	if o.cfg.StopTimeout <= 0 {
		o.cfg.StopTimeout = defaultStopTimeout
	}
	o.SetInterval(cfg.Interval)
	return o, nil
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// SessionDir returns the transcript directory of the current run, or "" when
// not Running.
func (o *Orchestrator) SessionDir() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.cur == nil {
		return ""
	}
	return o.cur.writer.Dir()
}

// Frames returns the frame buffer shared with the capture producer.
func (o *Orchestrator) Frames() *FrameBuffer {
	return o.frames
}

// Interval returns the current cycle interval.
func (o *Orchestrator) Interval() time.Duration {
	return time.Duration(o.interval.Load())
}

// SetInterval changes the cycle interval. It applies from the next pause on,
// also for a running loop.
func (o *Orchestrator) SetInterval(d time.Duration) {
	o.interval.Store(int64(ClampInterval(d)))
}

// SetConfig replaces the configuration used by the next Start. The interval
// is applied immediately.
func (o *Orchestrator) SetConfig(cfg Config) {
	o.mu.Lock()
	if cfg.StopTimeout <= 0 {
		cfg.StopTimeout = defaultStopTimeout
	}
	o.cfg = cfg
	o.mu.Unlock()
	o.SetInterval(cfg.Interval)
}

// validate checks the Start preconditions without allocating anything.
func (o *Orchestrator) validate(cfg Config) error {
	if o.source == nil {
		return &ValidationError{Message: "Attach an image source first."}
	}
	if err := gateway.Validate(cfg.Translation); err != nil {
		var verr *gateway.ValidationError
		if errors.As(err, &verr) {
			return &ValidationError{Message: verr.Message}
		}
		return err
	}
	if r := o.frames.Region(); r.Dx() <= 0 || r.Dy() <= 0 {
		return &ValidationError{Message: "Region of interest is not set. Select the dialogue area first."}
	}
	return nil
}

// Start validates the preconditions, opens a new transcript session and
// starts the loop. On any error the orchestrator stays Idle and no session
// directory is created by a validation failure.
//
// The loop outlives ctx's cancellation; it runs until Stop. Values of ctx are
// inherited by the loop.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateIdle {
		return ErrAlreadyRunning
	}
	if o.lastDone != nil {
		select {
		case <-o.lastDone:
			o.lastDone = nil
		default:
			return ErrStillStopping
		}
	}
	cfg := o.cfg
	if err := o.validate(cfg); err != nil {
		return err
	}

	opts := append([]gateway.Option{gateway.WithMetrics(o.metrics)}, o.gwOpts...)
	provider, err := o.newTrans(cfg.Translation, opts...)
	if err != nil {
		return fmt.Errorf("pipeline: build translator: %w", err)
	}

	active, err := o.recognizer.Init(ctx, cfg.Translation.SourceLang)
	if err != nil {
		return fmt.Errorf("pipeline: init recognizer: %w", err)
	}

	root, err := transcript.ResolveRoot(cfg.LogDir)
	if err != nil {
		return fmt.Errorf("pipeline: %w", err)
	}
	desc := o.source.Descriptor()
	session := transcript.Session{
		SourceLang: cfg.Translation.SourceLang,
		TargetLang: cfg.Translation.TargetLang,
		Engine:     o.recognizer.Name() + "+" + provider.Name(),
		Source:     transcript.AttachedSource{Handle: desc.Handle, Title: desc.Title},
		Region:     transcript.RegionFromRect(o.frames.Region()),
	}
	writer, err := transcript.NewWriter(root, session, cfg.TranscriptOptions...)
	if err != nil {
		return fmt.Errorf("pipeline: open transcript: %w", err)
	}

	var dopts []dedup.Option
	if cfg.DedupThreshold > 0 {
		dopts = append(dopts, dedup.WithSimilarityThreshold(cfg.DedupThreshold))
	}
	if cfg.DedupMinInterval > 0 {
		dopts = append(dopts, dedup.WithMinInterval(cfg.DedupMinInterval))
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		cancel:     cancel,
		done:       make(chan struct{}),
		provider:   provider,
		writer:     writer,
		dedup:      dedup.New(dopts...),
		sourceOnly: cfg.DisplaySourceOnly || passthroughKind(cfg.Translation.Provider),
	}
	o.cur = r
	o.state = StateRunning
	o.metrics.PipelineRunning.Add(ctx, 1)

	slog.Info("pipeline started",
		"session_dir", writer.Dir(),
		"engine", session.Engine,
		"recognizer_lang", active,
		"translation", cfg.Translation.String(),
		"region", session.Region.String(),
	)
	o.emit(Event{Kind: EventState, State: StateRunning, SessionDir: writer.Dir()})
	o.status(fmt.Sprintf("OCR started (%s). Session: %s", provider.Name(), writer.Dir()))

	go o.loop(runCtx, r)
	return nil
}

// Stop cancels the loop, waits up to the stop timeout for it to exit, closes
// the transcript and returns to Idle. The orchestrator returns to Idle even
// when the wait times out or ctx ends first; the loop is never forced.
func (o *Orchestrator) Stop(ctx context.Context) error {
	o.mu.Lock()
	if o.state != StateRunning {
		o.mu.Unlock()
		return ErrNotRunning
	}
	r := o.cur
	timeout := o.cfg.StopTimeout
	o.state = StateStopping
	o.mu.Unlock()

	o.emit(Event{Kind: EventState, State: StateStopping, SessionDir: r.writer.Dir()})
	r.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-r.done:
	case <-timer.C:
		slog.Warn("pipeline: loop did not exit within stop timeout", "timeout", timeout)
	case <-ctx.Done():
		slog.Warn("pipeline: stop abandoned wait", "err", ctx.Err())
	}

	dir := r.writer.Dir()
	if err := r.writer.Close(); err != nil {
		slog.Warn("pipeline: close transcript", "session_dir", dir, "err", err)
	}

	o.mu.Lock()
	o.cur = nil
	o.lastDone = r.done
	o.state = StateIdle
	o.mu.Unlock()
	o.metrics.PipelineRunning.Add(context.WithoutCancel(ctx), -1)

	slog.Info("pipeline stopped", "session_dir", dir)
	o.emit(Event{Kind: EventState, State: StateIdle, SessionDir: dir})
	o.status("OCR stopped.")
	return nil
}

func passthroughKind(k gateway.Kind) bool {
	return k == "" || k == gateway.KindNone
}

func (o *Orchestrator) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = o.now()
	}
	o.observer(e)
}

func (o *Orchestrator) status(msg string) {
	o.emit(Event{Kind: EventStatus, Message: msg})
}
