// Command ocrlite watches a region of a game screenshot, recognises the
// dialogue text in it, translates new lines and writes them to a session
// transcript.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/ocrlite/internal/config"
	"github.com/MrWong99/ocrlite/internal/discord"
	"github.com/MrWong99/ocrlite/internal/gateway"
	"github.com/MrWong99/ocrlite/internal/health"
	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/internal/overlay"
	"github.com/MrWong99/ocrlite/internal/pipeline"
	"github.com/MrWong99/ocrlite/internal/resilience"
	"github.com/MrWong99/ocrlite/internal/transcript"
	"github.com/MrWong99/ocrlite/internal/transcript/pgstore"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = "dev"

const (
	defaultOverlayPath = "/ws"
	shutdownTimeout    = 15 * time.Second
)

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	autostart := flag.Bool("autostart", true, "start the OCR loop immediately")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "ocrlite: config file %q not found, copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "ocrlite: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	var level slog.LevelVar
	level.Set(slogLevel(cfg.Server.LogLevel))
	slog.SetDefault(slog.New(observe.NewTraceHandler(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &level}))))

	slog.Info("ocrlite starting",
		"version", version,
		"config", *configPath,
		"listen_addr", cfg.Server.ListenAddr,
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Telemetry ─────────────────────────────────────────────────────────────
	telemetry, err := observe.InitProvider(ctx, observe.ProviderConfig{ServiceVersion: version})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(sctx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Collaborators ─────────────────────────────────────────────────────────
	reg := config.NewRegistry()
	registerBuiltinProviders(reg)
	source, recognizer, err := buildCollaborators(cfg, reg)
	if err != nil {
		slog.Error("failed to build providers", "err", err)
		return 1
	}

	// ── Transcript mirror (optional) ──────────────────────────────────────────
	var sinks []transcript.Sink
	var checkers []health.Checker
	if dsn := cfg.Transcript.PostgresDSN; dsn != "" {
		store, err := pgstore.NewStore(ctx, dsn)
		if err != nil {
			slog.Error("failed to connect transcript mirror", "err", err)
			return 1
		}
		defer store.Close()
		sinks = append(sinks, store)
		checkers = append(checkers, health.Ping("transcript_store", store).AsOptional())
		slog.Info("transcript mirror connected")
	}

	// ── Observers ─────────────────────────────────────────────────────────────
	observers := []pipeline.Observer{logEvent}

	var hub *overlay.Hub
	if cfg.Overlay.Enabled {
		hub = overlay.New(overlay.WithMetrics(metrics))
		defer hub.Close()
		observers = append(observers, hub.Observe)
	}

	var relay *discord.Relay
	if cfg.Discord.Enabled() {
		session, err := discord.Connect(cfg.Discord.Token)
		if err != nil {
			slog.Error("failed to connect to Discord", "err", err)
			return 1
		}
		defer session.Close()
		relay = discord.NewRelay(session, cfg.Discord.ChannelID)
		observers = append(observers, relay.Observe)
		slog.Info("discord relay connected", "channel_id", cfg.Discord.ChannelID)
	}
	observer := pipeline.Fanout(observers...)

	// ── Pipeline ──────────────────────────────────────────────────────────────
	frames := pipeline.NewFrameBuffer(cfg.Capture.Region.Rect())
	orch, err := pipeline.New(pipeline.Deps{
		Source:         source,
		Recognizer:     recognizer,
		Frames:         frames,
		Observer:       observer,
		Metrics:        metrics,
		GatewayOptions: gatewayOptions(cfg),
	}, pipelineConfig(cfg, sinks))
	if err != nil {
		slog.Error("failed to initialise pipeline", "err", err)
		return 1
	}
	producer := pipeline.NewProducer(source, frames,
		pipeline.WithPollInterval(cfg.Capture.PollInterval),
		pipeline.WithProducerObserver(observer),
		pipeline.WithProducerMetrics(metrics),
	)

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(next *config.Config, d config.ConfigDiff) {
		applyConfigChange(next, d, &level, orch, sinks)
	})
	if err != nil {
		slog.Error("failed to watch config", "err", err)
		return 1
	}

	printStartupSummary(cfg, source.Descriptor().Title, recognizer.Name())

	// ── Run ───────────────────────────────────────────────────────────────────
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return producer.Run(gctx) })
	g.Go(func() error { return watcher.Run(gctx) })
	g.Go(func() error { return reloadOnHangup(gctx, watcher) })
	if relay != nil {
		g.Go(func() error { return relay.Run(gctx) })
	}

	if addr := cfg.Server.ListenAddr; addr != "" {
		mux := http.NewServeMux()
		checkers = append(checkers,
			health.PipelineRunning(orch),
			health.FrameFresh(frames, 10*time.Second).AsOptional(),
		)
		health.New(checkers).Register(mux)
		mux.Handle("GET /metrics", telemetry.Handler())
		(&controller{orch: orch}).register(mux)
		if hub != nil {
			path := cfg.Overlay.Path
			if path == "" {
				path = defaultOverlayPath
			}
			mux.Handle("GET "+path, hub)
		}

		srv := &http.Server{
			Addr:              addr,
			Handler:           observe.Middleware(metrics)(mux),
			ReadHeaderTimeout: 10 * time.Second,
		}
		g.Go(func() error {
			slog.Info("http server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(sctx)
		})
	}

	if *autostart {
		if err := orch.Start(ctx); err != nil {
			slog.Error("failed to start OCR loop", "err", err)
			if cfg.Server.ListenAddr == "" {
				stop()
				_ = g.Wait()
				return 1
			}
		}
	}

	slog.Info("ocrlite ready, press Ctrl+C to shut down")

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	<-gctx.Done()
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := orch.Stop(shutdownCtx); err != nil && !errors.Is(err, pipeline.ErrNotRunning) {
		slog.Warn("pipeline stop error", "err", err)
	}

	if err := g.Wait(); err != nil {
		slog.Error("run error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// pipelineConfig maps the loaded configuration onto the per-run settings of
// the orchestrator.
func pipelineConfig(cfg *config.Config, sinks []transcript.Sink) pipeline.Config {
	topts := []transcript.Option{
		transcript.WithSourceOnly(cfg.Transcript.SourceOnlyOrDefault()),
		transcript.WithWindowMergeGap(cfg.Transcript.WindowMergeGap),
	}
	if t := cfg.Transcript.SameWindowSimilarity; t > 0 {
		topts = append(topts, transcript.WithSameWindowSimilarity(t))
	}
	if len(sinks) > 0 {
		topts = append(topts, transcript.WithSinks(sinks...))
	}
	return pipeline.Config{
		Translation:       cfg.Translation.Settings(),
		Interval:          cfg.Pipeline.Interval,
		StopTimeout:       cfg.Pipeline.StopTimeout,
		DedupThreshold:    cfg.Pipeline.SimilarityThreshold,
		DedupMinInterval:  cfg.Pipeline.MinInterval,
		LogDir:            cfg.Transcript.Directory,
		TranscriptOptions: topts,
		DisplaySourceOnly: cfg.Pipeline.DisplaySourceOnly,
	}
}

// gatewayOptions builds the translator options shared by every run.
func gatewayOptions(cfg *config.Config) []gateway.Option {
	var opts []gateway.Option
	if d := cfg.Translation.Timeout; d > 0 {
		opts = append(opts, gateway.WithTimeout(d))
	}
	cb := cfg.Translation.CircuitBreaker
	opts = append(opts, gateway.WithCircuitBreaker(resilience.CircuitBreakerConfig{
		MaxFailures:  cb.MaxFailures,
		ResetTimeout: cb.ResetTimeout,
	}))
	return opts
}

// reloadOnHangup re-reads the config file on every SIGHUP until ctx is done.
func reloadOnHangup(ctx context.Context, w *config.Watcher) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-hup:
			changed, err := w.Reload()
			if err != nil {
				slog.Warn("config reload failed, keeping previous config", "err", err)
				continue
			}
			slog.Info("config reloaded on SIGHUP", "changed", changed)
		}
	}
}

// applyConfigChange applies the hot-reloadable parts of a changed config and
// stages the rest for the next pipeline start.
func applyConfigChange(next *config.Config, d config.ConfigDiff, level *slog.LevelVar, orch *pipeline.Orchestrator, sinks []transcript.Sink) {
	if d.LogLevelChanged {
		level.Set(slogLevel(d.NewLogLevel))
		slog.Info("log level changed", "level", d.NewLogLevel)
	}
	if d.RegionChanged {
		if d.NewRegion.IsZero() {
			orch.Frames().ResetRegion()
		} else {
			orch.Frames().SetRegion(d.NewRegion.Rect())
		}
		slog.Info("region changed", "region", orch.Frames().Region())
	}
	if d.IntervalChanged {
		orch.SetInterval(d.NewInterval)
		slog.Info("loop interval changed", "interval", orch.Interval())
	}
	if len(d.RestartRequired) > 0 {
		orch.SetConfig(pipelineConfig(next, sinks))
		slog.Warn("config sections changed; translation and pipeline settings apply on the next start, others need a restart",
			"sections", d.RestartRequired)
	}
}

// logEvent is the observer that mirrors pipeline events into the log.
func logEvent(e pipeline.Event) {
	switch e.Kind {
	case pipeline.EventEntry:
		if e.Entry == nil {
			return
		}
		slog.Info("dialogue",
			"entry_id", e.Entry.EntryID,
			"window_id", e.Entry.DialogueWindowID,
			"source", e.Entry.SourceText,
			"translated", e.Entry.TranslatedText,
		)
	case pipeline.EventStatus:
		slog.Info("status", "message", e.Message)
	case pipeline.EventState:
		slog.Debug("pipeline state", "state", e.State, "session_dir", e.SessionDir)
	}
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config, sourceTitle, recognizer string) {
	translator := cfg.Translation.Provider
	if translator == "" {
		translator = "none"
	}
	fmt.Println("╔═══════════════════════════════════════╗")
	fmt.Println("║         ocrlite — startup summary     ║")
	fmt.Println("╠═══════════════════════════════════════╣")
	printRow("Source", sourceTitle)
	printRow("Recognizer", recognizer)
	printRow("Translator", translator)
	printRow("Languages", cfg.Translation.SourceLang+" → "+cfg.Translation.TargetLang)
	printRow("Overlay", enabled(cfg.Overlay.Enabled))
	printRow("Discord", enabled(cfg.Discord.Enabled()))
	printRow("Postgres", enabled(cfg.Transcript.PostgresDSN != ""))
	if cfg.Server.ListenAddr != "" {
		printRow("Listen addr", cfg.Server.ListenAddr)
	}
	fmt.Println("╚═══════════════════════════════════════╝")
}

func printRow(kind, value string) {
	if value == "" {
		value = "(not configured)"
	}
	if r := []rune(value); len(r) > 19 {
		value = string(r[:18]) + "…"
	}
	fmt.Printf("║  %-12s    : %-19s ║\n", kind, value)
}

func enabled(on bool) string {
	if on {
		return "enabled"
	}
	return "(disabled)"
}

// ── Logger ─────────────────────────────────────────────────────────────────────

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
