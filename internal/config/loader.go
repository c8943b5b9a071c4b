package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/ocrlite/internal/gateway"
)

// ValidProviderNames lists known implementation names per collaborator kind.
// Used by [Validate] to warn about unrecognised names.
var ValidProviderNames = map[string][]string{
	"capture":    {"file"},
	"recognizer": {"tesseract", "openai-vision"},
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
}

var knownTranslators = []gateway.Kind{
	gateway.KindNone, gateway.KindDeepL, gateway.KindGoogle, gateway.KindPapago, gateway.KindLLM,
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r and validates the result.
// Unknown keys are rejected. An empty document yields the zero config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
// Translator credentials are not checked here; a pipeline start reports
// missing credentials to the user.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Capture
	if strings.TrimSpace(cfg.Capture.Source.Name) == "" {
		errs = append(errs, errors.New("capture.source.name is required"))
	}
	if cfg.Capture.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("capture.poll_interval %s must not be negative", cfg.Capture.PollInterval))
	}
	if r := cfg.Capture.Region; r.X < 0 || r.Y < 0 || r.Width < 0 || r.Height < 0 {
		errs = append(errs, fmt.Errorf("capture.region %d,%d,%d,%d must not be negative", r.X, r.Y, r.Width, r.Height))
	}
	validateProviderName("capture", cfg.Capture.Source.Name)

	// Recognizer
	if strings.TrimSpace(cfg.Recognizer.Name) == "" {
		errs = append(errs, errors.New("recognizer.name is required"))
	}
	validateProviderName("recognizer", cfg.Recognizer.Name)
	for i, fb := range cfg.RecognizerFallbacks {
		if strings.TrimSpace(fb.Name) == "" {
			errs = append(errs, fmt.Errorf("recognizer_fallbacks[%d].name is required", i))
		}
		validateProviderName("recognizer", fb.Name)
	}

	// Translation
	kind := gateway.ParseKind(cfg.Translation.Provider)
	if !slices.Contains(knownTranslators, kind) {
		errs = append(errs, fmt.Errorf("translation.provider %q is invalid; valid values: none, deepl, google, papago, llm", cfg.Translation.Provider))
	}
	if kind == gateway.KindLLM {
		validateProviderName("llm", cfg.Translation.LLM.Backend)
	}
	if cfg.Translation.Timeout < 0 {
		errs = append(errs, fmt.Errorf("translation.timeout %s must not be negative", cfg.Translation.Timeout))
	}
	if cfg.Translation.CircuitBreaker.MaxFailures < 0 {
		errs = append(errs, errors.New("translation.circuit_breaker.max_failures must not be negative"))
	}

	// Pipeline
	if cfg.Pipeline.Interval < 0 {
		errs = append(errs, fmt.Errorf("pipeline.interval %s must not be negative", cfg.Pipeline.Interval))
	}
	if t := cfg.Pipeline.SimilarityThreshold; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("pipeline.similarity_threshold %.2f is out of range [0, 1]", t))
	}
	if cfg.Pipeline.MinInterval < 0 {
		errs = append(errs, fmt.Errorf("pipeline.min_interval %s must not be negative", cfg.Pipeline.MinInterval))
	}

	// Transcript
	if t := cfg.Transcript.SameWindowSimilarity; t < 0 || t > 1 {
		errs = append(errs, fmt.Errorf("transcript.same_window_similarity %.2f is out of range [0, 1]", t))
	}
	if cfg.Transcript.WindowMergeGap < 0 {
		errs = append(errs, fmt.Errorf("transcript.window_merge_gap %s must not be negative", cfg.Transcript.WindowMergeGap))
	}
	if cfg.Transcript.PostgresDSN == "" {
		slog.Debug("transcript.postgres_dsn is empty; entries are written to files only")
	}

	// Overlay
	if p := cfg.Overlay.Path; p != "" && !strings.HasPrefix(p, "/") {
		errs = append(errs, fmt.Errorf("overlay.path %q must start with /", p))
	}

	// Discord
	if (cfg.Discord.Token == "") != (cfg.Discord.ChannelID == "") {
		errs = append(errs, errors.New("discord.token and discord.channel_id must be set together"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name, may be a typo or third-party implementation",
		"kind", kind,
		"name", name,
		"known", known,
	)
}
