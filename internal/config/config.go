// Package config provides the configuration schema, loader, watcher and
// collaborator registry for ocrlite.
package config

import (
	"image"
	"time"

	"github.com/MrWong99/ocrlite/internal/gateway"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/google"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Capture     CaptureConfig     `yaml:"capture"`
	Recognizer  ProviderEntry     `yaml:"recognizer"`

	// RecognizerFallbacks are tried in order when the recognizer fails.
	RecognizerFallbacks []ProviderEntry `yaml:"recognizer_fallbacks"`

	Translation TranslationConfig `yaml:"translation"`
	Pipeline    PipelineConfig    `yaml:"pipeline"`
	Transcript  TranscriptConfig  `yaml:"transcript"`
	Overlay     OverlayConfig     `yaml:"overlay"`
	Discord     DiscordConfig     `yaml:"discord"`
}

// ServerConfig holds network and logging settings.
type ServerConfig struct {
	// ListenAddr is the TCP address of the HTTP surface (health, metrics,
	// overlay). Empty disables the HTTP server.
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity. Hot-reloadable.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProviderEntry is the common configuration block of a pluggable
// collaborator. The Name field is used to look up the constructor in the
// [Registry].
type ProviderEntry struct {
	// Name selects the registered implementation (e.g. "file", "tesseract").
	Name string `yaml:"name"`

	// APIKey is the authentication key for a remote service, if any.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the service's default endpoint.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model where the implementation has several.
	Model string `yaml:"model"`

	// Options holds implementation-specific values not covered by the
	// standard fields above.
	Options map[string]any `yaml:"options"`
}

// StringOption returns Options[key] if it is a string, or "".
func (e ProviderEntry) StringOption(key string) string {
	s, _ := e.Options[key].(string)
	return s
}

// IntOption returns Options[key] if it is an integer, or def.
func (e ProviderEntry) IntOption(key string, def int) int {
	switch v := e.Options[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}

// CaptureConfig configures the image source and frame polling.
type CaptureConfig struct {
	// Source selects the image source implementation.
	Source ProviderEntry `yaml:"source"`

	// PollInterval is the pause between two captures. Default: 120ms.
	PollInterval time.Duration `yaml:"poll_interval"`

	// Region is the initial region of interest in source pixels. A zero
	// region lets the first frame seed the default dialogue band.
	// Hot-reloadable.
	Region RegionConfig `yaml:"region"`
}

// RegionConfig is a rectangle in x/y/width/height form.
type RegionConfig struct {
	X      int `yaml:"x" json:"x"`
	Y      int `yaml:"y" json:"y"`
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// IsZero reports whether no region is configured.
func (r RegionConfig) IsZero() bool {
	return r == RegionConfig{}
}

// Rect converts r into an [image.Rectangle].
func (r RegionConfig) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// TranslationConfig selects and configures the translation provider.
// Changes take effect on the next pipeline start.
type TranslationConfig struct {
	// Provider is one of none, deepl, google, papago, llm. Empty means none.
	Provider string `yaml:"provider"`

	SourceLang string `yaml:"source_lang"`
	TargetLang string `yaml:"target_lang"`

	// Timeout bounds one translate round trip. Default: 12s.
	Timeout time.Duration `yaml:"timeout"`

	DeepL  DeepLConfig  `yaml:"deepl"`
	Google GoogleConfig `yaml:"google"`
	Papago PapagoConfig `yaml:"papago"`
	LLM    LLMConfig    `yaml:"llm"`

	CircuitBreaker CircuitBreakerConfig `yaml:"circuit_breaker"`
}

// DeepLConfig holds DeepL credentials.
type DeepLConfig struct {
	APIKey string `yaml:"api_key"`
}

// GoogleConfig holds Google Cloud Translation credentials. The refresh-token
// flow wins over a manual access token, which wins over an API key.
type GoogleConfig struct {
	APIKey       string `yaml:"api_key"`
	AccessToken  string `yaml:"access_token"`
	ProjectID    string `yaml:"project_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RefreshToken string `yaml:"refresh_token"`
}

// PapagoConfig holds Naver Papago credentials.
type PapagoConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// LLMConfig selects a chat model used as translator.
type LLMConfig struct {
	Backend string `yaml:"backend"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// CircuitBreakerConfig tunes the breaker around network providers. Zero
// values select the breaker defaults.
type CircuitBreakerConfig struct {
	MaxFailures  int           `yaml:"max_failures"`
	ResetTimeout time.Duration `yaml:"reset_timeout"`
}

// Settings converts the translation block into [gateway.Settings].
func (t TranslationConfig) Settings() gateway.Settings {
	return gateway.Settings{
		Provider:   gateway.ParseKind(t.Provider),
		SourceLang: t.SourceLang,
		TargetLang: t.TargetLang,
		DeepL:      gateway.DeepLSettings{APIKey: t.DeepL.APIKey},
		Google: google.Credentials{
			APIKey:       t.Google.APIKey,
			AccessToken:  t.Google.AccessToken,
			ProjectID:    t.Google.ProjectID,
			ClientID:     t.Google.ClientID,
			ClientSecret: t.Google.ClientSecret,
			RefreshToken: t.Google.RefreshToken,
		},
		Papago: gateway.PapagoSettings{
			ClientID:     t.Papago.ClientID,
			ClientSecret: t.Papago.ClientSecret,
		},
		LLM: gateway.LLMSettings{
			Backend: t.LLM.Backend,
			Model:   t.LLM.Model,
			APIKey:  t.LLM.APIKey,
			BaseURL: t.LLM.BaseURL,
		},
	}
}

// PipelineConfig tunes the recognition loop.
type PipelineConfig struct {
	// Interval is the pause between cycles, bounded to [100ms, 5s].
	// Default: 350ms. Hot-reloadable.
	Interval time.Duration `yaml:"interval"`

	// SimilarityThreshold is the deduplicator's repeat threshold.
	// Default: 0.93.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// MinInterval is the deduplicator's minimum time between emissions.
	// Default: 150ms.
	MinInterval time.Duration `yaml:"min_interval"`

	// StopTimeout bounds how long a stop waits for the loop. Default: 1s.
	StopTimeout time.Duration `yaml:"stop_timeout"`

	// DisplaySourceOnly shows only the recognised text to observers even when
	// a translator is active.
	DisplaySourceOnly bool `yaml:"display_source_only"`
}

// TranscriptConfig configures transcript persistence.
type TranscriptConfig struct {
	// Directory is the log root. Blank means "logs" under the working
	// directory.
	Directory string `yaml:"directory"`

	// SourceOnly omits translated lines from transcript.txt. Default: true.
	SourceOnly *bool `yaml:"source_only"`

	// WindowMergeGap is the pause that always opens a new dialogue window.
	// Default: 1.6s.
	WindowMergeGap time.Duration `yaml:"window_merge_gap"`

	// SameWindowSimilarity is the similarity below which entries split into
	// separate windows. Default: 0.72.
	SameWindowSimilarity float64 `yaml:"same_window_similarity"`

	// PostgresDSN enables the Postgres mirror of every entry when set.
	PostgresDSN string `yaml:"postgres_dsn"`
}

// SourceOnlyOrDefault resolves SourceOnly, defaulting to true.
func (t TranscriptConfig) SourceOnlyOrDefault() bool {
	if t.SourceOnly == nil {
		return true
	}
	return *t.SourceOnly
}

// OverlayConfig configures the WebSocket overlay feed.
type OverlayConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is the HTTP path of the WebSocket endpoint. Default: /ws.
	Path string `yaml:"path"`
}

// DiscordConfig configures the optional Discord relay. Both fields must be
// set to enable it.
type DiscordConfig struct {
	Token     string `yaml:"token"`
	ChannelID string `yaml:"channel_id"`
}

// Enabled reports whether the relay is configured.
func (d DiscordConfig) Enabled() bool {
	return d.Token != "" && d.ChannelID != ""
}
