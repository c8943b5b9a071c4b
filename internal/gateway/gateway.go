// Package gateway selects, validates and builds the translation provider for
// one pipeline run.
//
// [Validate] checks the credential fields of the selected provider and
// returns a [*ValidationError] carrying a user-facing message when they are
// incomplete. [New] validates first and only then constructs anything, so a
// refused start leaves no partial provider state behind. The returned
// provider is instrumented and, for network backends, guarded by a circuit
// breaker.
package gateway

import (
	"fmt"
	"strings"

	"github.com/MrWong99/ocrlite/pkg/provider/translate/google"
)

// Kind names a translation provider variant.
type Kind string

const (
	// KindNone selects the passthrough provider.
	KindNone Kind = "none"
	// KindDeepL selects DeepL.
	KindDeepL Kind = "deepl"
	// KindGoogle selects Google Cloud Translation.
	KindGoogle Kind = "google"
	// KindPapago selects Naver Papago.
	KindPapago Kind = "papago"
	// KindLLM selects a chat model through any-llm-go.
	KindLLM Kind = "llm"
)

// ParseKind maps a configuration value to a [Kind]. Matching is
// case-insensitive and blank means [KindNone]. Unknown names are returned
// as-is and rejected by [Validate].
func ParseKind(s string) Kind {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return KindNone
	}
	return Kind(s)
}

// DeepLSettings holds DeepL credentials.
type DeepLSettings struct {
	APIKey string
}

// PapagoSettings holds Papago credentials.
type PapagoSettings struct {
	ClientID     string
	ClientSecret string
}

// LLMSettings selects the chat model used by [KindLLM].
type LLMSettings struct {
	// Backend is an any-llm-go provider name such as "openai" or "ollama".
	Backend string
	Model   string
	APIKey  string
	BaseURL string
}

// Settings is the provider selection plus one credential set per provider.
// It is treated as immutable for the duration of one run.
type Settings struct {
	Provider   Kind
	SourceLang string
	TargetLang string

	DeepL  DeepLSettings
	Google google.Credentials
	Papago PapagoSettings
	LLM    LLMSettings
}

// ValidationError reports settings that cannot produce a working provider.
// Message is meant to be shown to the user as-is.
type ValidationError struct {
	Provider Kind
	Message  string
}

// Error implements error.
func (e *ValidationError) Error() string {
	return e.Message
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// Validate checks that the selected provider has all required credentials.
// It returns nil or a [*ValidationError].
func Validate(s Settings) error {
	kind := s.Provider
	if kind == "" {
		kind = KindNone
	}

	var msg string
	switch kind {
	case KindNone:
		return nil
	case KindDeepL:
		if blank(s.DeepL.APIKey) {
			msg = "DeepL API key is required."
		}
	case KindGoogle:
		if s.Google.Mode() == google.ModeNone {
			msg = "Google API key or OAuth(access token + project id) or OAuth(refresh token flow) is required."
		}
	case KindPapago:
		if blank(s.Papago.ClientID) || blank(s.Papago.ClientSecret) {
			msg = "Papago client id and secret are required."
		}
	case KindLLM:
		if blank(s.LLM.Backend) || blank(s.LLM.Model) {
			msg = "LLM backend and model are required."
		}
	default:
		msg = "Unknown translator type."
	}
	if msg == "" {
		return nil
	}
	return &ValidationError{Provider: kind, Message: msg}
}

// String describes the settings without revealing credentials.
func (s Settings) String() string {
	kind := s.Provider
	if kind == "" {
		kind = KindNone
	}
	detail := ""
	switch kind {
	case KindGoogle:
		detail = " mode=" + s.Google.Mode().String()
	case KindLLM:
		detail = fmt.Sprintf(" backend=%s model=%s", s.LLM.Backend, s.LLM.Model)
	}
	return fmt.Sprintf("%s %s->%s%s", kind, s.SourceLang, s.TargetLang, detail)
}
