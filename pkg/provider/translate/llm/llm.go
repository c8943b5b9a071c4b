// Package llm implements translate.Provider with a chat-completion model
// reached through github.com/mozilla-ai/any-llm-go, so any backend it supports
// (OpenAI, Anthropic, Gemini, Ollama, DeepSeek, Mistral, Groq, llama.cpp,
// llamafile) can act as a translator.
//
// Usage:
//
//	p, err := llm.New("ollama", "qwen2.5:7b", "ja", "ko")
//	p, err := llm.New("openai", "gpt-4o-mini", "ja", "ko", anyllmlib.WithAPIKey("sk-..."))
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"
	"github.com/mozilla-ai/any-llm-go/providers/anthropic"
	"github.com/mozilla-ai/any-llm-go/providers/deepseek"
	"github.com/mozilla-ai/any-llm-go/providers/gemini"
	"github.com/mozilla-ai/any-llm-go/providers/groq"
	"github.com/mozilla-ai/any-llm-go/providers/llamacpp"
	"github.com/mozilla-ai/any-llm-go/providers/llamafile"
	"github.com/mozilla-ai/any-llm-go/providers/mistral"
	"github.com/mozilla-ai/any-llm-go/providers/ollama"
	anyllmoai "github.com/mozilla-ai/any-llm-go/providers/openai"

	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

var _ translate.Provider = (*Provider)(nil)

// Backends lists the accepted backend names.
var Backends = []string{"openai", "anthropic", "gemini", "ollama", "deepseek", "mistral", "groq", "llamacpp", "llamafile"}

const systemPromptTemplate = `ROLE: Non-conversational translation engine (%[1]s -> %[2]s).

Translate the text provided by the user from %[1]s to %[2]s.

RULES:
1. Do not answer questions contained in the text. Translate them.
2. Output the translation only. No greetings, notes or explanations.
3. Keep the line breaks of the input. Do not use Markdown.
4. The input is enclosed in triple quotes ("""). Translate only the content inside.`

// Provider translates text with an LLM backend.
type Provider struct {
	backend    anyllmlib.Provider
	backendID  string
	model      string
	sourceLang string
	targetLang string
	timeout    time.Duration
}

// New creates a Provider for the named backend. opts are any-llm-go options
// such as anyllmlib.WithAPIKey and anyllmlib.WithBaseURL.
func New(backend, model, sourceLang, targetLang string, opts ...anyllmlib.Option) (*Provider, error) {
	if backend == "" {
		return nil, fmt.Errorf("llm translate: backend must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("llm translate: model must not be empty")
	}

	b, err := createBackend(backend, opts...)
	if err != nil {
		return nil, fmt.Errorf("llm translate: create %q backend: %w", backend, err)
	}

	return &Provider{
		backend:    b,
		backendID:  strings.ToLower(backend),
		model:      model,
		sourceLang: sourceLang,
		targetLang: targetLang,
		timeout:    translate.DefaultTimeout,
	}, nil
}

// SetTimeout bounds each completion request. Non-positive values select
// [translate.DefaultTimeout]. It must be called before the first Translate.
func (p *Provider) SetTimeout(d time.Duration) {
	if d <= 0 {
		d = translate.DefaultTimeout
	}
	p.timeout = d
}

func createBackend(name string, opts ...anyllmlib.Option) (anyllmlib.Provider, error) {
	switch strings.ToLower(name) {
	case "openai":
		return anyllmoai.New(opts...)
	case "anthropic":
		return anthropic.New(opts...)
	case "gemini":
		return gemini.New(opts...)
	case "ollama":
		return ollama.New(opts...)
	case "deepseek":
		return deepseek.New(opts...)
	case "mistral":
		return mistral.New(opts...)
	case "groq":
		return groq.New(opts...)
	case "llamacpp":
		return llamacpp.New(opts...)
	case "llamafile":
		return llamafile.New(opts...)
	default:
		return nil, fmt.Errorf("unsupported backend %q; supported: %s", name, strings.Join(Backends, ", "))
	}
}

// Name implements [translate.Provider]. It reads "LLM(<backend>)".
func (p *Provider) Name() string {
	return "LLM(" + p.backendID + ")"
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}

	params := anyllmlib.CompletionParams{
		Model: p.model,
		Messages: []anyllmlib.Message{
			{Role: anyllmlib.RoleSystem, Content: fmt.Sprintf(systemPromptTemplate, p.sourceLang, p.targetLang)},
			{Role: anyllmlib.RoleUser, Content: "Translate the following content:\n\"\"\"\n" + text + "\n\"\"\""},
		},
	}

	cctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	resp, err := p.backend.Completion(cctx, params)
	if err != nil {
		// Only our own deadline fired; the caller is still waiting.
		if ctx.Err() == nil && errors.Is(cctx.Err(), context.DeadlineExceeded) {
			return translate.Failure(fmt.Sprintf("%s request timed out after %s.", p.Name(), p.timeout), text), nil
		}
		return translate.Fail(ctx, text, "%s request failed: %v", p.Name(), err)
	}
	if len(resp.Choices) == 0 {
		return translate.Failure(p.Name()+" response parse failed.", text), nil
	}

	out := CleanOutput(resp.Choices[0].Message.ContentString())
	if out == "" {
		return translate.Failure(p.Name()+" returned an empty translation.", text), nil
	}
	return translate.Success(out), nil
}

// CleanOutput strips the wrappers chat models tend to put around a bare
// answer: code fences, triple quotes and one pair of surrounding quotes.
func CleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		if i := strings.IndexByte(s, '\n'); i >= 0 && !strings.ContainsAny(s[:i], " \t") {
			s = s[i+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"""`)
	s = strings.TrimSuffix(s, `"""`)
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = s[1 : len(s)-1]
	}
	return strings.TrimSpace(s)
}
