// Package openaivision implements ocr.Recognizer with a vision-capable chat
// model behind the OpenAI API or any OpenAI-compatible server.
//
// The region is sent as a PNG data URL together with an instruction to
// transcribe the visible text verbatim.
package openaivision

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"strings"
	"sync"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/MrWong99/ocrlite/pkg/provider/ocr"
)

var _ ocr.Recognizer = (*Recognizer)(nil)

// Name is the engine label reported by [Recognizer.Name].
const Name = "openai-vision"

const instructions = `Transcribe all text visible in the image exactly as written.
Keep the original line breaks. Do not translate, explain or add anything.
If the image contains no text, reply with an empty message.`

// config holds optional configuration for the recognizer.
type config struct {
	baseURL string
	timeout time.Duration
}

// Option is a functional option for [New].
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Recognizer transcribes text with a vision chat model.
type Recognizer struct {
	client oai.Client
	model  string

	mu   sync.Mutex
	lang string
}

// New constructs a vision recognizer.
func New(apiKey, model string, opts ...Option) (*Recognizer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openaivision: apiKey must not be empty")
	}
	if model == "" {
		return nil, fmt.Errorf("openaivision: model must not be empty")
	}

	cfg := &config{}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Recognizer{
		client: oai.NewClient(reqOpts...),
		model:  model,
		lang:   ocr.AutoLanguage,
	}, nil
}

// Name implements [ocr.Recognizer].
func (r *Recognizer) Name() string {
	return Name
}

// Init implements [ocr.Recognizer]. Vision models read any script, so every
// tag is accepted and only used as a hint.
func (r *Recognizer) Init(_ context.Context, lang string) (string, error) {
	lang = ocr.NormalizeLanguage(lang)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lang = lang
	return lang, nil
}

// Recognize implements [ocr.Recognizer].
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	dataURL, err := encodeDataURL(img)
	if err != nil {
		return "", err
	}

	r.mu.Lock()
	lang := r.lang
	r.mu.Unlock()

	prompt := instructions
	if lang != ocr.AutoLanguage {
		prompt += "\nThe text is most likely in language \"" + lang + "\"."
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(r.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.UserMessage([]oai.ChatCompletionContentPartUnionParam{
				oai.TextContentPart(prompt),
				oai.ImageContentPart(oai.ChatCompletionContentPartImageImageURLParam{URL: dataURL}),
			}),
		},
	}

	resp, err := r.client.Chat.Completions.New(ctx, params)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("openaivision: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openaivision: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// encodeDataURL renders img as a base64 PNG data URL.
func encodeDataURL(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("openaivision: encode region: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
