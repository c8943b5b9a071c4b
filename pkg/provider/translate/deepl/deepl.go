// Package deepl implements translate.Provider on top of the DeepL REST API.
//
// The endpoint is chosen from the key: keys ending in ":fx" belong to the free
// plan and are sent to api-free.deepl.com, all others to api.deepl.com.
package deepl

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

const (
	// FreeEndpoint serves keys with the ":fx" suffix.
	FreeEndpoint = "https://api-free.deepl.com/v2/translate"

	// ProEndpoint serves all other keys.
	ProEndpoint = "https://api.deepl.com/v2/translate"

	// Name is the label reported by [Provider.Name].
	Name = "DeepL"
)

var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client. Default: a client with
// [translate.DefaultTimeout].
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithEndpoint overrides the endpoint derived from the key.
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider translates text through DeepL.
type Provider struct {
	apiKey     string
	sourceLang string
	targetLang string
	endpoint   string
	client     *http.Client
}

// New creates a DeepL provider. Language codes are upper-cased as DeepL
// expects.
func New(apiKey, sourceLang, targetLang string, opts ...Option) (*Provider, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("deepl: api key must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		sourceLang: strings.ToUpper(strings.TrimSpace(sourceLang)),
		targetLang: strings.ToUpper(strings.TrimSpace(targetLang)),
		endpoint:   EndpointFor(apiKey),
		client:     translate.NewHTTPClient(0),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// EndpointFor returns the endpoint that serves apiKey.
func EndpointFor(apiKey string) string {
	if strings.HasSuffix(strings.ToLower(strings.TrimSpace(apiKey)), ":fx") {
		return FreeEndpoint
	}
	return ProEndpoint
}

// Name implements [translate.Provider].
func (p *Provider) Name() string {
	return Name
}

type response struct {
	Translations []struct {
		Text string `json:"text"`
	} `json:"translations"`
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}

	form := url.Values{
		"auth_key":    {p.apiKey},
		"text":        {text},
		"source_lang": {p.sourceLang},
		"target_lang": {p.targetLang},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return translate.Fail(ctx, text, "DeepL request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return translate.Fail(ctx, text, "DeepL request failed: %v", err)
	}
	body, err := translate.ReadBody(resp)
	if err != nil {
		return translate.Fail(ctx, text, "DeepL request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return translate.Failure(translate.StatusMessage("DeepL", resp), text), nil
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return translate.Failure("DeepL response parse failed.", text), nil
	}
	if len(out.Translations) == 0 {
		return translate.Failure("DeepL response has no translations.", text), nil
	}
	return translate.Success(out.Translations[0].Text), nil
}
