// Package papago implements translate.Provider on top of the Naver Papago NMT
// API.
package papago

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
	// DefaultEndpoint is the Papago NMT endpoint.
	DefaultEndpoint = "https://openapi.naver.com/v1/papago/n2mt"

	// Name is the label reported by [Provider.Name].
	Name = "Papago"
)

var _ translate.Provider = (*Provider)(nil)

// Option is a functional option for configuring a [Provider].
type Option func(*Provider)

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.client = c
		}
	}
}

// WithEndpoint overrides [DefaultEndpoint].
func WithEndpoint(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// Provider translates text through Papago.
type Provider struct {
	clientID     string
	clientSecret string
	sourceLang   string
	targetLang   string
	endpoint     string
	client       *http.Client
}

// New creates a Papago provider. Both credentials are required.
func New(clientID, clientSecret, sourceLang, targetLang string, opts ...Option) (*Provider, error) {
	clientID = strings.TrimSpace(clientID)
	clientSecret = strings.TrimSpace(clientSecret)
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("papago: client id and secret must not be empty")
	}
	p := &Provider{
		clientID:     clientID,
		clientSecret: clientSecret,
		sourceLang:   strings.TrimSpace(sourceLang),
		targetLang:   strings.TrimSpace(targetLang),
		endpoint:     DefaultEndpoint,
		client:       translate.NewHTTPClient(0),
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Name implements [translate.Provider].
func (p *Provider) Name() string {
	return Name
}

type response struct {
	Message struct {
		Result struct {
			TranslatedText string `json:"translatedText"`
		} `json:"result"`
	} `json:"message"`
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}

	form := url.Values{
		"source": {p.sourceLang},
		"target": {p.targetLang},
		"text":   {text},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return translate.Fail(ctx, text, "Papago request failed: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Naver-Client-Id", p.clientID)
	req.Header.Set("X-Naver-Client-Secret", p.clientSecret)

	resp, err := p.client.Do(req)
	if err != nil {
		return translate.Fail(ctx, text, "Papago request failed: %v", err)
	}
	body, err := translate.ReadBody(resp)
	if err != nil {
		return translate.Fail(ctx, text, "Papago request failed: %v", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return translate.Failure(translate.StatusMessage("Papago", resp), text), nil
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil || out.Message.Result.TranslatedText == "" {
		return translate.Failure("Papago response parse failed.", text), nil
	}
	return translate.Success(out.Message.Result.TranslatedText), nil
}
