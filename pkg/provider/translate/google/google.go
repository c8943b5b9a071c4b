// Package google implements translate.Provider on top of Google Cloud
// Translation.
//
// Three credential modes are supported and chosen per call in this order:
//
//  1. Refresh-token OAuth (client id, client secret, refresh token, project id):
//     an access token is derived from the refresh token, cached, and used
//     against the v3 translateText endpoint.
//  2. Manual OAuth (access token, project id): the given token is used against
//     the v3 endpoint as-is.
//  3. API key: the v2 endpoint is called with the key as a query parameter.
package google

import (
	"context"
	"encoding/json"
	"errors"
	"html"
	"net/http"
	"net/url"
	"strings"

	"github.com/MrWong99/ocrlite/pkg/provider/translate"
)

const (
	// DefaultBaseURL is the Cloud Translation API root.
	DefaultBaseURL = "https://translation.googleapis.com"

	// DefaultTokenURL is Google's OAuth 2.0 token endpoint.
	DefaultTokenURL = "https://oauth2.googleapis.com/token"

	// Name is the label reported by [Provider.Name].
	Name = "Google"
)

var _ translate.Provider = (*Provider)(nil)

// Credentials holds every Google credential field. Which fields are required
// depends on the mode; see [Credentials.Mode].
type Credentials struct {
	APIKey       string
	AccessToken  string
	ProjectID    string
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// Mode identifies the credential flow a call uses.
type Mode int

const (
	// ModeNone means no complete credential set is present.
	ModeNone Mode = iota
	// ModeAPIKey uses the v2 API with an API key.
	ModeAPIKey
	// ModeAccessToken uses the v3 API with a manually supplied access token.
	ModeAccessToken
	// ModeRefreshToken uses the v3 API with an access token derived from a
	// refresh token.
	ModeRefreshToken
)

// String returns the label used in error messages.
func (m Mode) String() string {
	switch m {
	case ModeAPIKey:
		return "apiKey"
	case ModeAccessToken:
		return "OAuth(access-token)"
	case ModeRefreshToken:
		return "OAuth(refresh-token)"
	default:
		return "none"
	}
}

func present(s string) bool {
	return strings.TrimSpace(s) != ""
}

// HasAPIKey reports whether the API key mode is usable.
func (c Credentials) HasAPIKey() bool {
	return present(c.APIKey)
}

// HasManualOAuth reports whether the manual access-token mode is usable.
func (c Credentials) HasManualOAuth() bool {
	return present(c.AccessToken) && present(c.ProjectID)
}

// HasRefreshOAuth reports whether the refresh-token mode is usable.
func (c Credentials) HasRefreshOAuth() bool {
	return present(c.ClientID) && present(c.ClientSecret) && present(c.RefreshToken) && present(c.ProjectID)
}

// Mode returns the flow these credentials select. Refresh-token OAuth wins
// over a manual access token, which wins over an API key.
func (c Credentials) Mode() Mode {
	switch {
	case c.HasRefreshOAuth():
		return ModeRefreshToken
	case c.HasManualOAuth():
		return ModeAccessToken
	case c.HasAPIKey():
		return ModeAPIKey
	default:
		return ModeNone
	}
}

// Provider translates text through Google Cloud Translation. The derived
// access token of the refresh-token mode is owned by the Provider and shared
// by all its calls.
type Provider struct {
	creds      Credentials
	sourceLang string
	targetLang string
	baseURL    string
	client     *http.Client
	tokens     *tokenCache
}

// New creates a Google provider. It fails when no credential mode is usable.
func New(creds Credentials, sourceLang, targetLang string, opts ...Option) (*Provider, error) {
	if creds.Mode() == ModeNone {
		return nil, errors.New("google: no usable credentials")
	}
	o := options{
		baseURL:  DefaultBaseURL,
		tokenURL: DefaultTokenURL,
		client:   translate.NewHTTPClient(0),
	}
	for _, opt := range opts {
		opt(&o)
	}

	p := &Provider{
		creds:      creds,
		sourceLang: strings.TrimSpace(sourceLang),
		targetLang: strings.TrimSpace(targetLang),
		baseURL:    strings.TrimRight(o.baseURL, "/"),
		client:     o.client,
	}
	if creds.Mode() == ModeRefreshToken {
		p.tokens = newTokenCache(creds, o)
	}
	return p, nil
}

// Name implements [translate.Provider].
func (p *Provider) Name() string {
	return Name
}

// Translate implements [translate.Provider].
func (p *Provider) Translate(ctx context.Context, text string) (translate.Result, error) {
	if translate.Blank(text) {
		return translate.Success(""), nil
	}

	switch mode := p.creds.Mode(); mode {
	case ModeRefreshToken:
		token, err := p.tokens.Token(ctx)
		if err != nil {
			return translate.Fail(ctx, text, "%v", err)
		}
		return p.translateV3(ctx, text, token, mode)
	case ModeAccessToken:
		return p.translateV3(ctx, text, strings.TrimSpace(p.creds.AccessToken), mode)
	case ModeAPIKey:
		return p.translateV2(ctx, text)
	default:
		return translate.Failure("Google credentials are missing.", text), nil
	}
}

type v2Response struct {
	Data struct {
		Translations []struct {
			TranslatedText string `json:"translatedText"`
		} `json:"translations"`
	} `json:"data"`
}

func (p *Provider) translateV2(ctx context.Context, text string) (translate.Result, error) {
	label := "Google(" + ModeAPIKey.String() + ")"
	endpoint := p.baseURL + "/language/translate/v2?key=" + url.QueryEscape(strings.TrimSpace(p.creds.APIKey))

	form := url.Values{
		"q":      {text},
		"source": {p.sourceLang},
		"target": {p.targetLang},
		"format": {"text"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return translate.Fail(ctx, text, "%s request failed: %v", label, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	body, resp, err := p.do(req)
	if err != nil {
		return translate.Fail(ctx, text, "%s request failed: %v", label, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return translate.Failure(translate.StatusMessage(label, resp), text), nil
	}

	var out v2Response
	if err := json.Unmarshal(body, &out); err != nil || len(out.Data.Translations) == 0 {
		return translate.Failure(label+" response parse failed.", text), nil
	}
	return translate.Success(html.UnescapeString(out.Data.Translations[0].TranslatedText)), nil
}

type v3Request struct {
	Contents           []string `json:"contents"`
	SourceLanguageCode string   `json:"sourceLanguageCode"`
	TargetLanguageCode string   `json:"targetLanguageCode"`
}

type v3Response struct {
	Translations []struct {
		TranslatedText string `json:"translatedText"`
	} `json:"translations"`
}

func (p *Provider) translateV3(ctx context.Context, text, accessToken string, mode Mode) (translate.Result, error) {
	label := "Google(" + mode.String() + ")"
	endpoint := p.baseURL + "/v3/projects/" + url.PathEscape(strings.TrimSpace(p.creds.ProjectID)) + "/locations/global:translateText"

	payload, err := json.Marshal(v3Request{
		Contents:           []string{text},
		SourceLanguageCode: p.sourceLang,
		TargetLanguageCode: p.targetLang,
	})
	if err != nil {
		return translate.Fail(ctx, text, "%s request failed: %v", label, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return translate.Fail(ctx, text, "%s request failed: %v", label, err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+accessToken)

	body, resp, err := p.do(req)
	if err != nil {
		return translate.Fail(ctx, text, "%s request failed: %v", label, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return translate.Failure(translate.StatusMessage(label, resp), text), nil
	}

	var out v3Response
	if err := json.Unmarshal(body, &out); err != nil || len(out.Translations) == 0 {
		return translate.Failure(label+" response parse failed.", text), nil
	}
	return translate.Success(html.UnescapeString(out.Translations[0].TranslatedText)), nil
}

func (p *Provider) do(req *http.Request) ([]byte, *http.Response, error) {
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, err
	}
	body, err := translate.ReadBody(resp)
	if err != nil {
		return nil, nil, err
	}
	return body, resp, nil
}
