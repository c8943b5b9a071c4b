package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/ocrlite/internal/observe"
	"github.com/MrWong99/ocrlite/internal/resilience"
	"github.com/MrWong99/ocrlite/pkg/provider/translate"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/deepl"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/google"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/llm"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/papago"
	"github.com/MrWong99/ocrlite/pkg/provider/translate/passthrough"
)

type options struct {
	client   *http.Client
	timeout  time.Duration
	breaker  *resilience.CircuitBreakerConfig
	metrics  *observe.Metrics
	endpoint string
	tokenURL string
}

// Option configures [New].
type Option func(*options)

// WithHTTPClient replaces the HTTP client of HTTP-based providers.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		o.client = c
	}
}

// WithTimeout bounds each translate round trip. Default:
// [translate.DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(o *options) {
		o.timeout = d
	}
}

// WithCircuitBreaker guards network providers with a circuit breaker built
// from cfg. The passthrough provider is never wrapped.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig) Option {
	return func(o *options) {
		o.breaker = &cfg
	}
}

// WithMetrics records request counts and latencies on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithEndpoint points the selected HTTP provider at endpoint instead of the
// vendor URL. For Google it replaces the API root.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = endpoint
	}
}

// WithTokenURL overrides the Google OAuth token endpoint.
func WithTokenURL(u string) Option {
	return func(o *options) {
		o.tokenURL = u
	}
}

// New validates s and builds the selected provider. Validation failures are
// returned as [*ValidationError] before anything is constructed.
func New(s Settings, opts ...Option) (translate.Provider, error) {
	if err := Validate(s); err != nil {
		return nil, err
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	client := o.client
	if client == nil {
		client = translate.NewHTTPClient(o.timeout)
	}

	var (
		p   translate.Provider
		err error
	)
	switch s.Provider {
	case "", KindNone:
		return passthrough.New(), nil

	case KindDeepL:
		dopts := []deepl.Option{deepl.WithHTTPClient(client)}
		if o.endpoint != "" {
			dopts = append(dopts, deepl.WithEndpoint(o.endpoint))
		}
		p, err = deepl.New(s.DeepL.APIKey, s.SourceLang, s.TargetLang, dopts...)

	case KindGoogle:
		gopts := []google.Option{google.WithHTTPClient(client)}
		if o.endpoint != "" {
			gopts = append(gopts, google.WithBaseURL(o.endpoint))
		}
		if o.tokenURL != "" {
			gopts = append(gopts, google.WithTokenURL(o.tokenURL))
		}
		if o.metrics != nil {
			m := o.metrics
			gopts = append(gopts, google.WithRefreshHook(func() {
				m.TokenRefreshes.Add(context.Background(), 1)
			}))
		}
		p, err = google.New(s.Google, s.SourceLang, s.TargetLang, gopts...)

	case KindPapago:
		popts := []papago.Option{papago.WithHTTPClient(client)}
		if o.endpoint != "" {
			popts = append(popts, papago.WithEndpoint(o.endpoint))
		}
		p, err = papago.New(s.Papago.ClientID, s.Papago.ClientSecret, s.SourceLang, s.TargetLang, popts...)

	case KindLLM:
		var lopts []anyllmlib.Option
		if key := strings.TrimSpace(s.LLM.APIKey); key != "" {
			lopts = append(lopts, anyllmlib.WithAPIKey(key))
		}
		baseURL := strings.TrimSpace(s.LLM.BaseURL)
		if o.endpoint != "" {
			baseURL = o.endpoint
		}
		if baseURL != "" {
			lopts = append(lopts, anyllmlib.WithBaseURL(baseURL))
		}
		var lp *llm.Provider
		if lp, err = llm.New(s.LLM.Backend, s.LLM.Model, s.SourceLang, s.TargetLang, lopts...); err == nil {
			lp.SetTimeout(o.timeout)
			p = lp
		}
	}
	if err != nil {
		return nil, err
	}

	if o.breaker != nil {
		cfg := *o.breaker
		if cfg.Name == "" {
			cfg.Name = "translate/" + string(s.Provider)
		}
		if m := o.metrics; m != nil && cfg.OnStateChange == nil {
			cfg.OnStateChange = func(name string, _, to resilience.State) {
				m.RecordBreakerTransition(context.Background(), name, to.String())
			}
		}
		p = translate.WithBreaker(p, resilience.NewCircuitBreaker(cfg))
	}
	if o.metrics != nil {
		p = &instrumented{inner: p, metrics: o.metrics}
	}
	return p, nil
}
