package google

import (
	"net/http"
	"time"
)

type options struct {
	baseURL   string
	tokenURL  string
	client    *http.Client
	now       func() time.Time
	onRefresh func()
}

// Option is a functional option for configuring a [Provider].
type Option func(*options)

// WithHTTPClient replaces the HTTP client used for translation and token
// requests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) {
		if c != nil {
			o.client = c
		}
	}
}

// WithBaseURL overrides [DefaultBaseURL].
func WithBaseURL(u string) Option {
	return func(o *options) {
		o.baseURL = u
	}
}

// WithTokenURL overrides [DefaultTokenURL].
func WithTokenURL(u string) Option {
	return func(o *options) {
		o.tokenURL = u
	}
}

// WithClock overrides the time source of the token cache.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithRefreshHook registers fn to be called after every successful access
// token refresh.
func WithRefreshHook(fn func()) Option {
	return func(o *options) {
		o.onRefresh = fn
	}
}
