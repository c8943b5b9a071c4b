package google

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/sync/semaphore"
)

const (
	// defaultTokenLifetime applies when the token response carries no
	// positive expires_in.
	defaultTokenLifetime = 3600 * time.Second

	// refreshSkew is how long before expiry a cached token stops being used.
	refreshSkew = 60 * time.Second
)

// cachedToken is a derived access token and its expiry.
type cachedToken struct {
	value     string
	expiresAt time.Time
}

// validAt reports whether the token may be used at now.
func (t cachedToken) validAt(now time.Time) bool {
	return t.value != "" && now.Before(t.expiresAt.Add(-refreshSkew))
}

// tokenCache exchanges a refresh token for access tokens. At most one
// exchange is in flight at a time; callers that lose the race wait on the
// semaphore and re-check the cache before issuing their own request.
type tokenCache struct {
	cfg          *oauth2.Config
	refreshToken string
	client       *http.Client
	now          func() time.Time
	onRefresh    func()

	refresh *semaphore.Weighted

	mu     sync.Mutex
	cached cachedToken
}

func newTokenCache(creds Credentials, o options) *tokenCache {
	now := o.now
	if now == nil {
		now = time.Now
	}
	return &tokenCache{
		cfg: &oauth2.Config{
			ClientID:     strings.TrimSpace(creds.ClientID),
			ClientSecret: strings.TrimSpace(creds.ClientSecret),
			Endpoint: oauth2.Endpoint{
				TokenURL:  o.tokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: strings.TrimSpace(creds.RefreshToken),
		client:       o.client,
		now:          now,
		onRefresh:    o.onRefresh,
		refresh:      semaphore.NewWeighted(1),
	}
}

func (c *tokenCache) load() cachedToken {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cached
}

func (c *tokenCache) store(t cachedToken) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cached = t
}

// Token returns a valid access token, refreshing it if needed. Waiting for a
// concurrent refresh is cancellable through ctx.
func (c *tokenCache) Token(ctx context.Context) (string, error) {
	if t := c.load(); t.validAt(c.now()) {
		return t.value, nil
	}

	if err := c.refresh.Acquire(ctx, 1); err != nil {
		return "", err
	}
	defer c.refresh.Release(1)

	now := c.now()
	if t := c.load(); t.validAt(now) {
		return t.value, nil
	}

	tok, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	lifetime := defaultTokenLifetime
	if tok.ExpiresIn > 0 {
		lifetime = time.Duration(tok.ExpiresIn) * time.Second
	}
	c.store(cachedToken{value: tok.AccessToken, expiresAt: now.Add(lifetime)})
	if c.onRefresh != nil {
		c.onRefresh()
	}
	return tok.AccessToken, nil
}

// exchange performs one refresh-token grant.
func (c *tokenCache) exchange(ctx context.Context) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.client)
	tok, err := c.cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: c.refreshToken}).Token()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var rerr *oauth2.RetrieveError
		if errors.As(err, &rerr) && rerr.Response != nil {
			code := rerr.Response.StatusCode
			return nil, fmt.Errorf("Google OAuth token error: %d %s", code, http.StatusText(code))
		}
		return nil, fmt.Errorf("Google OAuth token request failed: %v", err)
	}
	if strings.TrimSpace(tok.AccessToken) == "" {
		return nil, errors.New("Google OAuth token parse failed: access_token is empty.")
	}
	return tok, nil
}
