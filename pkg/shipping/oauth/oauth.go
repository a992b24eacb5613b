// Package oauth caches OAuth2 client-credentials access tokens.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrTokenRejected is returned when the token endpoint refuses the credentials.
var ErrTokenRejected = errors.New("token request rejected")

// Token is an access token and the moment it stops being usable.
type Token struct {
	AccessToken string
	ExpiresAt   time.Time
}

// Fetcher obtains a fresh token.
type Fetcher interface {
	Fetch(ctx context.Context) (*Token, error)
}

// FetcherFunc adapts a function to Fetcher.
type FetcherFunc func(ctx context.Context) (*Token, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context) (*Token, error) { return f(ctx) }

// TokenCache holds one credential set's token. Concurrent callers that find the
// token missing or expiring share a single fetch.
type TokenCache struct {
	fetcher Fetcher
	now     func() time.Time
	skew    time.Duration

	mu    sync.Mutex
	token *Token
	group singleflight.Group
}

// Option configures a TokenCache.
type Option func(*TokenCache)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *TokenCache) { c.now = now }
}

// WithSkew sets how long before expiry a token is considered stale.
func WithSkew(d time.Duration) Option {
	return func(c *TokenCache) { c.skew = d }
}

// NewTokenCache creates a cache around fetcher.
func NewTokenCache(fetcher Fetcher, opts ...Option) *TokenCache {
	c := &TokenCache{
		fetcher: fetcher,
		now:     time.Now,
		skew:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns a valid access token, fetching one if needed.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if tok := c.cached(); tok != "" {
		return tok, nil
	}

	ch := c.group.DoChan("token", func() (any, error) {
		if tok := c.cached(); tok != "" {
			return tok, nil
		}
		// Callers share this fetch; one caller's cancellation must not fail the others.
		t, err := c.fetcher.Fetch(context.WithoutCancel(ctx))
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = t
		c.mu.Unlock()
		return t.AccessToken, nil
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Invalidate drops the cached token, forcing the next call to fetch.
func (c *TokenCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = nil
}

func (c *TokenCache) cached() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == nil || c.token.AccessToken == "" {
		return ""
	}
	if !c.now().Add(c.skew).Before(c.token.ExpiresAt) {
		return ""
	}
	return c.token.AccessToken
}

// ClientCredentials fetches tokens with the client_credentials grant.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	HTTPClient   *http.Client
	Now          func() time.Time
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	Scope       string `json:"scope"`
}

// Fetch implements Fetcher.
func (cc *ClientCredentials) Fetch(ctx context.Context) (*Token, error) {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", cc.ClientID)
	form.Set("client_secret", cc.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cc.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := cc.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request token: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrTokenRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", ErrTokenRejected)
	}

	now := time.Now
	if cc.Now != nil {
		now = cc.Now
	}
	return &Token{
		AccessToken: tr.AccessToken,
		ExpiresAt:   now().Add(time.Duration(tr.ExpiresIn) * time.Second),
	}, nil
}
