package oauth_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullionhub/shipbridge/pkg/shipping/oauth"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func countingFetcher(clock *fakeClock, calls *int32) oauth.Fetcher {
	return oauth.FetcherFunc(func(ctx context.Context) (*oauth.Token, error) {
		n := atomic.AddInt32(calls, 1)
		return &oauth.Token{
			AccessToken: fmt.Sprintf("token-%d", n),
			ExpiresAt:   clock.Now().Add(time.Hour),
		}, nil
	})
}

func TestTokenCache_ReusesToken(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var calls int32
	cache := oauth.NewTokenCache(countingFetcher(clock, &calls), oauth.WithClock(clock.Now))

	first, err := cache.Token(context.Background())
	require.NoError(t, err)
	second, err := cache.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-1", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestTokenCache_RefreshesBeforeExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	var calls int32
	cache := oauth.NewTokenCache(countingFetcher(clock, &calls),
		oauth.WithClock(clock.Now), oauth.WithSkew(time.Minute))

	_, err := cache.Token(context.Background())
	require.NoError(t, err)

	clock.Advance(58 * time.Minute)
	tok, err := cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-1", tok)

	clock.Advance(90 * time.Second)
	tok, err = cache.Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "token-2", tok)
}

func TestTokenCache_Invalidate(t *testing.T) {
	clock := &fakeClock{now: time.Now()}
	var calls int32
	cache := oauth.NewTokenCache(countingFetcher(clock, &calls), oauth.WithClock(clock.Now))

	_, err := cache.Token(context.Background())
	require.NoError(t, err)
	cache.Invalidate()
	tok, err := cache.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-2", tok)
}

func TestTokenCache_SingleFlight(t *testing.T) {
	var calls int32
	release := make(chan struct{})
	cache := oauth.NewTokenCache(oauth.FetcherFunc(func(ctx context.Context) (*oauth.Token, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return &oauth.Token{AccessToken: "shared", ExpiresAt: time.Now().Add(time.Hour)}, nil
	}))

	var wg sync.WaitGroup
	results := make([]string, 20)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tok, err := cache.Token(context.Background())
			assert.NoError(t, err)
			results[i] = tok
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, tok := range results {
		assert.Equal(t, "shared", tok)
	}
}

func TestTokenCache_FetchError(t *testing.T) {
	cache := oauth.NewTokenCache(oauth.FetcherFunc(func(ctx context.Context) (*oauth.Token, error) {
		return nil, oauth.ErrTokenRejected
	}))

	_, err := cache.Token(context.Background())
	assert.ErrorIs(t, err, oauth.ErrTokenRejected)
}

func TestClientCredentials_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "client_credentials", r.PostForm.Get("grant_type"))
		assert.Equal(t, "id", r.PostForm.Get("client_id"))
		assert.Equal(t, "secret", r.PostForm.Get("client_secret"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"abc","token_type":"bearer","expires_in":3600,"scope":"CXS"}`))
	}))
	defer server.Close()

	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	cc := &oauth.ClientCredentials{
		TokenURL:     server.URL,
		ClientID:     "id",
		ClientSecret: "secret",
		HTTPClient:   server.Client(),
		Now:          func() time.Time { return now },
	}

	tok, err := cc.Fetch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "abc", tok.AccessToken)
	assert.Equal(t, now.Add(time.Hour), tok.ExpiresAt)
}

func TestClientCredentials_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":[{"code":"NOT.AUTHORIZED.ERROR"}]}`))
	}))
	defer server.Close()

	cc := &oauth.ClientCredentials{TokenURL: server.URL, ClientID: "id", ClientSecret: "bad"}

	_, err := cc.Fetch(context.Background())
	assert.True(t, errors.Is(err, oauth.ErrTokenRejected))
}
