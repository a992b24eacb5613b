// Package fedex implements the FedEx REST API carrier binding.
package fedex

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/oauth"
)

// Credentials is one FedEx API project's client credentials.
type Credentials struct {
	ClientID     string
	ClientSecret string
}

// Config holds FedEx provider configuration.
type Config struct {
	BaseURL string
	Ship    Credentials
	// Track is used for the tracking API. Empty means reuse Ship.
	Track   Credentials
	Timeout time.Duration

	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// Provider executes FedEx REST calls. It returns response bodies unmodified
// and never retries.
type Provider struct {
	baseURL     string
	httpClient  *http.Client
	shipTokens  *oauth.TokenCache
	trackTokens *oauth.TokenCache
	breaker     *gobreaker.CircuitBreaker
	logger      *otelzap.Logger
	newID       func() string
}

// Option configures a Provider.
type Option func(*Provider)

// WithTokenCaches replaces the token caches built from Config.
func WithTokenCaches(ship, track *oauth.TokenCache) Option {
	return func(p *Provider) {
		p.shipTokens = ship
		p.trackTokens = track
	}
}

// WithHTTPClient replaces the HTTP client built from Config.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) { p.httpClient = c }
}

// NewProvider creates a FedEx provider.
func NewProvider(cfg Config, logger *otelzap.Logger, opts ...Option) *Provider {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	breakerTimeout := cfg.BreakerTimeout
	if breakerTimeout == 0 {
		breakerTimeout = 30 * time.Second
	}
	baseURL := strings.TrimRight(cfg.BaseURL, "/")

	p := &Provider{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		newID:      func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(p)
	}

	track := cfg.Track
	if track.ClientID == "" {
		track = cfg.Ship
	}
	if p.shipTokens == nil {
		p.shipTokens = oauth.NewTokenCache(p.credentials(cfg.Ship))
	}
	if p.trackTokens == nil {
		p.trackTokens = oauth.NewTokenCache(p.credentials(track))
	}

	p.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "fedex",
		MaxRequests: 1,
		Timeout:     breakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("name", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
		// Carrier-side rejections (4xx) and callers giving up say nothing
		// about availability.
		IsSuccessful: func(err error) bool {
			if errors.Is(err, context.Canceled) {
				return true
			}
			var providerErr *shipping.ProviderError
			if errors.As(err, &providerErr) {
				return providerErr.StatusCode > 0 && providerErr.StatusCode < 500
			}
			return err == nil
		},
	})
	return p
}

var _ shipping.Provider = (*Provider)(nil)

func (p *Provider) credentials(c Credentials) *oauth.ClientCredentials {
	return &oauth.ClientCredentials{
		TokenURL:     p.baseURL + pathOAuthToken,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		HTTPClient:   p.httpClient,
	}
}

// Code returns shipping.FedEx.
func (p *Provider) Code() shipping.Code {
	return shipping.FedEx
}

func (p *Provider) ValidateAddress(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpValidateAddress, http.MethodPost, pathAddressResolve, p.shipTokens, pl)
}

func (p *Provider) GetRates(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetRates, http.MethodPost, pathRateQuotes, p.shipTokens, pl)
}

func (p *Provider) CreateLabel(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCreateLabel, http.MethodPost, pathShipments, p.shipTokens, pl)
}

func (p *Provider) CancelLabel(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCancelLabel, http.MethodPut, pathShipmentsCancel, p.shipTokens, pl)
}

func (p *Provider) CheckPickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCheckPickup, http.MethodPost, pathPickupAvailable, p.shipTokens, pl)
}

func (p *Provider) CreatePickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCreatePickup, http.MethodPost, pathPickups, p.shipTokens, pl)
}

func (p *Provider) CancelPickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCancelPickup, http.MethodPut, pathPickupsCancel, p.shipTokens, pl)
}

func (p *Provider) GetLocations(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetLocations, http.MethodPost, pathLocations, p.shipTokens, pl)
}

func (p *Provider) GetTracking(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetTracking, http.MethodPost, pathTrackingNumbers, p.trackTokens, pl)
}

func (p *Provider) do(ctx context.Context, op shipping.Operation, method, path string, tokens *oauth.TokenCache, payload shipping.Payload) (json.RawMessage, error) {
	res, err := p.breaker.Execute(func() (interface{}, error) {
		return p.doRequest(ctx, op, method, path, tokens, payload)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, shipping.NewProviderError(shipping.FedEx, op, "SERVICE_UNAVAILABLE", "circuit open").
			WithCause(shipping.ErrServiceUnavailable)
	}
	if err != nil {
		return nil, err
	}
	return res.(json.RawMessage), nil
}

func (p *Provider) doRequest(ctx context.Context, op shipping.Operation, method, path string, tokens *oauth.TokenCache, payload shipping.Payload) (json.RawMessage, error) {
	token, err := tokens.Token(ctx)
	if err != nil {
		return nil, p.tokenError(op, err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, shipping.NewProviderError(shipping.FedEx, op, "ENCODE_FAILED", "could not encode request").WithCause(err)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, shipping.NewProviderError(shipping.FedEx, op, "REQUEST_FAILED", "could not create request").WithCause(err)
	}
	transactionID := p.newID()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-locale", "en_US")
	req.Header.Set(headerTransactionID, transactionID)

	log := p.logger.Ctx(ctx).WithOptions(zap.Fields(
		zap.String("operation", string(op)),
		zap.String("transaction_id", transactionID),
	))
	started := time.Now()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Warn("FedEx request failed", zap.Error(err))
		return nil, transportError(op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, transportError(op, err)
	}

	log.Debug("FedEx request completed",
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(started)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if resp.StatusCode == http.StatusUnauthorized {
			tokens.Invalidate()
		}
		return nil, parseError(op, resp.StatusCode, respBody)
	}
	return json.RawMessage(respBody), nil
}

func (p *Provider) tokenError(op shipping.Operation, err error) *shipping.ProviderError {
	if errors.Is(err, oauth.ErrTokenRejected) {
		return shipping.NewProviderError(shipping.FedEx, op, "AUTHENTICATION_FAILED", "access token request rejected").
			WithStatusCode(http.StatusUnauthorized).
			WithCause(fmt.Errorf("%w: %w", shipping.ErrAuthenticationFailed, err))
	}
	return transportError(op, err)
}

// transportError classifies failures that produced no HTTP response.
func transportError(op shipping.Operation, err error) *shipping.ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return shipping.NewProviderError(shipping.FedEx, op, "TIMEOUT", "carrier did not respond in time").
			WithRetryable(true).
			WithCause(fmt.Errorf("%w: %w", shipping.ErrTimeout, err))
	}
	if errors.Is(err, context.Canceled) {
		return shipping.NewProviderError(shipping.FedEx, op, "CANCELLED", "request cancelled").WithCause(err)
	}
	return shipping.NewProviderError(shipping.FedEx, op, "NETWORK_ERROR", "could not reach carrier").
		WithRetryable(true).
		WithCause(err)
}

// parseError builds a ProviderError from a non-2xx FedEx response, keeping
// the raw body.
func parseError(op shipping.Operation, status int, body []byte) *shipping.ProviderError {
	code := fmt.Sprintf("HTTP_%d", status)
	message := http.StatusText(status)

	var envelope APIErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && len(envelope.Errors) > 0 {
		code = envelope.Errors[0].Code
		message = envelope.Errors[0].Message
	} else if len(body) > 0 && len(body) < 512 {
		message = strings.TrimSpace(string(body))
	}

	err := shipping.NewProviderError(shipping.FedEx, op, code, message).
		WithStatusCode(status).
		WithPayload(body)

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		err.WithCause(shipping.ErrAuthenticationFailed)
	case status == http.StatusTooManyRequests:
		err.WithRetryable(true).WithCause(shipping.ErrRateLimitExceeded)
	case status >= 500:
		err.WithRetryable(true).WithCause(shipping.ErrServiceUnavailable)
	}
	return err
}
