package shipping

import (
	"errors"
	"fmt"
	"strings"
)

// Resolution causes. Exactly one is carried by every ResolutionError.
var (
	// ErrUnknownCarrierID indicates no carrier record exists for the id.
	ErrUnknownCarrierID = errors.New("unknown carrier id")

	// ErrUnsupportedCarrier indicates the carrier's code has no registered provider.
	ErrUnsupportedCarrier = errors.New("unsupported carrier")

	// ErrMissingBuilders indicates a provider is registered without builders.
	ErrMissingBuilders = errors.New("missing builders")
)

// Sentinel errors for provider failures.
var (
	// ErrServiceUnavailable indicates the carrier is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates the carrier rejected our credentials.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrRateLimitExceeded indicates the carrier throttled the request.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTimeout indicates the carrier did not answer within the deadline.
	ErrTimeout = errors.New("carrier timeout")
)

// ResolutionError reports why a carrier id could not be turned into a provider.
type ResolutionError struct {
	CarrierID int64
	Code      Code
	Cause     error
}

func (e *ResolutionError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("resolve carrier %d (%s): %v", e.CarrierID, e.Code, e.Cause)
	}
	return fmt.Sprintf("resolve carrier %d: %v", e.CarrierID, e.Cause)
}

func (e *ResolutionError) Unwrap() error {
	return e.Cause
}

// BuildError reports input a builder cannot shape into a carrier request.
type BuildError struct {
	Operation Operation
	Fields    []string
	Cause     error
}

func (e *BuildError) Error() string {
	if len(e.Fields) > 0 {
		return fmt.Sprintf("build %s request: invalid fields: %s", e.Operation, strings.Join(e.Fields, ", "))
	}
	return fmt.Sprintf("build %s request: %v", e.Operation, e.Cause)
}

func (e *BuildError) Unwrap() error {
	return e.Cause
}

// ProviderError represents a failed call to a carrier API.
type ProviderError struct {
	Carrier    Code
	Operation  Operation
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	// Payload is the carrier's raw error body, when one was returned.
	Payload []byte
	Cause   error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s %s error (%s): %s: %v", e.Carrier, e.Operation, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s %s error (%s): %s", e.Carrier, e.Operation, e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is matches another ProviderError with the same code.
func (e *ProviderError) Is(target error) bool {
	t, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewProviderError creates a new ProviderError.
func NewProviderError(carrier Code, op Operation, code, message string) *ProviderError {
	return &ProviderError{
		Carrier:   carrier,
		Operation: op,
		Code:      code,
		Message:   message,
	}
}

// WithCause adds a cause to the error.
func (e *ProviderError) WithCause(err error) *ProviderError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ProviderError) WithStatusCode(code int) *ProviderError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ProviderError) WithRetryable(retryable bool) *ProviderError {
	e.Retryable = retryable
	return e
}

// WithPayload attaches the carrier's raw error body.
func (e *ProviderError) WithPayload(body []byte) *ProviderError {
	e.Payload = body
	return e
}

// IngestionError reports a tracking refresh whose write transaction was rolled
// back. Previously stored tracking is unchanged when this is returned.
type IngestionError struct {
	ShipmentID int64
	Step       string
	Cause      error
}

func (e *IngestionError) Error() string {
	return fmt.Sprintf("tracking refresh failed, previous state preserved (shipment %d, %s): %v", e.ShipmentID, e.Step, e.Cause)
}

func (e *IngestionError) Unwrap() error {
	return e.Cause
}

// IsRetryable returns true if the error is worth retrying for an idempotent operation.
func IsRetryable(err error) bool {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) {
		return providerErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable) || errors.Is(err, ErrRateLimitExceeded) || errors.Is(err, ErrTimeout)
}
