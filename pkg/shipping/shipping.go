// Package shipping provides a carrier-agnostic abstraction over shipping
// carrier APIs: carrier resolution, request building, provider execution and
// response normalization behind a single Handler.
package shipping

import (
	"context"
	"encoding/json"
)

// Operation names one of the canonical carrier operations.
type Operation string

const (
	OpValidateAddress Operation = "validate_address"
	OpGetRates        Operation = "get_rates"
	OpCreateLabel     Operation = "create_label"
	OpCancelLabel     Operation = "cancel_label"
	OpCheckPickup     Operation = "check_pickup"
	OpCreatePickup    Operation = "create_pickup"
	OpCancelPickup    Operation = "cancel_pickup"
	OpGetLocations    Operation = "get_locations"
	OpGetTracking     Operation = "get_tracking"
)

// Idempotent reports whether the operation can be repeated without side
// effects on the carrier's system.
func (o Operation) Idempotent() bool {
	switch o {
	case OpValidateAddress, OpGetRates, OpCheckPickup, OpGetLocations, OpGetTracking:
		return true
	default:
		return false
	}
}

// Payload is a carrier-specific, JSON-encodable request body produced by Builders.
type Payload any

// Provider executes a carrier's wire protocol. Each method performs a single
// authenticated call and returns the carrier's response body unmodified.
type Provider interface {
	// Code returns the carrier this provider talks to.
	Code() Code

	ValidateAddress(ctx context.Context, p Payload) (json.RawMessage, error)
	GetRates(ctx context.Context, p Payload) (json.RawMessage, error)
	CreateLabel(ctx context.Context, p Payload) (json.RawMessage, error)
	CancelLabel(ctx context.Context, p Payload) (json.RawMessage, error)
	CheckPickup(ctx context.Context, p Payload) (json.RawMessage, error)
	CreatePickup(ctx context.Context, p Payload) (json.RawMessage, error)
	CancelPickup(ctx context.Context, p Payload) (json.RawMessage, error)
	GetLocations(ctx context.Context, p Payload) (json.RawMessage, error)
	GetTracking(ctx context.Context, p Payload) (json.RawMessage, error)
}

// Builders shapes canonical inputs into a carrier's request payloads. Builders
// are pure: the same input always yields the same payload.
type Builders interface {
	ValidateAddress(in *AddressValidationInput) Payload
	GetRates(in *RatesInput) Payload
	CreateLabel(in *CreateLabelInput) Payload
	CancelLabel(in *CancelLabelInput) Payload
	CheckPickup(in *CheckPickupInput) Payload
	CreatePickup(in *CreatePickupInput) Payload
	CancelPickup(in *CancelPickupInput) Payload
	GetLocations(in *LocationsInput) Payload
	GetTracking(in *TrackingInput) Payload
}

// Normalizer reads a carrier's raw responses back into canonical results.
type Normalizer interface {
	ValidateAddress(raw json.RawMessage) (*AddressValidationResult, error)
	GetRates(raw json.RawMessage) ([]Rate, error)
	CreateLabel(raw json.RawMessage) (*LabelResult, error)
	CancelLabel(raw json.RawMessage) (*CancelResult, error)
	CheckPickup(raw json.RawMessage) ([]AvailabilityWindow, error)
	CreatePickup(in *CreatePickupInput, raw json.RawMessage) (*PickupResult, error)
	CancelPickup(raw json.RawMessage) (*CancelResult, error)
	GetLocations(raw json.RawMessage) ([]Location, error)
	NormalizeTracking(raw json.RawMessage) (*NormalizedTracking, error)
}

// Binding is everything registered for one carrier.
type Binding struct {
	Provider   Provider
	Builders   Builders
	Normalizer Normalizer
}

// CarrierLookup loads carrier records. GetCarrierByID returns nil, nil when no
// carrier has the id.
type CarrierLookup interface {
	GetCarrierByID(ctx context.Context, id int64) (*Carrier, error)
}
