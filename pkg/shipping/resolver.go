package shipping

import (
	"context"
	"fmt"
)

// Resolved is a carrier record together with its registered binding.
type Resolved struct {
	Carrier *Carrier
	Code    Code
	Binding
}

// Resolver turns a carrier id into the binding registered for its code.
type Resolver struct {
	carriers CarrierLookup
	registry *Registry
}

// NewResolver creates a resolver over a carrier lookup and a registry.
func NewResolver(carriers CarrierLookup, registry *Registry) *Resolver {
	return &Resolver{carriers: carriers, registry: registry}
}

// Resolve looks up the carrier and its binding. Failures to find the carrier,
// a provider, or builders are reported as *ResolutionError; lookup I/O
// failures are returned wrapped as-is.
func (r *Resolver) Resolve(ctx context.Context, carrierID int64) (*Resolved, error) {
	carrier, err := r.carriers.GetCarrierByID(ctx, carrierID)
	if err != nil {
		return nil, fmt.Errorf("get carrier %d: %w", carrierID, err)
	}
	if carrier == nil {
		return nil, &ResolutionError{CarrierID: carrierID, Cause: ErrUnknownCarrierID}
	}

	code := carrier.Code()
	binding, err := r.registry.Lookup(code)
	if err != nil {
		return nil, &ResolutionError{CarrierID: carrierID, Code: code, Cause: err}
	}

	return &Resolved{Carrier: carrier, Code: code, Binding: binding}, nil
}
