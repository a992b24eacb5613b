// Package mock provides in-memory carrier bindings for testing.
package mock

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// Provider is a mock shipping.Provider. Unless OnCall is set it answers every
// operation with a canned canonical result encoded as JSON, which Normalizer
// decodes back.
type Provider struct {
	code shipping.Code

	SimulateLatency time.Duration
	OnCall          func(ctx context.Context, op shipping.Operation, p shipping.Payload) (json.RawMessage, error)

	mu    sync.Mutex
	calls map[shipping.Operation]int
	last  map[shipping.Operation]shipping.Payload
}

// NewProvider creates a mock provider for code.
func NewProvider(code shipping.Code) *Provider {
	return &Provider{
		code:  code,
		calls: make(map[shipping.Operation]int),
		last:  make(map[shipping.Operation]shipping.Payload),
	}
}

// Code returns the carrier code.
func (p *Provider) Code() shipping.Code { return p.code }

// Calls returns how many times op was invoked.
func (p *Provider) Calls(op shipping.Operation) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[op]
}

// TotalCalls returns the number of invocations across all operations.
func (p *Provider) TotalCalls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

// LastPayload returns the most recent payload passed for op.
func (p *Provider) LastPayload(op shipping.Operation) shipping.Payload {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last[op]
}

func (p *Provider) do(ctx context.Context, op shipping.Operation, payload shipping.Payload) (json.RawMessage, error) {
	p.mu.Lock()
	p.calls[op]++
	p.last[op] = payload
	p.mu.Unlock()

	if p.SimulateLatency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.SimulateLatency):
		}
	}

	if p.OnCall != nil {
		return p.OnCall(ctx, op, payload)
	}
	return json.Marshal(Canned(p.code, op))
}

func (p *Provider) ValidateAddress(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpValidateAddress, pl)
}

func (p *Provider) GetRates(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetRates, pl)
}

func (p *Provider) CreateLabel(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCreateLabel, pl)
}

func (p *Provider) CancelLabel(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCancelLabel, pl)
}

func (p *Provider) CheckPickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCheckPickup, pl)
}

func (p *Provider) CreatePickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCreatePickup, pl)
}

func (p *Provider) CancelPickup(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpCancelPickup, pl)
}

func (p *Provider) GetLocations(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetLocations, pl)
}

func (p *Provider) GetTracking(ctx context.Context, pl shipping.Payload) (json.RawMessage, error) {
	return p.do(ctx, shipping.OpGetTracking, pl)
}

// Canned returns the default canonical result for op.
func Canned(code shipping.Code, op shipping.Operation) any {
	switch op {
	case shipping.OpValidateAddress:
		return &shipping.AddressValidationResult{IsValid: true, Classification: "BUSINESS", Messages: []string{}}
	case shipping.OpGetRates:
		return []shipping.Rate{{Carrier: code, ServiceCode: "GROUND", ServiceName: "Ground", Currency: "USD", TransitEstimate: "3 days"}}
	case shipping.OpCreateLabel:
		return &shipping.LabelResult{LabelID: "LBL-1", TrackingNumber: "TRK-1", LabelFormat: "PDF", Currency: "USD"}
	case shipping.OpCancelLabel, shipping.OpCancelPickup:
		return &shipping.CancelResult{Cancelled: true}
	case shipping.OpCheckPickup:
		return []shipping.AvailabilityWindow{{Date: "2024-01-02", ReadyTime: "09:00", CutoffTime: "17:00", Available: true}}
	case shipping.OpCreatePickup:
		return &shipping.PickupResult{ConfirmationNumber: "PU-1", ScheduledAt: time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)}
	case shipping.OpGetLocations:
		return []shipping.Location{{ID: "LOC-1", Name: "Store"}}
	case shipping.OpGetTracking:
		return &shipping.NormalizedTracking{
			TrackingNumber:        "TRK-1",
			EstimatedDeliveryTime: shipping.EstimatedDeliveryTBD,
			ScanEvents:            []shipping.ScanEvent{},
			LatestStatus:          shipping.LatestStatusUnknown,
		}
	}
	return nil
}

// Builders is a mock shipping.Builders that wraps the input in a Request.
type Builders struct{}

// Request is the payload produced by Builders.
type Request struct {
	Operation shipping.Operation
	Input     any
}

func (Builders) ValidateAddress(in *shipping.AddressValidationInput) shipping.Payload {
	return Request{shipping.OpValidateAddress, in}
}

func (Builders) GetRates(in *shipping.RatesInput) shipping.Payload {
	return Request{shipping.OpGetRates, in}
}

func (Builders) CreateLabel(in *shipping.CreateLabelInput) shipping.Payload {
	return Request{shipping.OpCreateLabel, in}
}

func (Builders) CancelLabel(in *shipping.CancelLabelInput) shipping.Payload {
	return Request{shipping.OpCancelLabel, in}
}

func (Builders) CheckPickup(in *shipping.CheckPickupInput) shipping.Payload {
	return Request{shipping.OpCheckPickup, in}
}

func (Builders) CreatePickup(in *shipping.CreatePickupInput) shipping.Payload {
	return Request{shipping.OpCreatePickup, in}
}

func (Builders) CancelPickup(in *shipping.CancelPickupInput) shipping.Payload {
	return Request{shipping.OpCancelPickup, in}
}

func (Builders) GetLocations(in *shipping.LocationsInput) shipping.Payload {
	return Request{shipping.OpGetLocations, in}
}

func (Builders) GetTracking(in *shipping.TrackingInput) shipping.Payload {
	return Request{shipping.OpGetTracking, in}
}

// Normalizer is a mock shipping.Normalizer that decodes canonical JSON.
type Normalizer struct{}

func decode[T any](raw json.RawMessage) (T, error) {
	var out T
	err := json.Unmarshal(raw, &out)
	return out, err
}

func (Normalizer) ValidateAddress(raw json.RawMessage) (*shipping.AddressValidationResult, error) {
	return decode[*shipping.AddressValidationResult](raw)
}

func (Normalizer) GetRates(raw json.RawMessage) ([]shipping.Rate, error) {
	return decode[[]shipping.Rate](raw)
}

func (Normalizer) CreateLabel(raw json.RawMessage) (*shipping.LabelResult, error) {
	return decode[*shipping.LabelResult](raw)
}

func (Normalizer) CancelLabel(raw json.RawMessage) (*shipping.CancelResult, error) {
	return decode[*shipping.CancelResult](raw)
}

func (Normalizer) CheckPickup(raw json.RawMessage) ([]shipping.AvailabilityWindow, error) {
	return decode[[]shipping.AvailabilityWindow](raw)
}

func (Normalizer) CreatePickup(_ *shipping.CreatePickupInput, raw json.RawMessage) (*shipping.PickupResult, error) {
	return decode[*shipping.PickupResult](raw)
}

func (Normalizer) CancelPickup(raw json.RawMessage) (*shipping.CancelResult, error) {
	return decode[*shipping.CancelResult](raw)
}

func (Normalizer) GetLocations(raw json.RawMessage) ([]shipping.Location, error) {
	return decode[[]shipping.Location](raw)
}

func (Normalizer) NormalizeTracking(raw json.RawMessage) (*shipping.NormalizedTracking, error) {
	return decode[*shipping.NormalizedTracking](raw)
}

// Binding returns a complete binding around provider.
func Binding(provider *Provider) shipping.Binding {
	return shipping.Binding{Provider: provider, Builders: Builders{}, Normalizer: Normalizer{}}
}

// Carriers is an in-memory shipping.CarrierLookup.
type Carriers struct {
	mu       sync.RWMutex
	carriers map[int64]*shipping.Carrier
	Err      error
}

// NewCarriers creates a lookup seeded with carriers.
func NewCarriers(carriers ...*shipping.Carrier) *Carriers {
	c := &Carriers{carriers: make(map[int64]*shipping.Carrier)}
	for _, carrier := range carriers {
		c.carriers[carrier.ID] = carrier
	}
	return c
}

// Add stores or replaces a carrier.
func (c *Carriers) Add(carrier *shipping.Carrier) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.carriers[carrier.ID] = carrier
}

// GetCarrierByID implements shipping.CarrierLookup.
func (c *Carriers) GetCarrierByID(_ context.Context, id int64) (*shipping.Carrier, error) {
	if c.Err != nil {
		return nil, c.Err
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	carrier, ok := c.carriers[id]
	if !ok {
		return nil, nil
	}
	cp := *carrier
	return &cp, nil
}
