package shipping_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/mock"
)

func newResolver(t *testing.T) (*shipping.Resolver, *mock.Provider) {
	t.Helper()
	carriers := mock.NewCarriers(
		&shipping.Carrier{ID: 1, Name: "FedEx", Active: true},
		&shipping.Carrier{ID: 2, Name: "UPS", Active: true},
		&shipping.Carrier{ID: 3, Name: "fedex", Active: false},
	)
	provider := mock.NewProvider(shipping.FedEx)
	registry := shipping.NewRegistry()
	registry.Register(shipping.FedEx, mock.Binding(provider))
	return shipping.NewResolver(carriers, registry), provider
}

func TestResolver_Resolve(t *testing.T) {
	resolver, _ := newResolver(t)

	res, err := resolver.Resolve(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, shipping.FedEx, res.Code)
	assert.Equal(t, int64(1), res.Carrier.ID)
	assert.Equal(t, shipping.FedEx, res.Provider.Code())
}

func TestResolver_Resolve_Deterministic(t *testing.T) {
	resolver, _ := newResolver(t)

	first, err := resolver.Resolve(context.Background(), 1)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := resolver.Resolve(context.Background(), 1)
		require.NoError(t, err)
		assert.Same(t, first.Provider, again.Provider)
	}

	// Same normalized name resolves the same provider regardless of casing.
	other, err := resolver.Resolve(context.Background(), 3)
	require.NoError(t, err)
	assert.Same(t, first.Provider, other.Provider)
}

func TestResolver_Resolve_UnknownID(t *testing.T) {
	resolver, _ := newResolver(t)

	_, err := resolver.Resolve(context.Background(), 99)

	var resErr *shipping.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, shipping.ErrUnknownCarrierID)
	assert.Equal(t, int64(99), resErr.CarrierID)
}

func TestResolver_Resolve_Unsupported(t *testing.T) {
	resolver, provider := newResolver(t)

	_, err := resolver.Resolve(context.Background(), 2)

	var resErr *shipping.ResolutionError
	require.ErrorAs(t, err, &resErr)
	assert.ErrorIs(t, err, shipping.ErrUnsupportedCarrier)
	assert.Equal(t, shipping.UPS, resErr.Code)
	assert.Zero(t, provider.TotalCalls())
}

func TestResolver_Resolve_LookupFailure(t *testing.T) {
	carriers := mock.NewCarriers()
	carriers.Err = errors.New("connection refused")
	resolver := shipping.NewResolver(carriers, shipping.NewRegistry())

	_, err := resolver.Resolve(context.Background(), 1)
	require.Error(t, err)

	var resErr *shipping.ResolutionError
	assert.False(t, errors.As(err, &resErr), "lookup I/O failures are not resolution errors")
}
