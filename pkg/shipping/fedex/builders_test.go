package fedex_test

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/fedex"
)

var returnAddress = shipping.Address{
	Name:        "Vault Ops",
	Company:     "Bullion Hub",
	Phone:       "2145550100",
	Line1:       "500 Commerce St",
	Line2:       "Suite 9",
	City:        "Dallas",
	State:       "TX",
	Zip:         "75202",
	CountryCode: "US",
}

func newBuilders() *fedex.Builders {
	return fedex.NewBuilders("123456789", returnAddress)
}

func dallas() shipping.Address {
	return shipping.Address{
		Line1:       "123 Main St",
		Line2:       "",
		City:        "Dallas",
		State:       "TX",
		Zip:         "75201",
		CountryCode: "US",
	}
}

func TestBuilders_AddressLines(t *testing.T) {
	payload := newBuilders().ValidateAddress(&shipping.AddressValidationInput{Address: dallas()})

	req, ok := payload.(*fedex.AddressValidationRequest)
	require.True(t, ok)
	require.Len(t, req.AddressesToValidate, 1)

	addr := req.AddressesToValidate[0].Address
	assert.Equal(t, []string{"123 Main St"}, addr.StreetLines)
	assert.Equal(t, "TX", addr.StateOrProvinceCode)
	assert.Equal(t, "75201", addr.PostalCode)
	assert.Equal(t, "US", addr.CountryCode)
	assert.False(t, addr.Residential, "residential defaults to false")
}

func TestBuilders_Residential(t *testing.T) {
	in := dallas()
	yes := true
	in.Residential = &yes

	req := newBuilders().ValidateAddress(&shipping.AddressValidationInput{Address: in}).(*fedex.AddressValidationRequest)

	assert.True(t, req.AddressesToValidate[0].Address.Residential)
}

func TestBuilders_Pure(t *testing.T) {
	b := newBuilders()
	in := &shipping.CreateLabelInput{
		Recipient:     dallas(),
		Packages:      []shipping.Package{{Weight: 2, Length: 6, Width: 4, Height: 2}},
		ServiceType:   "PRIORITY_OVERNIGHT",
		ShipDate:      "2024-01-02",
		DeclaredValue: decimal.RequireFromString("2450.75"),
		Insured:       true,
		Reference:     "SO-1001",
	}

	first, err := json.Marshal(b.CreateLabel(in))
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := json.Marshal(b.CreateLabel(in))
		require.NoError(t, err)
		assert.Equal(t, string(first), string(again))
	}
}

func TestBuilders_GetRates_DefaultsOrigin(t *testing.T) {
	req := newBuilders().GetRates(&shipping.RatesInput{
		Destination: dallas(),
		Packages:    []shipping.Package{{Weight: 1}},
	}).(*fedex.RateRequest)

	assert.Equal(t, "123456789", req.AccountNumber.Value)
	assert.Equal(t, []string{"500 Commerce St", "Suite 9"}, req.RequestedShipment.Shipper.Address.StreetLines)
	assert.Nil(t, req.RequestedShipment.TotalDeclaredValue)
	require.Len(t, req.RequestedShipment.RequestedPackageLineItems, 1)
	assert.Nil(t, req.RequestedShipment.RequestedPackageLineItems[0].Dimensions)
}

func TestBuilders_CreateLabel(t *testing.T) {
	req := newBuilders().CreateLabel(&shipping.CreateLabelInput{
		Recipient:     dallas(),
		Packages:      []shipping.Package{{Weight: 2, Length: 6, Width: 4, Height: 2}},
		ServiceType:   "PRIORITY_OVERNIGHT",
		ShipDate:      "2024-01-02",
		DeclaredValue: decimal.NewFromInt(5000),
		Insured:       true,
		Reference:     "SO-1001",
	}).(*fedex.ShipmentRequest)

	rs := req.RequestedShipment
	assert.Equal(t, "PDF", rs.LabelSpecification.ImageType)
	require.NotNil(t, rs.Shipper.Contact)
	assert.Equal(t, "Bullion Hub", rs.Shipper.Contact.CompanyName)
	require.NotNil(t, rs.TotalDeclaredValue)
	assert.True(t, decimal.NewFromInt(5000).Equal(rs.TotalDeclaredValue.Amount))
	require.NotNil(t, rs.RequestedPackageLineItems[0].Dimensions)
	assert.Equal(t, "SO-1001", rs.RequestedPackageLineItems[0].CustomerReferences[0].Value)
}

func TestBuilders_CreateLabel_Uninsured(t *testing.T) {
	req := newBuilders().CreateLabel(&shipping.CreateLabelInput{
		Recipient:     dallas(),
		Packages:      []shipping.Package{{Weight: 1}},
		ServiceType:   "FEDEX_GROUND",
		ShipDate:      "2024-01-02",
		DeclaredValue: decimal.NewFromInt(100),
		LabelFormat:   "ZPLII",
	}).(*fedex.ShipmentRequest)

	assert.Nil(t, req.RequestedShipment.TotalDeclaredValue)
	assert.Equal(t, "ZPLII", req.RequestedShipment.LabelSpecification.ImageType)
}

func TestBuilders_CreatePickup(t *testing.T) {
	req := newBuilders().CreatePickup(&shipping.CreatePickupInput{
		ReadyDate:    "2024-01-02",
		ReadyTime:    "09:30",
		CloseTime:    "17:00",
		PackageCount: 2,
		TotalWeight:  4.5,
	}).(*fedex.CreatePickupRequest)

	assert.Equal(t, "2024-01-02T09:30:00", req.OriginDetail.ReadyDateTimestamp)
	assert.Equal(t, "17:00:00", req.OriginDetail.CustomerCloseTime)
	assert.Equal(t, "FRONT", req.OriginDetail.PackageLocation)
	assert.Equal(t, "75202", req.OriginDetail.PickupLocation.Address.PostalCode)
	assert.Equal(t, 2, req.PackageCount)
}

func TestBuilders_CancelLabel(t *testing.T) {
	req := newBuilders().CancelLabel(&shipping.CancelLabelInput{LabelID: "794600000000"}).(*fedex.CancelShipmentRequest)

	assert.Equal(t, "794600000000", req.TrackingNumber)
	assert.Equal(t, "DELETE_ALL_PACKAGES", req.DeletionControl)
}

func TestBuilders_GetTracking(t *testing.T) {
	req := newBuilders().GetTracking(&shipping.TrackingInput{TrackingNumber: " 794600000000 "}).(*fedex.TrackingRequest)

	assert.True(t, req.IncludeDetailedScans)
	assert.Equal(t, "794600000000", req.TrackingInfo[0].TrackingNumberInfo.TrackingNumber)
}

func TestBuilders_CheckPickup_Relationship(t *testing.T) {
	in := dallas()
	in.CountryCode = "CA"

	req := newBuilders().CheckPickup(&shipping.CheckPickupInput{Address: in, ReadyDate: "2024-01-02"}).(*fedex.PickupAvailabilityRequest)

	assert.Equal(t, "INTERNATIONAL", req.CountryRelationship)
}
