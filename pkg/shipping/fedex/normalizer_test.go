package fedex_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/fedex"
)

func TestNormalizer_ValidateAddress(t *testing.T) {
	raw := json.RawMessage(`{
		"output": {
			"resolvedAddresses": [{
				"streetLinesToken": ["123 MAIN ST"],
				"city": "DALLAS",
				"stateOrProvinceCode": "TX",
				"postalCode": "75201-1234",
				"countryCode": "US",
				"classification": "BUSINESS",
				"attributes": {"Resolved": "true", "DPV": "true"},
				"customerMessages": [{"code": "STANDARDIZED.ADDRESS.NOTFOUND", "message": ""}]
			}],
			"alerts": [{"code": "VIRTUAL.RESPONSE", "message": "This is a Virtual Response.", "alertType": "NOTE"}]
		}
	}`)

	got, err := fedex.NewNormalizer().ValidateAddress(raw)
	require.NoError(t, err)

	assert.True(t, got.IsValid)
	assert.Equal(t, "BUSINESS", got.Classification)
	require.NotNil(t, got.NormalizedAddress)
	assert.Equal(t, "123 MAIN ST", got.NormalizedAddress.Line1)
	assert.Equal(t, "75201-1234", got.NormalizedAddress.Zip)
	assert.False(t, *got.NormalizedAddress.Residential)
	assert.Equal(t, []string{"STANDARDIZED.ADDRESS.NOTFOUND", "This is a Virtual Response."}, got.Messages)
}

func TestNormalizer_ValidateAddress_Unresolved(t *testing.T) {
	raw := json.RawMessage(`{"output":{"resolvedAddresses":[{"classification":"UNKNOWN","attributes":{"Resolved":"false"}}]}}`)

	got, err := fedex.NewNormalizer().ValidateAddress(raw)
	require.NoError(t, err)
	assert.False(t, got.IsValid)
}

func TestNormalizer_GetRates(t *testing.T) {
	raw := json.RawMessage(`{
		"output": {
			"rateReplyDetails": [
				{
					"serviceType": "FEDEX_GROUND",
					"serviceName": "FedEx Ground",
					"ratedShipmentDetails": [
						{"rateType": "LIST", "totalNetCharge": 21.40, "currency": "USD"},
						{"rateType": "ACCOUNT", "totalNetCharge": 18.25, "currency": "USD"}
					],
					"commit": {"dateDetail": {"dayFormat": "2024-01-05T20:00:00"}, "transitDays": {"description": "3 Business Days"}}
				},
				{"serviceType": "NO_PRICE", "serviceName": "Nothing", "ratedShipmentDetails": []}
			]
		}
	}`)

	rates, err := fedex.NewNormalizer().GetRates(raw)
	require.NoError(t, err)

	require.Len(t, rates, 1)
	assert.Equal(t, shipping.FedEx, rates[0].Carrier)
	assert.Equal(t, "FEDEX_GROUND", rates[0].ServiceCode)
	assert.True(t, decimal.RequireFromString("18.25").Equal(rates[0].Cost))
	assert.Equal(t, "3 Business Days", rates[0].TransitEstimate)
	require.NotNil(t, rates[0].DeliveryEstimate)
	assert.Equal(t, time.Date(2024, 1, 5, 20, 0, 0, 0, time.UTC), *rates[0].DeliveryEstimate)
}

func TestNormalizer_CreateLabel(t *testing.T) {
	raw := json.RawMessage(`{
		"output": {
			"transactionShipments": [{
				"masterTrackingNumber": "794600000000",
				"serviceType": "PRIORITY_OVERNIGHT",
				"pieceResponses": [{
					"trackingNumber": "794600000000",
					"packageDocuments": [{"contentType": "LABEL", "docType": "PDF", "encodedLabel": "JVBERi0xLjQ="}]
				}],
				"completedShipmentDetail": {"shipmentRating": {"shipmentRateDetails": [{"rateType": "ACCOUNT", "totalNetCharge": 64.12, "currency": "USD"}]}}
			}]
		}
	}`)

	got, err := fedex.NewNormalizer().CreateLabel(raw)
	require.NoError(t, err)

	assert.Equal(t, "794600000000", got.TrackingNumber)
	assert.Equal(t, "794600000000", got.LabelID)
	assert.Equal(t, "PDF", got.LabelFormat)
	assert.Equal(t, "JVBERi0xLjQ=", got.LabelArtifact)
	assert.True(t, decimal.RequireFromString("64.12").Equal(got.Cost))
}

func TestNormalizer_CreateLabel_Empty(t *testing.T) {
	_, err := fedex.NewNormalizer().CreateLabel(json.RawMessage(`{"output":{"transactionShipments":[]}}`))
	assert.Error(t, err)
}

func TestNormalizer_CancelLabel(t *testing.T) {
	got, err := fedex.NewNormalizer().CancelLabel(json.RawMessage(`{"output":{"cancelledShipment":true,"message":"Shipment is successfully cancelled"}}`))
	require.NoError(t, err)

	assert.True(t, got.Cancelled)
	assert.Equal(t, "Shipment is successfully cancelled", got.Message)
}

func TestNormalizer_CheckPickup(t *testing.T) {
	raw := json.RawMessage(`{"output":{"options":[{"carrier":"FDXG","available":true,"pickupDate":"2024-01-02","readyTime":"09:00:00","cutOffTime":"16:30:00"}]}}`)

	got, err := fedex.NewNormalizer().CheckPickup(raw)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, shipping.AvailabilityWindow{Date: "2024-01-02", ReadyTime: "09:00", CutoffTime: "16:30", Service: "FDXG", Available: true}, got[0])
}

func TestNormalizer_CreatePickup(t *testing.T) {
	in := &shipping.CreatePickupInput{ReadyDate: "2024-01-02", ReadyTime: "09:30", CloseTime: "17:00", PackageCount: 1, TotalWeight: 1}

	got, err := fedex.NewNormalizer().CreatePickup(in, json.RawMessage(`{"output":{"pickupConfirmationCode":"7","location":"DALA"}}`))
	require.NoError(t, err)

	assert.Equal(t, "7", got.ConfirmationNumber)
	assert.Equal(t, "DALA", got.Location)
	assert.Equal(t, time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC), got.ScheduledAt)
}

func TestNormalizer_CancelPickup(t *testing.T) {
	got, err := fedex.NewNormalizer().CancelPickup(json.RawMessage(`{"output":{"pickupConfirmationCode":"7","cancelConfirmationMessage":"Requested pickup has been cancelled Successfully."}}`))
	require.NoError(t, err)
	assert.True(t, got.Cancelled)
}

func TestNormalizer_GetLocations(t *testing.T) {
	raw := json.RawMessage(`{"output":{"locationDetailList":[{
		"locationId": "DALAK",
		"locationType": "FEDEX_OFFICE",
		"distance": {"units": "MI", "value": 1.4},
		"contactAndAddress": {
			"contact": {"companyName": "FedEx Office Print & Ship Center"},
			"address": {"streetLines": ["1 Elm St"], "city": "Dallas", "stateOrProvinceCode": "TX", "postalCode": "75201", "countryCode": "US"}
		}
	}]}}`)

	got, err := fedex.NewNormalizer().GetLocations(raw)
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "DALAK", got[0].ID)
	assert.Equal(t, "FedEx Office Print & Ship Center", got[0].Name)
	assert.Equal(t, "1 Elm St", got[0].Address.Line1)
	assert.InDelta(t, 1.4, got[0].DistanceMiles, 0.0001)
}
