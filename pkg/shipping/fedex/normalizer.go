package fedex

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// Normalizer reads FedEx responses into canonical results.
type Normalizer struct{}

// NewNormalizer creates a FedEx normalizer.
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

var _ shipping.Normalizer = (*Normalizer)(nil)

var errEmptyResponse = errors.New("response has no results")

// ValidateAddress reports whether FedEx resolved the address, and its
// standardized form. The address is valid when FedEx marks it resolved and
// DPV-confirmed.
func (n *Normalizer) ValidateAddress(raw json.RawMessage) (*shipping.AddressValidationResult, error) {
	var resp AddressValidationResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode address response: %w", err)
	}
	if len(resp.Output.ResolvedAddresses) == 0 {
		return nil, errEmptyResponse
	}
	ra := resp.Output.ResolvedAddresses[0]

	messages := make([]string, 0)
	for _, m := range ra.CustomerMessages {
		messages = append(messages, alertText(m))
	}
	for _, a := range resp.Output.Alerts {
		messages = append(messages, alertText(a))
	}

	valid := strings.EqualFold(ra.Attributes["Resolved"], "true") &&
		!strings.EqualFold(ra.Attributes["DPV"], "false")

	residential := strings.EqualFold(ra.Classification, "RESIDENTIAL")
	normalized := &shipping.Address{
		City:        ra.City,
		State:       ra.StateOrProvinceCode,
		Zip:         ra.PostalCode,
		CountryCode: ra.CountryCode,
		Residential: &residential,
	}
	if len(ra.StreetLinesToken) > 0 {
		normalized.Line1 = ra.StreetLinesToken[0]
	}
	if len(ra.StreetLinesToken) > 1 {
		normalized.Line2 = strings.Join(ra.StreetLinesToken[1:], " ")
	}

	return &shipping.AddressValidationResult{
		IsValid:           valid,
		NormalizedAddress: normalized,
		Classification:    ra.Classification,
		Messages:          messages,
	}, nil
}

// GetRates returns one rate per quoted service, preferring the account rate
// over list.
func (n *Normalizer) GetRates(raw json.RawMessage) ([]shipping.Rate, error) {
	var resp RateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode rate response: %w", err)
	}

	rates := make([]shipping.Rate, 0, len(resp.Output.RateReplyDetails))
	for _, d := range resp.Output.RateReplyDetails {
		detail, ok := pickRate(d.RatedShipmentDetails)
		if !ok {
			continue
		}
		rate := shipping.Rate{
			Carrier:     shipping.FedEx,
			ServiceCode: d.ServiceType,
			ServiceName: d.ServiceName,
			Cost:        detail.TotalNetCharge,
			Currency:    detail.Currency,
		}
		if rate.Currency == "" {
			rate.Currency = defaultCurrency
		}
		if c := d.Commit; c != nil {
			if c.TransitDays != nil {
				rate.TransitEstimate = c.TransitDays.Description
			}
			if c.DateDetail != nil {
				if t, err := shipping.ParseCarrierTime(c.DateDetail.DayFormat); err == nil {
					rate.DeliveryEstimate = &t
				}
			}
		}
		rates = append(rates, rate)
	}
	return rates, nil
}

func pickRate(details []RatedShipmentDetail) (RatedShipmentDetail, bool) {
	if len(details) == 0 {
		return RatedShipmentDetail{}, false
	}
	for _, d := range details {
		if d.RateType == "ACCOUNT" {
			return d, true
		}
	}
	return details[0], true
}

// CreateLabel extracts the tracking number, label artifact and cost.
func (n *Normalizer) CreateLabel(raw json.RawMessage) (*shipping.LabelResult, error) {
	var resp ShipmentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode shipment response: %w", err)
	}
	if len(resp.Output.TransactionShipments) == 0 {
		return nil, errEmptyResponse
	}
	ts := resp.Output.TransactionShipments[0]

	result := &shipping.LabelResult{
		LabelID:        ts.MasterTrackingNumber,
		TrackingNumber: ts.MasterTrackingNumber,
		Currency:       defaultCurrency,
	}
	for _, piece := range ts.PieceResponses {
		if result.TrackingNumber == "" {
			result.TrackingNumber = piece.TrackingNumber
			result.LabelID = piece.TrackingNumber
		}
		for _, doc := range piece.PackageDocuments {
			if result.LabelArtifact != "" || result.LabelURL != "" {
				break
			}
			result.LabelFormat = doc.DocType
			result.LabelArtifact = doc.EncodedLabel
			result.LabelURL = doc.URL
		}
	}
	if c := ts.CompletedShipmentDetail; c != nil && c.ShipmentRating != nil {
		if d, ok := pickRate(c.ShipmentRating.ShipmentRateDetails); ok {
			result.Cost = d.TotalNetCharge
			if d.Currency != "" {
				result.Currency = d.Currency
			}
		}
	}
	if result.TrackingNumber == "" {
		return nil, errors.New("shipment response has no tracking number")
	}
	return result, nil
}

// CancelLabel reports the cancellation outcome.
func (n *Normalizer) CancelLabel(raw json.RawMessage) (*shipping.CancelResult, error) {
	var resp CancelShipmentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode cancel response: %w", err)
	}
	return &shipping.CancelResult{
		Cancelled: resp.Output.CancelledShipment,
		Message:   resp.Output.Message,
	}, nil
}

// CheckPickup lists the offered pickup windows.
func (n *Normalizer) CheckPickup(raw json.RawMessage) ([]shipping.AvailabilityWindow, error) {
	var resp PickupAvailabilityResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode pickup availability response: %w", err)
	}
	windows := make([]shipping.AvailabilityWindow, 0, len(resp.Output.Options))
	for _, o := range resp.Output.Options {
		windows = append(windows, shipping.AvailabilityWindow{
			Date:       o.PickupDate,
			ReadyTime:  trimSeconds(o.ReadyTime),
			CutoffTime: trimSeconds(o.CutOffTime),
			Service:    o.Carrier,
			Available:  o.Available,
		})
	}
	return windows, nil
}

// CreatePickup reads the confirmation. FedEx does not echo the pickup time, so
// it is taken from the request.
func (n *Normalizer) CreatePickup(in *shipping.CreatePickupInput, raw json.RawMessage) (*shipping.PickupResult, error) {
	var resp CreatePickupResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode pickup response: %w", err)
	}
	if resp.Output.PickupConfirmationCode == "" {
		return nil, errors.New("pickup response has no confirmation code")
	}
	scheduled, err := time.Parse("2006-01-02 15:04", in.ReadyDate+" "+in.ReadyTime)
	if err != nil {
		return nil, fmt.Errorf("parse pickup ready time: %w", err)
	}
	return &shipping.PickupResult{
		ConfirmationNumber: resp.Output.PickupConfirmationCode,
		ScheduledAt:        scheduled,
		Location:           resp.Output.Location,
	}, nil
}

// CancelPickup reports the cancellation outcome.
func (n *Normalizer) CancelPickup(raw json.RawMessage) (*shipping.CancelResult, error) {
	var resp CancelPickupResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode pickup cancel response: %w", err)
	}
	return &shipping.CancelResult{
		Cancelled: resp.Output.PickupConfirmationCode != "" || resp.Output.CancelConfirmationMessage != "",
		Message:   resp.Output.CancelConfirmationMessage,
	}, nil
}

// GetLocations lists nearby locations.
func (n *Normalizer) GetLocations(raw json.RawMessage) ([]shipping.Location, error) {
	var resp LocationsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode locations response: %w", err)
	}
	locations := make([]shipping.Location, 0, len(resp.Output.LocationDetailList))
	for _, l := range resp.Output.LocationDetailList {
		addr := l.ContactAndAddress.Address
		loc := shipping.Location{
			ID:            l.LocationID,
			Name:          l.ContactAndAddress.Contact.CompanyName,
			Type:          l.LocationType,
			DistanceMiles: l.Distance.Value,
			Address: shipping.Address{
				City:        addr.City,
				State:       addr.StateOrProvinceCode,
				Zip:         addr.PostalCode,
				CountryCode: addr.CountryCode,
			},
		}
		if len(addr.StreetLines) > 0 {
			loc.Address.Line1 = addr.StreetLines[0]
		}
		if len(addr.StreetLines) > 1 {
			loc.Address.Line2 = addr.StreetLines[1]
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func alertText(a Alert) string {
	if a.Message != "" {
		return a.Message
	}
	return a.Code
}

// trimSeconds turns "09:00:00" into "09:00".
func trimSeconds(t string) string {
	if len(t) == len("15:04:05") && strings.Count(t, ":") == 2 {
		return t[:5]
	}
	return t
}
