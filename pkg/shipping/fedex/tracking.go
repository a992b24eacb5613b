package fedex

import (
	"encoding/json"
	"fmt"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

const dateTypeEstimatedDelivery = "ESTIMATED_DELIVERY"

// NormalizeTracking turns a FedEx tracking reply into the canonical view.
//
// Events with unmapped codes or unparseable timestamps are dropped. The
// remaining events are reversed from FedEx's newest-first order and then stably
// sorted by scan time, so equal timestamps keep their chronological order.
func (n *Normalizer) NormalizeTracking(raw json.RawMessage) (*shipping.NormalizedTracking, error) {
	var resp TrackingResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode tracking response: %w", err)
	}

	out := &shipping.NormalizedTracking{
		EstimatedDeliveryTime: shipping.EstimatedDeliveryTBD,
		ScanEvents:            []shipping.ScanEvent{},
		LatestStatus:          shipping.LatestStatusUnknown,
	}

	result, trackingNumber := firstTrackResult(&resp)
	out.TrackingNumber = trackingNumber
	if result == nil {
		return out, nil
	}
	if result.Error != nil && len(result.ScanEvents) == 0 {
		return nil, shipping.NewProviderError(shipping.FedEx, shipping.OpGetTracking, result.Error.Code, result.Error.Message).
			WithPayload(raw)
	}

	events := make([]shipping.ScanEvent, 0, len(result.ScanEvents))
	for _, e := range result.ScanEvents {
		status := canonicalStatus(e.EventType)
		if status == shipping.StatusUnknown {
			continue
		}
		scannedAt, err := shipping.ParseCarrierTime(e.Date)
		if err != nil {
			continue
		}
		events = append(events, shipping.ScanEvent{
			Code:        e.EventType,
			Status:      status,
			Description: e.EventDescription,
			Location:    formatLocation(e.ScanLocation),
			ScannedAt:   scannedAt,
		})
	}
	slices.Reverse(events)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ScannedAt.Before(events[j].ScannedAt)
	})

	out.ScanEvents = events
	out.EstimatedDeliveryTime = estimatedDelivery(result)
	if len(events) > 0 {
		out.LatestStatus = events[len(events)-1].Status
	}
	for _, e := range events {
		if e.Status == shipping.StatusDelivered {
			at := e.ScannedAt
			out.DeliveredAt = &at
			break
		}
	}
	return out, nil
}

func firstTrackResult(resp *TrackingResponse) (*TrackResult, string) {
	for _, complete := range resp.Output.CompleteTrackResults {
		if len(complete.TrackResults) > 0 {
			tr := &complete.TrackResults[0]
			number := complete.TrackingNumber
			if number == "" {
				number = tr.TrackingNumberInfo.TrackingNumber
			}
			return tr, number
		}
	}
	return nil, ""
}

// estimatedDelivery prefers the delivery window end, then the standard transit
// window end, then a dated ESTIMATED_DELIVERY entry.
func estimatedDelivery(r *TrackResult) string {
	if w := r.EstimatedDeliveryTimeWindow; w != nil && w.Window.Ends != "" {
		return w.Window.Ends
	}
	if w := r.StandardTransitTimeWindow; w != nil && w.Window.Ends != "" {
		return w.Window.Ends
	}
	for _, dt := range r.DateAndTimes {
		if dt.Type == dateTypeEstimatedDelivery && dt.DateTime != "" {
			return dt.DateTime
		}
	}
	return shipping.EstimatedDeliveryTBD
}

// formatLocation renders "City, ST" with the city title-cased.
func formatLocation(loc *ScanLocation) string {
	if loc == nil {
		return ""
	}
	city := strings.TrimSpace(loc.City)
	state := strings.TrimSpace(loc.StateOrProvinceCode)
	if city != "" {
		city = cases.Title(language.AmericanEnglish).String(city)
	}
	switch {
	case city != "" && state != "":
		return city + ", " + state
	case city != "":
		return city
	default:
		return state
	}
}
