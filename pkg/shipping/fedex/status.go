package fedex

import "github.com/bullionhub/shipbridge/pkg/shipping"

// eventStatuses maps FedEx scan event types to canonical statuses. It is never
// written after package initialization; read it through canonicalStatus.
var eventStatuses = map[string]string{
	"OC": shipping.StatusLabelCreated,

	"PU": shipping.StatusPickedUp,
	"PX": shipping.StatusPickedUp,

	"AA": shipping.StatusInTransit,
	"AC": shipping.StatusInTransit,
	"AF": shipping.StatusInTransit,
	"AR": shipping.StatusInTransit,
	"CC": shipping.StatusInTransit,
	"CH": shipping.StatusInTransit,
	"DP": shipping.StatusInTransit,
	"DS": shipping.StatusInTransit,
	"EA": shipping.StatusInTransit,
	"ED": shipping.StatusInTransit,
	"EO": shipping.StatusInTransit,
	"EP": shipping.StatusInTransit,
	"FD": shipping.StatusInTransit,
	"IT": shipping.StatusInTransit,
	"IX": shipping.StatusInTransit,
	"LO": shipping.StatusInTransit,
	"OF": shipping.StatusInTransit,
	"PF": shipping.StatusInTransit,
	"PL": shipping.StatusInTransit,
	"PM": shipping.StatusInTransit,
	"SF": shipping.StatusInTransit,
	"TR": shipping.StatusInTransit,

	"OD": shipping.StatusOutForDelivery,

	"DL": shipping.StatusDelivered,
	"HP": shipping.StatusDelivered,

	"CD": shipping.StatusException,
	"DE": shipping.StatusException,
	"DY": shipping.StatusException,
	"PD": shipping.StatusException,
	"SE": shipping.StatusException,
	"HL": shipping.StatusException,

	"RS": shipping.StatusReturned,
	"RP": shipping.StatusReturned,

	"CA": shipping.StatusCancelled,
}

// canonicalStatus returns the canonical status for a FedEx event type, or
// shipping.StatusUnknown.
func canonicalStatus(eventType string) string {
	if s, ok := eventStatuses[eventType]; ok {
		return s
	}
	return shipping.StatusUnknown
}
