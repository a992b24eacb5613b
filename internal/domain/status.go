package domain

import "github.com/bullionhub/shipbridge/pkg/shipping"

// ShippingStatus is the stored shipment status.
type ShippingStatus string

const (
	StatusPending        ShippingStatus = "pending"
	StatusLabelCreated   ShippingStatus = "label_created"
	StatusPickedUp       ShippingStatus = "picked_up"
	StatusInTransit      ShippingStatus = "in_transit"
	StatusOutForDelivery ShippingStatus = "out_for_delivery"
	StatusDelivered      ShippingStatus = "delivered"
	StatusException      ShippingStatus = "exception"
	StatusReturned       ShippingStatus = "returned"
	StatusCancelled      ShippingStatus = "cancelled"
	StatusUnknown        ShippingStatus = "unknown"
)

// IsTerminal reports whether no later tracking may change the status.
func (s ShippingStatus) IsTerminal() bool {
	return s == StatusDelivered
}

// StatusFromCanonical maps a canonical tracking status to the stored enum.
func StatusFromCanonical(status string) ShippingStatus {
	switch status {
	case shipping.StatusLabelCreated:
		return StatusLabelCreated
	case shipping.StatusPickedUp:
		return StatusPickedUp
	case shipping.StatusInTransit:
		return StatusInTransit
	case shipping.StatusOutForDelivery:
		return StatusOutForDelivery
	case shipping.StatusDelivered:
		return StatusDelivered
	case shipping.StatusException:
		return StatusException
	case shipping.StatusReturned:
		return StatusReturned
	case shipping.StatusCancelled:
		return StatusCancelled
	default:
		return StatusUnknown
	}
}
