// Package domain holds the persisted shipping records this service owns.
package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// ErrInvalidTransitDays is returned when a service's minimum transit time
// exceeds its maximum.
var ErrInvalidTransitDays = errors.New("min transit days exceeds max transit days")

// CarrierService is one service level offered by a carrier.
type CarrierService struct {
	ID             int64
	CarrierID      int64
	ServiceCode    string
	Name           string
	MinTransitDays int
	MaxTransitDays int
	Pickup         bool
	Dropoff        bool
	Returns        bool
	Insurance      bool
	MaxWeightLbs   float64
	MaxLengthIn    float64
	Active         bool
	DisplayOrder   int
}

// Validate checks the service's invariants.
func (s *CarrierService) Validate() error {
	if s.MinTransitDays > s.MaxTransitDays {
		return ErrInvalidTransitDays
	}
	return nil
}

// Shipment is a parcel shipped for a purchase or sales order.
type Shipment struct {
	ID int64
	// Exactly one of PurchaseOrderID and SalesOrderID is set.
	PurchaseOrderID   *int64
	SalesOrderID      *int64
	CarrierID         int64
	TrackingNumber    string
	LabelID           string
	LabelArtifact     string
	ServiceType       string
	DeclaredValue     decimal.Decimal
	Insured           bool
	WeightLbs         float64
	LengthIn          float64
	WidthIn           float64
	HeightIn          float64
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
	Status            ShippingStatus
	TrackingStatus    string
	UpdatedAt         time.Time
}

// TrackingEvent is one persisted scan. Events are immutable and replaced as
// a whole set on each refresh.
type TrackingEvent struct {
	ID          int64
	ShipmentID  int64
	StatusCode  string
	Status      string
	Description string
	Location    string
	ScannedAt   time.Time
}

// TrackingEventsFrom converts normalized scans into events for shipmentID.
func TrackingEventsFrom(shipmentID int64, scans []shipping.ScanEvent) []TrackingEvent {
	events := make([]TrackingEvent, 0, len(scans))
	for _, s := range scans {
		events = append(events, TrackingEvent{
			ShipmentID:  shipmentID,
			StatusCode:  s.Code,
			Status:      s.Status,
			Description: s.Description,
			Location:    s.Location,
			ScannedAt:   s.ScannedAt,
		})
	}
	return events
}

// PickupStatus is the lifecycle of a scheduled pickup.
type PickupStatus string

const (
	PickupScheduled PickupStatus = "scheduled"
	PickupCancelled PickupStatus = "cancelled"
)

// CarrierPickup is a pickup scheduled with a carrier for a shipment.
type CarrierPickup struct {
	ID                 int64
	ShipmentID         int64
	CarrierID          int64
	RequestedAt        time.Time
	Status             PickupStatus
	ConfirmationNumber string
	Location           string
	CreatedAt          time.Time
}
