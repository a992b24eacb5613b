package shipping

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Code identifies a carrier implementation. It is derived from the carrier's
// configured name, never typed in by callers.
type Code string

const (
	FedEx Code = "fedex"
	UPS   Code = "ups"
)

// KnownCodes returns every carrier the code base knows about, implemented or not.
func KnownCodes() []Code {
	return []Code{FedEx, UPS}
}

// NormalizeCode turns a stored carrier name into its lookup code.
func NormalizeCode(name string) Code {
	return Code(strings.ToLower(strings.TrimSpace(name)))
}

// Carrier is the configured carrier record referenced by shipments.
type Carrier struct {
	ID           int64
	Name         string
	DisplayName  string
	ContactEmail string
	ContactPhone string
	Active       bool
}

// Code returns the normalized lookup code for the carrier.
func (c *Carrier) Code() Code {
	return NormalizeCode(c.Name)
}

// Address is a postal address as callers supply it.
type Address struct {
	Name        string `json:"name,omitempty"`
	Company     string `json:"company,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Email       string `json:"email,omitempty"`
	Line1       string `json:"line_1" validate:"required"`
	Line2       string `json:"line_2,omitempty"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	Zip         string `json:"zip" validate:"required"`
	CountryCode string `json:"country_code" validate:"required,len=2"`
	Residential *bool  `json:"residential,omitempty"`
}

// Package describes one parcel. Weight is in pounds, dimensions in inches.
type Package struct {
	Weight float64 `json:"weight" validate:"gt=0"`
	Length float64 `json:"length,omitempty" validate:"gte=0"`
	Width  float64 `json:"width,omitempty" validate:"gte=0"`
	Height float64 `json:"height,omitempty" validate:"gte=0"`
}

// ============================================================================
// Operation inputs
// ============================================================================

// AddressValidationInput is the input of ValidateAddress.
type AddressValidationInput struct {
	Address Address `json:"address"`
}

// RatesInput is the input of GetRates.
type RatesInput struct {
	// Origin defaults to the configured return address.
	Origin        *Address        `json:"origin,omitempty"`
	Destination   Address         `json:"destination"`
	Packages      []Package       `json:"packages" validate:"required,min=1,dive"`
	ServiceType   string          `json:"service_type,omitempty"`
	ShipDate      string          `json:"ship_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
}

// CreateLabelInput is the input of CreateLabel.
type CreateLabelInput struct {
	// Shipper defaults to the configured return address.
	Shipper       *Address        `json:"shipper,omitempty"`
	Recipient     Address         `json:"recipient"`
	Packages      []Package       `json:"packages" validate:"required,min=1,dive"`
	ServiceType   string          `json:"service_type" validate:"required"`
	ShipDate      string          `json:"ship_date" validate:"required,datetime=2006-01-02"`
	DeclaredValue decimal.Decimal `json:"declared_value"`
	Insured       bool            `json:"insured"`
	Reference     string          `json:"reference,omitempty"`
	LabelFormat   string          `json:"label_format,omitempty" validate:"omitempty,oneof=PDF PNG ZPLII"`
}

// CancelLabelInput is the input of CancelLabel. For FedEx the label id is the
// tracking number assigned at label creation.
type CancelLabelInput struct {
	LabelID string `json:"label_id" validate:"required"`
}

// CheckPickupInput is the input of CheckPickup.
type CheckPickupInput struct {
	Address   Address `json:"address"`
	ReadyDate string  `json:"ready_date" validate:"required,datetime=2006-01-02"`
}

// CreatePickupInput is the input of CreatePickup.
type CreatePickupInput struct {
	// Address defaults to the configured return address.
	Address      *Address `json:"address,omitempty"`
	ReadyDate    string   `json:"ready_date" validate:"required,datetime=2006-01-02"`
	ReadyTime    string   `json:"ready_time" validate:"required,datetime=15:04"`
	CloseTime    string   `json:"close_time" validate:"required,datetime=15:04"`
	PackageCount int      `json:"package_count" validate:"required,gt=0"`
	TotalWeight  float64  `json:"total_weight" validate:"gt=0"`
	Location     string   `json:"location,omitempty"`
	Remarks      string   `json:"remarks,omitempty"`
}

// CancelPickupInput is the input of CancelPickup.
type CancelPickupInput struct {
	ConfirmationNumber string `json:"confirmation_number" validate:"required"`
	ScheduledDate      string `json:"scheduled_date" validate:"required,datetime=2006-01-02"`
	Location           string `json:"location,omitempty"`
}

// LocationsInput is the input of GetLocations.
type LocationsInput struct {
	Address     Address `json:"address"`
	RadiusMiles int     `json:"radius_miles" validate:"gt=0,lte=100"`
	MaxResults  int     `json:"max_results" validate:"gt=0,lte=50"`
}

// TrackingInput is the input of GetTracking.
type TrackingInput struct {
	TrackingNumber string `json:"tracking_number" validate:"required"`
}

// ============================================================================
// Operation results
// ============================================================================

// AddressValidationResult is the normalized address validation outcome.
type AddressValidationResult struct {
	IsValid           bool     `json:"is_valid"`
	NormalizedAddress *Address `json:"normalized_address,omitempty"`
	Classification    string   `json:"classification,omitempty"`
	Messages          []string `json:"messages"`
}

// Rate is one quoted service.
type Rate struct {
	Carrier          Code            `json:"carrier"`
	ServiceCode      string          `json:"service_code"`
	ServiceName      string          `json:"service_name"`
	Cost             decimal.Decimal `json:"cost"`
	Currency         string          `json:"currency"`
	TransitEstimate  string          `json:"transit_estimate"`
	DeliveryEstimate *time.Time      `json:"delivery_estimate,omitempty"`
}

// LabelResult is the outcome of label creation.
type LabelResult struct {
	LabelID        string          `json:"label_id"`
	TrackingNumber string          `json:"tracking_number"`
	LabelFormat    string          `json:"label_format"`
	LabelArtifact  string          `json:"label_artifact,omitempty"` // base64 encoded
	LabelURL       string          `json:"label_url,omitempty"`
	Cost           decimal.Decimal `json:"cost"`
	Currency       string          `json:"currency"`
}

// CancelResult reports whether a label or pickup was cancelled.
type CancelResult struct {
	Cancelled bool   `json:"cancelled"`
	Message   string `json:"message,omitempty"`
}

// AvailabilityWindow is one pickup option offered by the carrier.
type AvailabilityWindow struct {
	Date       string `json:"date"`
	ReadyTime  string `json:"ready_time,omitempty"`
	CutoffTime string `json:"cutoff_time,omitempty"`
	Service    string `json:"service,omitempty"`
	Available  bool   `json:"available"`
}

// PickupResult is the outcome of pickup scheduling.
type PickupResult struct {
	ConfirmationNumber string    `json:"confirmation_number"`
	ScheduledAt        time.Time `json:"scheduled_at"`
	Location           string    `json:"location,omitempty"`
}

// Location is a carrier drop-off location.
type Location struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Type          string  `json:"type,omitempty"`
	Address       Address `json:"address"`
	DistanceMiles float64 `json:"distance_miles"`
}

// Canonical tracking statuses.
const (
	StatusLabelCreated   = "Label Created"
	StatusPickedUp       = "Picked Up"
	StatusInTransit      = "In Transit"
	StatusOutForDelivery = "Out for Delivery"
	StatusDelivered      = "Delivered"
	StatusException      = "Exception"
	StatusReturned       = "Returned"
	StatusCancelled      = "Cancelled"
	StatusUnknown        = "Unknown"

	// LatestStatusUnknown is reported when no scan event survives filtering.
	LatestStatusUnknown = "Status Unknown"

	// EstimatedDeliveryTBD is reported when the carrier gives no estimate.
	EstimatedDeliveryTBD = "TBD"
)

// ScanEvent is one normalized tracking checkpoint.
type ScanEvent struct {
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	ScannedAt   time.Time `json:"scanned_at"`
}

// NormalizedTracking is the carrier-independent tracking view. ScanEvents are
// ascending by ScannedAt.
type NormalizedTracking struct {
	TrackingNumber        string      `json:"tracking_number"`
	EstimatedDeliveryTime string      `json:"estimated_delivery_time"`
	ScanEvents            []ScanEvent `json:"scan_events"`
	LatestStatus          string      `json:"latest_status"`
	DeliveredAt           *time.Time  `json:"delivered_at,omitempty"`
}

// EstimatedDelivery parses EstimatedDeliveryTime, returning nil for "TBD" or
// anything unparseable.
func (t *NormalizedTracking) EstimatedDelivery() *time.Time {
	if t.EstimatedDeliveryTime == "" || t.EstimatedDeliveryTime == EstimatedDeliveryTBD {
		return nil
	}
	ts, err := ParseCarrierTime(t.EstimatedDeliveryTime)
	if err != nil {
		return nil
	}
	return &ts
}

var carrierTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseCarrierTime accepts the timestamp shapes carriers use: RFC 3339, a local
// datetime without offset, or a bare date.
func ParseCarrierTime(s string) (time.Time, error) {
	var err error
	for _, layout := range carrierTimeLayouts {
		var t time.Time
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, err
}
