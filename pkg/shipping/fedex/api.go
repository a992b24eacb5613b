package fedex

import "github.com/shopspring/decimal"

// Endpoint paths, relative to the configured base URL.
const (
	pathOAuthToken       = "/oauth/token"
	pathAddressResolve   = "/address/v1/addresses/resolve"
	pathRateQuotes       = "/rate/v1/rates/quotes"
	pathShipments        = "/ship/v1/shipments"
	pathShipmentsCancel  = "/ship/v1/shipments/cancel"
	pathPickupAvailable  = "/pickup/v1/pickups/availabilities"
	pathPickups          = "/pickup/v1/pickups"
	pathPickupsCancel    = "/pickup/v1/pickups/cancel"
	pathLocations        = "/location/v1/locations"
	pathTrackingNumbers  = "/track/v1/trackingnumbers"
	headerTransactionID  = "x-customer-transaction-id"
	defaultCurrency      = "USD"
	defaultLabelFormat   = "PDF"
	defaultLabelStock    = "PAPER_85X11_TOP_HALF_LABEL"
	defaultPickupCarrier = "FDXG"
)

// ============================================================================
// Shared wire types
// ============================================================================

// Address is the FedEx address shape.
type Address struct {
	StreetLines         []string `json:"streetLines"`
	City                string   `json:"city,omitempty"`
	StateOrProvinceCode string   `json:"stateOrProvinceCode,omitempty"`
	PostalCode          string   `json:"postalCode,omitempty"`
	CountryCode         string   `json:"countryCode"`
	Residential         bool     `json:"residential"`
}

// Contact identifies a person or company at an address.
type Contact struct {
	PersonName   string `json:"personName,omitempty"`
	CompanyName  string `json:"companyName,omitempty"`
	PhoneNumber  string `json:"phoneNumber,omitempty"`
	EmailAddress string `json:"emailAddress,omitempty"`
}

// Party is an address with an optional contact.
type Party struct {
	Address Address  `json:"address"`
	Contact *Contact `json:"contact,omitempty"`
}

// AccountNumber wraps the FedEx account number.
type AccountNumber struct {
	Value string `json:"value"`
}

// Weight is a package or shipment weight.
type Weight struct {
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

// Dimensions are package dimensions.
type Dimensions struct {
	Length float64 `json:"length"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Units  string  `json:"units"`
}

// Money is an amount in a currency.
type Money struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
}

// CustomerReference is a free-text reference printed on the label.
type CustomerReference struct {
	CustomerReferenceType string `json:"customerReferenceType"`
	Value                 string `json:"value"`
}

// PackageLineItem is one requested package.
type PackageLineItem struct {
	Weight             Weight              `json:"weight"`
	Dimensions         *Dimensions         `json:"dimensions,omitempty"`
	CustomerReferences []CustomerReference `json:"customerReferences,omitempty"`
}

// APIErrorResponse is the error envelope returned by every FedEx endpoint.
type APIErrorResponse struct {
	TransactionID string     `json:"transactionId"`
	Errors        []APIError `json:"errors"`
}

// APIError is one entry of the FedEx error envelope.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Alert is a non-fatal notice attached to a response.
type Alert struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	AlertType string `json:"alertType"`
}

// ============================================================================
// Address validation
// ============================================================================

// AddressValidationRequest is the body of POST /address/v1/addresses/resolve.
type AddressValidationRequest struct {
	AddressesToValidate []AddressToValidate `json:"addressesToValidate"`
}

// AddressToValidate wraps one address.
type AddressToValidate struct {
	Address Address `json:"address"`
}

// AddressValidationResponse is the address resolution reply.
type AddressValidationResponse struct {
	Output struct {
		ResolvedAddresses []ResolvedAddress `json:"resolvedAddresses"`
		Alerts            []Alert           `json:"alerts"`
	} `json:"output"`
}

// ResolvedAddress is the carrier's resolved form of an address.
type ResolvedAddress struct {
	StreetLinesToken    []string          `json:"streetLinesToken"`
	City                string            `json:"city"`
	StateOrProvinceCode string            `json:"stateOrProvinceCode"`
	PostalCode          string            `json:"postalCode"`
	CountryCode         string            `json:"countryCode"`
	Classification      string            `json:"classification"`
	Attributes          map[string]string `json:"attributes"`
	CustomerMessages    []Alert           `json:"customerMessages"`
}

// ============================================================================
// Rates
// ============================================================================

// RateRequest is the body of POST /rate/v1/rates/quotes.
type RateRequest struct {
	AccountNumber     AccountNumber       `json:"accountNumber"`
	RequestedShipment RateShipmentRequest `json:"requestedShipment"`
}

// RateShipmentRequest describes the shipment to quote.
type RateShipmentRequest struct {
	Shipper                   Party             `json:"shipper"`
	Recipient                 Party             `json:"recipient"`
	PickupType                string            `json:"pickupType"`
	ServiceType               string            `json:"serviceType,omitempty"`
	ShipDateStamp             string            `json:"shipDateStamp,omitempty"`
	RateRequestType           []string          `json:"rateRequestType"`
	TotalDeclaredValue        *Money            `json:"totalDeclaredValue,omitempty"`
	RequestedPackageLineItems []PackageLineItem `json:"requestedPackageLineItems"`
}

// RateResponse is the rate quote reply.
type RateResponse struct {
	Output struct {
		RateReplyDetails []RateReplyDetail `json:"rateReplyDetails"`
		Alerts           []Alert           `json:"alerts"`
	} `json:"output"`
}

// RateReplyDetail is one quoted service.
type RateReplyDetail struct {
	ServiceType          string                `json:"serviceType"`
	ServiceName          string                `json:"serviceName"`
	RatedShipmentDetails []RatedShipmentDetail `json:"ratedShipmentDetails"`
	Commit               *Commit               `json:"commit"`
}

// RatedShipmentDetail is a price for one rate type.
type RatedShipmentDetail struct {
	RateType       string          `json:"rateType"`
	TotalNetCharge decimal.Decimal `json:"totalNetCharge"`
	Currency       string          `json:"currency"`
}

// Commit is the carrier's delivery commitment.
type Commit struct {
	DateDetail *struct {
		DayFormat string `json:"dayFormat"`
	} `json:"dateDetail"`
	TransitDays *struct {
		Description string `json:"description"`
	} `json:"transitDays"`
}

// ============================================================================
// Shipments
// ============================================================================

// ShipmentRequest is the body of POST /ship/v1/shipments.
type ShipmentRequest struct {
	LabelResponseOptions string                `json:"labelResponseOptions"`
	AccountNumber        AccountNumber         `json:"accountNumber"`
	RequestedShipment    ShipmentDetailRequest `json:"requestedShipment"`
}

// ShipmentDetailRequest describes the shipment to create.
type ShipmentDetailRequest struct {
	Shipper                   Party                  `json:"shipper"`
	Recipients                []Party                `json:"recipients"`
	ShipDatestamp             string                 `json:"shipDatestamp"`
	ServiceType               string                 `json:"serviceType"`
	PackagingType             string                 `json:"packagingType"`
	PickupType                string                 `json:"pickupType"`
	ShippingChargesPayment    ShippingChargesPayment `json:"shippingChargesPayment"`
	LabelSpecification        LabelSpecification     `json:"labelSpecification"`
	TotalDeclaredValue        *Money                 `json:"totalDeclaredValue,omitempty"`
	RequestedPackageLineItems []PackageLineItem      `json:"requestedPackageLineItems"`
}

// ShippingChargesPayment names who pays for the shipment.
type ShippingChargesPayment struct {
	PaymentType string `json:"paymentType"`
}

// LabelSpecification selects the label image.
type LabelSpecification struct {
	ImageType      string `json:"imageType"`
	LabelStockType string `json:"labelStockType"`
}

// ShipmentResponse is the shipment creation reply.
type ShipmentResponse struct {
	Output struct {
		TransactionShipments []TransactionShipment `json:"transactionShipments"`
		Alerts               []Alert               `json:"alerts"`
	} `json:"output"`
}

// TransactionShipment is one created shipment.
type TransactionShipment struct {
	MasterTrackingNumber    string          `json:"masterTrackingNumber"`
	ServiceType             string          `json:"serviceType"`
	PieceResponses          []PieceResponse `json:"pieceResponses"`
	CompletedShipmentDetail *struct {
		ShipmentRating *struct {
			ShipmentRateDetails []RatedShipmentDetail `json:"shipmentRateDetails"`
		} `json:"shipmentRating"`
	} `json:"completedShipmentDetail"`
}

// PieceResponse is one created package.
type PieceResponse struct {
	TrackingNumber   string            `json:"trackingNumber"`
	PackageDocuments []PackageDocument `json:"packageDocuments"`
}

// PackageDocument is a label or other document for a package.
type PackageDocument struct {
	ContentType  string `json:"contentType"`
	DocType      string `json:"docType"`
	EncodedLabel string `json:"encodedLabel"`
	URL          string `json:"url"`
}

// CancelShipmentRequest is the body of PUT /ship/v1/shipments/cancel.
type CancelShipmentRequest struct {
	AccountNumber   AccountNumber `json:"accountNumber"`
	TrackingNumber  string        `json:"trackingNumber"`
	DeletionControl string        `json:"deletionControl"`
}

// CancelShipmentResponse is the shipment cancellation reply.
type CancelShipmentResponse struct {
	Output struct {
		CancelledShipment bool   `json:"cancelledShipment"`
		Message           string `json:"message"`
	} `json:"output"`
}

// ============================================================================
// Pickups
// ============================================================================

// PickupAvailabilityRequest is the body of POST /pickup/v1/pickups/availabilities.
type PickupAvailabilityRequest struct {
	PickupAddress       Address  `json:"pickupAddress"`
	DispatchDate        string   `json:"dispatchDate"`
	PickupRequestType   []string `json:"pickupRequestType"`
	Carriers            []string `json:"carriers"`
	CountryRelationship string   `json:"countryRelationship"`
}

// PickupAvailabilityResponse is the availability reply.
type PickupAvailabilityResponse struct {
	Output struct {
		Options []PickupOption `json:"options"`
	} `json:"output"`
}

// PickupOption is one availability option.
type PickupOption struct {
	Carrier    string `json:"carrier"`
	Available  bool   `json:"available"`
	PickupDate string `json:"pickupDate"`
	ReadyTime  string `json:"readyTime"`
	CutOffTime string `json:"cutOffTime"`
}

// CreatePickupRequest is the body of POST /pickup/v1/pickups.
type CreatePickupRequest struct {
	AssociatedAccountNumber AccountNumber `json:"associatedAccountNumber"`
	OriginDetail            OriginDetail  `json:"originDetail"`
	TotalWeight             Weight        `json:"totalWeight"`
	PackageCount            int           `json:"packageCount"`
	CarrierCode             string        `json:"carrierCode"`
	Remarks                 string        `json:"remarks,omitempty"`
}

// OriginDetail is where and when the courier should come.
type OriginDetail struct {
	PickupLocation     Party  `json:"pickupLocation"`
	ReadyDateTimestamp string `json:"readyDateTimestamp"`
	CustomerCloseTime  string `json:"customerCloseTime"`
	PackageLocation    string `json:"packageLocation"`
}

// CreatePickupResponse is the pickup creation reply.
type CreatePickupResponse struct {
	Output struct {
		PickupConfirmationCode string `json:"pickupConfirmationCode"`
		Location               string `json:"location"`
	} `json:"output"`
}

// CancelPickupRequest is the body of PUT /pickup/v1/pickups/cancel.
type CancelPickupRequest struct {
	AssociatedAccountNumber AccountNumber `json:"associatedAccountNumber"`
	PickupConfirmationCode  string        `json:"pickupConfirmationCode"`
	ScheduledDate           string        `json:"scheduledDate"`
	Location                string        `json:"location,omitempty"`
	CarrierCode             string        `json:"carrierCode"`
}

// CancelPickupResponse is the pickup cancellation reply.
type CancelPickupResponse struct {
	Output struct {
		PickupConfirmationCode    string `json:"pickupConfirmationCode"`
		CancelConfirmationMessage string `json:"cancelConfirmationMessage"`
	} `json:"output"`
}

// ============================================================================
// Locations
// ============================================================================

// LocationsRequest is the body of POST /location/v1/locations.
type LocationsRequest struct {
	Location struct {
		Address Address `json:"address"`
	} `json:"location"`
	LocationsSummaryRequestControlParameters struct {
		Distance   Distance `json:"distance"`
		MaxResults int      `json:"maxResults"`
	} `json:"locationsSummaryRequestControlParameters"`
}

// Distance is a radius or a measured distance.
type Distance struct {
	Units string  `json:"units"`
	Value float64 `json:"value"`
}

// LocationsResponse is the location search reply.
type LocationsResponse struct {
	Output struct {
		LocationDetailList []LocationDetail `json:"locationDetailList"`
	} `json:"output"`
}

// LocationDetail is one FedEx location.
type LocationDetail struct {
	LocationID        string   `json:"locationId"`
	LocationType      string   `json:"locationType"`
	Distance          Distance `json:"distance"`
	ContactAndAddress struct {
		Contact Contact `json:"contact"`
		Address Address `json:"address"`
	} `json:"contactAndAddress"`
}

// ============================================================================
// Tracking
// ============================================================================

// TrackingRequest is the body of POST /track/v1/trackingnumbers.
type TrackingRequest struct {
	IncludeDetailedScans bool           `json:"includeDetailedScans"`
	TrackingInfo         []TrackingInfo `json:"trackingInfo"`
}

// TrackingInfo names one tracking number to look up.
type TrackingInfo struct {
	TrackingNumberInfo TrackingNumberInfo `json:"trackingNumberInfo"`
}

// TrackingNumberInfo is a tracking number.
type TrackingNumberInfo struct {
	TrackingNumber string `json:"trackingNumber"`
}

// TrackingResponse is the tracking reply.
type TrackingResponse struct {
	Output struct {
		CompleteTrackResults []CompleteTrackResult `json:"completeTrackResults"`
	} `json:"output"`
}

// CompleteTrackResult groups results for one tracking number.
type CompleteTrackResult struct {
	TrackingNumber string        `json:"trackingNumber"`
	TrackResults   []TrackResult `json:"trackResults"`
}

// TrackResult is the tracking detail for one package.
type TrackResult struct {
	TrackingNumberInfo          TrackingNumberInfo `json:"trackingNumberInfo"`
	ScanEvents                  []ScanEvent        `json:"scanEvents"`
	EstimatedDeliveryTimeWindow *TimeWindow        `json:"estimatedDeliveryTimeWindow"`
	StandardTransitTimeWindow   *TimeWindow        `json:"standardTransitTimeWindow"`
	DateAndTimes                []DateAndTime      `json:"dateAndTimes"`
	Error                       *APIError          `json:"error"`
}

// ScanEvent is one raw FedEx scan. FedEx returns scans newest first.
type ScanEvent struct {
	Date              string        `json:"date"`
	EventType         string        `json:"eventType"`
	EventDescription  string        `json:"eventDescription"`
	DerivedStatusCode string        `json:"derivedStatusCode"`
	ScanLocation      *ScanLocation `json:"scanLocation"`
}

// ScanLocation is where a scan happened.
type ScanLocation struct {
	City                string `json:"city"`
	StateOrProvinceCode string `json:"stateOrProvinceCode"`
	PostalCode          string `json:"postalCode"`
	CountryCode         string `json:"countryCode"`
}

// TimeWindow wraps a window.
type TimeWindow struct {
	Window struct {
		Begins string `json:"begins"`
		Ends   string `json:"ends"`
	} `json:"window"`
}

// DateAndTime is a typed timestamp in a track result.
type DateAndTime struct {
	Type     string `json:"type"`
	DateTime string `json:"dateTime"`
}
