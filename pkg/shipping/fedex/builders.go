package fedex

import (
	"strings"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// Builders shapes canonical inputs into FedEx REST payloads. It holds only
// the account number and return address it was constructed with.
type Builders struct {
	accountNumber string
	returnAddress shipping.Address
}

// NewBuilders creates FedEx builders.
func NewBuilders(accountNumber string, returnAddress shipping.Address) *Builders {
	return &Builders{accountNumber: accountNumber, returnAddress: returnAddress}
}

var _ shipping.Builders = (*Builders)(nil)

// ValidateAddress builds an address resolution request.
func (b *Builders) ValidateAddress(in *shipping.AddressValidationInput) shipping.Payload {
	return &AddressValidationRequest{
		AddressesToValidate: []AddressToValidate{{Address: toAddress(in.Address)}},
	}
}

// GetRates builds a rate quote request. Origin defaults to the return address.
func (b *Builders) GetRates(in *shipping.RatesInput) shipping.Payload {
	origin := b.returnAddress
	if in.Origin != nil {
		origin = *in.Origin
	}
	req := &RateRequest{
		AccountNumber: b.account(),
		RequestedShipment: RateShipmentRequest{
			Shipper:                   Party{Address: toAddress(origin)},
			Recipient:                 Party{Address: toAddress(in.Destination)},
			PickupType:                "DROPOFF_AT_FEDEX_LOCATION",
			ServiceType:               in.ServiceType,
			ShipDateStamp:             in.ShipDate,
			RateRequestType:           []string{"ACCOUNT", "LIST"},
			RequestedPackageLineItems: toPackages(in.Packages, ""),
		},
	}
	if in.DeclaredValue.IsPositive() {
		req.RequestedShipment.TotalDeclaredValue = &Money{Amount: in.DeclaredValue, Currency: defaultCurrency}
	}
	return req
}

// CreateLabel builds a shipment request. Shipper defaults to the return address.
func (b *Builders) CreateLabel(in *shipping.CreateLabelInput) shipping.Payload {
	shipper := b.returnAddress
	if in.Shipper != nil {
		shipper = *in.Shipper
	}
	format := in.LabelFormat
	if format == "" {
		format = defaultLabelFormat
	}
	req := &ShipmentRequest{
		LabelResponseOptions: "LABEL",
		AccountNumber:        b.account(),
		RequestedShipment: ShipmentDetailRequest{
			Shipper:                toParty(shipper),
			Recipients:             []Party{toParty(in.Recipient)},
			ShipDatestamp:          in.ShipDate,
			ServiceType:            in.ServiceType,
			PackagingType:          "YOUR_PACKAGING",
			PickupType:             "USE_SCHEDULED_PICKUP",
			ShippingChargesPayment: ShippingChargesPayment{PaymentType: "SENDER"},
			LabelSpecification: LabelSpecification{
				ImageType:      format,
				LabelStockType: defaultLabelStock,
			},
			RequestedPackageLineItems: toPackages(in.Packages, in.Reference),
		},
	}
	if in.Insured && in.DeclaredValue.IsPositive() {
		req.RequestedShipment.TotalDeclaredValue = &Money{Amount: in.DeclaredValue, Currency: defaultCurrency}
	}
	return req
}

// CancelLabel builds a shipment cancellation. The label id is the tracking number.
func (b *Builders) CancelLabel(in *shipping.CancelLabelInput) shipping.Payload {
	return &CancelShipmentRequest{
		AccountNumber:   b.account(),
		TrackingNumber:  in.LabelID,
		DeletionControl: "DELETE_ALL_PACKAGES",
	}
}

// CheckPickup builds a pickup availability request.
func (b *Builders) CheckPickup(in *shipping.CheckPickupInput) shipping.Payload {
	relationship := "DOMESTIC"
	if !strings.EqualFold(in.Address.CountryCode, b.returnAddress.CountryCode) {
		relationship = "INTERNATIONAL"
	}
	return &PickupAvailabilityRequest{
		PickupAddress:       toAddress(in.Address),
		DispatchDate:        in.ReadyDate,
		PickupRequestType:   []string{"FUTURE_DAY", "SAME_DAY"},
		Carriers:            []string{"FDXE", "FDXG"},
		CountryRelationship: relationship,
	}
}

// CreatePickup builds a pickup request. Address defaults to the return address.
func (b *Builders) CreatePickup(in *shipping.CreatePickupInput) shipping.Payload {
	addr := b.returnAddress
	if in.Address != nil {
		addr = *in.Address
	}
	return &CreatePickupRequest{
		AssociatedAccountNumber: b.account(),
		OriginDetail: OriginDetail{
			PickupLocation:     toParty(addr),
			ReadyDateTimestamp: in.ReadyDate + "T" + in.ReadyTime + ":00",
			CustomerCloseTime:  in.CloseTime + ":00",
			PackageLocation:    packageLocation(in.Location),
		},
		TotalWeight:  Weight{Units: "LB", Value: in.TotalWeight},
		PackageCount: in.PackageCount,
		CarrierCode:  defaultPickupCarrier,
		Remarks:      in.Remarks,
	}
}

// CancelPickup builds a pickup cancellation.
func (b *Builders) CancelPickup(in *shipping.CancelPickupInput) shipping.Payload {
	return &CancelPickupRequest{
		AssociatedAccountNumber: b.account(),
		PickupConfirmationCode:  in.ConfirmationNumber,
		ScheduledDate:           in.ScheduledDate,
		Location:                in.Location,
		CarrierCode:             defaultPickupCarrier,
	}
}

// GetLocations builds a location search.
func (b *Builders) GetLocations(in *shipping.LocationsInput) shipping.Payload {
	req := &LocationsRequest{}
	req.Location.Address = toAddress(in.Address)
	req.LocationsSummaryRequestControlParameters.Distance = Distance{Units: "MI", Value: float64(in.RadiusMiles)}
	req.LocationsSummaryRequestControlParameters.MaxResults = in.MaxResults
	return req
}

// GetTracking builds a tracking request with detailed scans.
func (b *Builders) GetTracking(in *shipping.TrackingInput) shipping.Payload {
	return &TrackingRequest{
		IncludeDetailedScans: true,
		TrackingInfo: []TrackingInfo{
			{TrackingNumberInfo: TrackingNumberInfo{TrackingNumber: strings.TrimSpace(in.TrackingNumber)}},
		},
	}
}

func (b *Builders) account() AccountNumber {
	return AccountNumber{Value: b.accountNumber}
}

// toAddress maps a canonical address to FedEx fields. Empty street lines are
// dropped and residential defaults to false.
func toAddress(a shipping.Address) Address {
	lines := make([]string, 0, 2)
	for _, l := range []string{a.Line1, a.Line2} {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	residential := false
	if a.Residential != nil {
		residential = *a.Residential
	}
	return Address{
		StreetLines:         lines,
		City:                a.City,
		StateOrProvinceCode: a.State,
		PostalCode:          a.Zip,
		CountryCode:         strings.ToUpper(a.CountryCode),
		Residential:         residential,
	}
}

func toParty(a shipping.Address) Party {
	p := Party{Address: toAddress(a)}
	if a.Name != "" || a.Company != "" || a.Phone != "" || a.Email != "" {
		p.Contact = &Contact{
			PersonName:   a.Name,
			CompanyName:  a.Company,
			PhoneNumber:  a.Phone,
			EmailAddress: a.Email,
		}
	}
	return p
}

func toPackages(pkgs []shipping.Package, reference string) []PackageLineItem {
	items := make([]PackageLineItem, 0, len(pkgs))
	for _, p := range pkgs {
		item := PackageLineItem{Weight: Weight{Units: "LB", Value: p.Weight}}
		if p.Length > 0 && p.Width > 0 && p.Height > 0 {
			item.Dimensions = &Dimensions{Length: p.Length, Width: p.Width, Height: p.Height, Units: "IN"}
		}
		if reference != "" {
			item.CustomerReferences = []CustomerReference{{CustomerReferenceType: "CUSTOMER_REFERENCE", Value: reference}}
		}
		items = append(items, item)
	}
	return items
}

func packageLocation(loc string) string {
	if loc == "" {
		return "FRONT"
	}
	return strings.ToUpper(loc)
}
