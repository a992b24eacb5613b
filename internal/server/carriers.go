package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

type carrierResponse struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Code        string `json:"code"`
	Active      bool   `json:"active"`
	Supported   bool   `json:"supported"`
}

type serviceResponse struct {
	ServiceCode       string  `json:"service_code"`
	Name              string  `json:"name"`
	MinTransitDays    int     `json:"min_transit_days"`
	MaxTransitDays    int     `json:"max_transit_days"`
	SupportsPickup    bool    `json:"supports_pickup"`
	SupportsDropoff   bool    `json:"supports_dropoff"`
	SupportsReturns   bool    `json:"supports_returns"`
	SupportsInsurance bool    `json:"supports_insurance"`
	MaxWeightLbs      float64 `json:"max_weight_lbs"`
	MaxLengthIn       float64 `json:"max_length_in"`
}

func (s *Server) handleListCarriers(w http.ResponseWriter, r *http.Request) {
	activeOnly, _ := strconv.ParseBool(r.URL.Query().Get("active"))

	carriers, err := s.deps.Carriers.ListCarriers(r.Context(), activeOnly)
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}

	resp := make([]carrierResponse, 0, len(carriers))
	for _, c := range carriers {
		_, lookupErr := s.deps.Registry.Lookup(c.Code())
		resp = append(resp, carrierResponse{
			ID:          c.ID,
			Name:        c.Name,
			DisplayName: c.DisplayName,
			Code:        string(c.Code()),
			Active:      c.Active,
			Supported:   lookupErr == nil,
		})
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) handleListServices(w http.ResponseWriter, r *http.Request) {
	carrierID, err := idParam(r, "carrierID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	services, err := s.deps.Carriers.ListCarrierServices(r.Context(), carrierID)
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}

	resp := make([]serviceResponse, 0, len(services))
	for _, svc := range services {
		resp = append(resp, serviceResponse{
			ServiceCode:       svc.ServiceCode,
			Name:              svc.Name,
			MinTransitDays:    svc.MinTransitDays,
			MaxTransitDays:    svc.MaxTransitDays,
			SupportsPickup:    svc.Pickup,
			SupportsDropoff:   svc.Dropoff,
			SupportsReturns:   svc.Returns,
			SupportsInsurance: svc.Insurance,
			MaxWeightLbs:      svc.MaxWeightLbs,
			MaxLengthIn:       svc.MaxLengthIn,
		})
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

// carrierOp decodes the body into In, calls the handler for the carrier in
// the path and writes the result.
func carrierOp[In, Out any](s *Server, status int, call func(context.Context, int64, *In) (Out, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		carrierID, err := idParam(r, "carrierID")
		if err != nil {
			s.writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		in := new(In)
		if !s.decodeJSON(w, r, in) {
			return
		}
		out, err := call(r.Context(), carrierID, in)
		if err != nil {
			s.writeShippingError(w, r, err)
			return
		}
		s.writeJSON(w, r, status, out)
	}
}

func (s *Server) handleValidateAddress(w http.ResponseWriter, r *http.Request) {
	carrierOp(s, http.StatusOK, s.deps.Handler.ValidateAddress).ServeHTTP(w, r)
}

func (s *Server) handleGetRates(w http.ResponseWriter, r *http.Request) {
	carrierOp(s, http.StatusOK, s.deps.Handler.GetRates).ServeHTTP(w, r)
}

func (s *Server) handleCancelLabel(w http.ResponseWriter, r *http.Request) {
	carrierOp(s, http.StatusOK, s.deps.Handler.CancelLabel).ServeHTTP(w, r)
}

func (s *Server) handleCheckPickup(w http.ResponseWriter, r *http.Request) {
	carrierOp(s, http.StatusOK, s.deps.Handler.CheckPickup).ServeHTTP(w, r)
}

func (s *Server) handleGetLocations(w http.ResponseWriter, r *http.Request) {
	carrierOp(s, http.StatusOK, s.deps.Handler.GetLocations).ServeHTTP(w, r)
}

func (s *Server) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	carrierID, err := idParam(r, "carrierID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	t, err := s.deps.Handler.GetTracking(r.Context(), carrierID, &shipping.TrackingInput{
		TrackingNumber: chi.URLParam(r, "trackingNumber"),
	})
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, t)
}

type rateShoppingRequest struct {
	CarrierIDs []int64 `json:"carrier_ids"`
	shipping.RatesInput
}

type rateShoppingResponse struct {
	Rates  []shipping.Rate `json:"rates"`
	Errors []string        `json:"errors"`
}

func (s *Server) handleRateShopping(w http.ResponseWriter, r *http.Request) {
	var req rateShoppingRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if len(req.CarrierIDs) == 0 {
		s.writeError(w, r, http.StatusBadRequest, "carrier_ids is required")
		return
	}

	rates, errs := s.deps.Handler.GetRatesFromCarriers(r.Context(), req.CarrierIDs, &req.RatesInput)
	resp := rateShoppingResponse{Rates: rates, Errors: make([]string, 0, len(errs))}
	for _, err := range errs {
		resp.Errors = append(resp.Errors, err.Error())
	}
	s.writeJSON(w, r, http.StatusOK, resp)
}

type createLabelRequest struct {
	ShipmentID *int64 `json:"shipment_id,omitempty"`
	shipping.CreateLabelInput
}

type createLabelResponse struct {
	*shipping.LabelResult
	ShipmentID *int64 `json:"shipment_id,omitempty"`
	Recorded   bool   `json:"recorded"`
}

// handleCreateLabel buys a label and, when shipment_id is given, records it
// on the shipment. A label that was bought but could not be recorded is still
// returned so the caller can reconcile it.
// checkShipmentCarrier writes an error response and returns false unless the
// shipment exists and belongs to carrierID.
func (s *Server) checkShipmentCarrier(w http.ResponseWriter, r *http.Request, shipmentID, carrierID int64) bool {
	shipment, err := s.deps.Shipments.GetShipment(r.Context(), shipmentID)
	if err != nil {
		s.writeShippingError(w, r, err)
		return false
	}
	if shipment == nil {
		s.writeError(w, r, http.StatusNotFound, "shipment not found")
		return false
	}
	if shipment.CarrierID != carrierID {
		s.writeError(w, r, http.StatusBadRequest, "shipment belongs to another carrier")
		return false
	}
	return true
}

func (s *Server) handleCreateLabel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrierID, err := idParam(r, "carrierID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req createLabelRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.ShipmentID != nil && !s.checkShipmentCarrier(w, r, *req.ShipmentID, carrierID) {
		return
	}

	label, err := s.deps.Handler.CreateLabel(ctx, carrierID, &req.CreateLabelInput)
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}

	resp := createLabelResponse{LabelResult: label, ShipmentID: req.ShipmentID}
	if req.ShipmentID != nil {
		if err := s.deps.Shipments.AttachLabel(ctx, *req.ShipmentID, req.ServiceType, label); err != nil {
			s.logger.Ctx(ctx).Error("Label created but not recorded",
				zap.Int64("shipment_id", *req.ShipmentID),
				zap.String("tracking_number", label.TrackingNumber),
				zap.Error(err),
			)
		} else {
			resp.Recorded = true
		}
	}
	s.writeJSON(w, r, http.StatusCreated, resp)
}

type createPickupRequest struct {
	ShipmentID *int64 `json:"shipment_id,omitempty"`
	shipping.CreatePickupInput
}

type createPickupResponse struct {
	*shipping.PickupResult
	Recorded bool `json:"recorded"`
}

func (s *Server) handleCreatePickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrierID, err := idParam(r, "carrierID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var req createPickupRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}

	if req.ShipmentID != nil && !s.checkShipmentCarrier(w, r, *req.ShipmentID, carrierID) {
		return
	}

	pickup, err := s.deps.Handler.CreatePickup(ctx, carrierID, &req.CreatePickupInput)
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}

	resp := createPickupResponse{PickupResult: pickup}
	if req.ShipmentID != nil {
		err := s.deps.Pickups.CreatePickup(ctx, &domain.CarrierPickup{
			ShipmentID:         *req.ShipmentID,
			CarrierID:          carrierID,
			RequestedAt:        pickup.ScheduledAt,
			Status:             domain.PickupScheduled,
			ConfirmationNumber: pickup.ConfirmationNumber,
			Location:           pickup.Location,
		})
		if err != nil {
			s.logger.Ctx(ctx).Error("Pickup scheduled but not recorded",
				zap.Int64("shipment_id", *req.ShipmentID),
				zap.String("confirmation_number", pickup.ConfirmationNumber),
				zap.Error(err),
			)
		} else {
			resp.Recorded = true
		}
	}
	s.writeJSON(w, r, http.StatusCreated, resp)
}

func (s *Server) handleCancelPickup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	carrierID, err := idParam(r, "carrierID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	var in shipping.CancelPickupInput
	if !s.decodeJSON(w, r, &in) {
		return
	}

	res, err := s.deps.Handler.CancelPickup(ctx, carrierID, &in)
	if err != nil {
		s.writeShippingError(w, r, err)
		return
	}
	if res.Cancelled {
		if _, err := s.deps.Pickups.CancelPickup(ctx, carrierID, in.ConfirmationNumber); err != nil {
			s.logger.Ctx(ctx).Error("Pickup cancelled but not recorded",
				zap.String("confirmation_number", in.ConfirmationNumber),
				zap.Error(err),
			)
		}
	}
	s.writeJSON(w, r, http.StatusOK, res)
}

type trackingEventResponse struct {
	Code        string    `json:"code"`
	Status      string    `json:"status"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location"`
	ScannedAt   time.Time `json:"scanned_at"`
}

func eventsResponse(events []domain.TrackingEvent) []trackingEventResponse {
	resp := make([]trackingEventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, trackingEventResponse{
			Code:        e.StatusCode,
			Status:      e.Status,
			Description: e.Description,
			Location:    e.Location,
			ScannedAt:   e.ScannedAt,
		})
	}
	return resp
}
