package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/tracking"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

type refreshRequest struct {
	TrackingNumber string `json:"tracking_number,omitempty"`
	CarrierID      int64  `json:"carrier_id,omitempty"`
}

type refreshResponse struct {
	ShipmentID int64                   `json:"shipment_id"`
	Events     []trackingEventResponse `json:"events"`
	Stale      bool                    `json:"stale"`
	Error      string                  `json:"error,omitempty"`
}

// handleRefreshTracking refreshes a shipment's stored tracking. Tracking
// number and carrier default to the ones stored on the shipment. When the
// carrier or the write fails, the last stored events are returned marked
// stale.
func (s *Server) handleRefreshTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	shipmentID, err := idParam(r, "shipmentID")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	var req refreshRequest
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.writeError(w, r, http.StatusBadRequest, "invalid json: "+err.Error())
		return
	}

	if req.TrackingNumber == "" || req.CarrierID == 0 {
		shipment, err := s.deps.Shipments.GetShipment(ctx, shipmentID)
		if err != nil {
			s.writeShippingError(w, r, err)
			return
		}
		if shipment == nil {
			s.writeError(w, r, http.StatusNotFound, "shipment not found")
			return
		}
		if req.TrackingNumber == "" {
			req.TrackingNumber = shipment.TrackingNumber
		}
		if req.CarrierID == 0 {
			req.CarrierID = shipment.CarrierID
		}
	}
	if req.TrackingNumber == "" {
		s.writeError(w, r, http.StatusBadRequest, "shipment has no tracking number")
		return
	}

	events, err := s.deps.Tracking.Refresh(ctx, req.TrackingNumber, shipmentID, req.CarrierID)
	if err == nil {
		s.writeJSON(w, r, http.StatusOK, refreshResponse{ShipmentID: shipmentID, Events: eventsResponse(events)})
		return
	}

	var (
		buildErr *shipping.BuildError
		resErr   *shipping.ResolutionError
	)
	switch {
	case errors.Is(err, tracking.ErrShipmentNotFound):
		s.writeError(w, r, http.StatusNotFound, "shipment not found")
		return
	case errors.As(err, &buildErr), errors.As(err, &resErr):
		s.writeShippingError(w, r, err)
		return
	}

	last, lkErr := s.deps.Tracking.LastKnown(ctx, shipmentID)
	if lkErr != nil {
		s.logger.Ctx(ctx).Error("Failed to load last known tracking",
			zap.Int64("shipment_id", shipmentID),
			zap.Error(lkErr),
		)
		s.writeShippingError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, refreshResponse{
		ShipmentID: shipmentID,
		Events:     eventsResponse(last),
		Stale:      true,
		Error:      err.Error(),
	})
}
