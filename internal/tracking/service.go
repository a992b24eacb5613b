// Package tracking refreshes stored shipment tracking from carriers.
package tracking

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// ErrShipmentNotFound is returned when the shipment row does not exist.
var ErrShipmentNotFound = errors.New("shipment not found")

// Refresh outcomes reported to the Observer.
const (
	OutcomeOK          = "ok"
	OutcomeUnsupported = "unsupported"
	OutcomeCarrierErr  = "carrier_error"
	OutcomeIngestErr   = "ingestion_error"
)

// Tracker fetches normalized tracking for a carrier.
type Tracker interface {
	GetTracking(ctx context.Context, carrierID int64, in *shipping.TrackingInput) (*shipping.NormalizedTracking, error)
}

// Store persists tracking events and shipment tracking state.
type Store interface {
	// WithTx runs fn in one transaction, rolling back when fn fails or panics.
	WithTx(ctx context.Context, fn func(tx Tx) error) error
	// ListTrackingEvents returns a shipment's events ascending by scan time.
	ListTrackingEvents(ctx context.Context, shipmentID int64) ([]domain.TrackingEvent, error)
}

// Tx is the set of writes a refresh performs inside its transaction.
type Tx interface {
	// LockShipment locks and returns the shipment row, or ErrShipmentNotFound.
	LockShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error)
	DeleteTrackingEvents(ctx context.Context, shipmentID int64) error
	InsertTrackingEvents(ctx context.Context, events []domain.TrackingEvent) error
	UpdateShipmentTracking(ctx context.Context, u *Update) error
}

// Update is the shipment summary written by a refresh.
type Update struct {
	ShipmentID        int64
	Status            domain.ShippingStatus
	TrackingStatus    string
	ShippedAt         *time.Time
	DeliveredAt       *time.Time
	EstimatedDelivery *time.Time
}

// Observer counts refresh outcomes.
type Observer interface {
	ObserveRefresh(outcome string)
}

type nopObserver struct{}

func (nopObserver) ObserveRefresh(string) {}

// Service refreshes tracking for shipments.
type Service struct {
	tracker  Tracker
	store    Store
	logger   *otelzap.Logger
	observer Observer
	group    singleflight.Group
}

// NewService creates a tracking service. observer may be nil.
func NewService(tracker Tracker, store Store, logger *otelzap.Logger, observer Observer) *Service {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Service{
		tracker:  tracker,
		store:    store,
		logger:   logger,
		observer: observer,
	}
}

// Refresh fetches tracking from the carrier and replaces the shipment's stored
// events and status in one transaction, returning the stored events.
//
// A carrier without an implementation yields no events and no writes. Any
// failure while writing leaves the previous state intact and is reported as
// *shipping.IngestionError. Concurrent refreshes of the same shipment,
// carrier and tracking number in this process share a single carrier call;
// a caller that gives up stops waiting without failing the others.
func (s *Service) Refresh(ctx context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error) {
	key := strconv.FormatInt(shipmentID, 10) + "/" + strconv.FormatInt(carrierID, 10) + "/" + trackingNumber
	ch := s.group.DoChan(key, func() (any, error) {
		// Bounded by the provider timeout, not by whichever caller started it.
		return s.refresh(context.WithoutCancel(ctx), trackingNumber, shipmentID, carrierID)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Shared {
			s.logger.Ctx(ctx).Debug("Joined in-flight tracking refresh", zap.Int64("shipment_id", shipmentID))
		}
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]domain.TrackingEvent), nil
	}
}

func (s *Service) refresh(ctx context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error) {
	log := s.logger.Ctx(ctx).WithOptions(zap.Fields(
		zap.Int64("shipment_id", shipmentID),
		zap.Int64("carrier_id", carrierID),
		zap.String("tracking_number", trackingNumber),
	))

	// The carrier call happens before any transaction is opened.
	tracking, err := s.tracker.GetTracking(ctx, carrierID, &shipping.TrackingInput{TrackingNumber: trackingNumber})
	if err != nil {
		var resErr *shipping.ResolutionError
		if errors.As(err, &resErr) && errors.Is(err, shipping.ErrUnsupportedCarrier) {
			log.Info("Tracking not available for carrier", zap.String("carrier", string(resErr.Code)))
			s.observer.ObserveRefresh(OutcomeUnsupported)
			return []domain.TrackingEvent{}, nil
		}
		log.Warn("Tracking fetch failed", zap.Error(err))
		s.observer.ObserveRefresh(OutcomeCarrierErr)
		return nil, err
	}

	events := domain.TrackingEventsFrom(shipmentID, tracking.ScanEvents)

	step := ""
	err = s.store.WithTx(ctx, func(tx Tx) error {
		step = "lock_shipment"
		shipment, err := tx.LockShipment(ctx, shipmentID)
		if err != nil {
			return err
		}

		step = "delete_events"
		if err := tx.DeleteTrackingEvents(ctx, shipmentID); err != nil {
			return err
		}

		step = "insert_events"
		if err := tx.InsertTrackingEvents(ctx, events); err != nil {
			return err
		}

		step = "update_shipment"
		return tx.UpdateShipmentTracking(ctx, summarize(shipment, tracking))
	})
	if err != nil {
		log.Error("Tracking ingestion rolled back", zap.String("step", step), zap.Error(err))
		s.observer.ObserveRefresh(OutcomeIngestErr)
		return nil, &shipping.IngestionError{ShipmentID: shipmentID, Step: step, Cause: err}
	}

	stored, err := s.store.ListTrackingEvents(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	log.Info("Tracking refreshed",
		zap.Int("events", len(stored)),
		zap.String("latest_status", tracking.LatestStatus),
	)
	s.observer.ObserveRefresh(OutcomeOK)
	return stored, nil
}

// LastKnown returns the stored events for a shipment, for responses degraded
// after a failed refresh.
func (s *Service) LastKnown(ctx context.Context, shipmentID int64) ([]domain.TrackingEvent, error) {
	return s.store.ListTrackingEvents(ctx, shipmentID)
}

// summarize computes the shipment update. Delivered is terminal: once stored,
// a later refresh does not change the status or clear the delivery time.
func summarize(current *domain.Shipment, t *shipping.NormalizedTracking) *Update {
	u := &Update{
		ShipmentID:        current.ID,
		Status:            domain.StatusFromCanonical(t.LatestStatus),
		TrackingStatus:    t.LatestStatus,
		ShippedAt:         current.ShippedAt,
		DeliveredAt:       t.DeliveredAt,
		EstimatedDelivery: t.EstimatedDelivery(),
	}
	if len(t.ScanEvents) == 0 && current.Status != "" {
		u.Status = current.Status
		u.TrackingStatus = current.TrackingStatus
	}
	if u.ShippedAt == nil {
		for _, e := range t.ScanEvents {
			if e.Status == shipping.StatusPickedUp {
				at := e.ScannedAt
				u.ShippedAt = &at
				break
			}
		}
	}
	if current.Status.IsTerminal() {
		u.Status = current.Status
		u.TrackingStatus = current.TrackingStatus
		if current.DeliveredAt != nil {
			u.DeliveredAt = current.DeliveredAt
		}
		u.EstimatedDelivery = current.EstimatedDelivery
	}
	return u
}
