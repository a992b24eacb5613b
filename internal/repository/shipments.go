package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

const shipmentColumns = `
        id, purchase_order_id, sales_order_id, carrier_id, tracking_number, label_id,
        label_artifact, service_type, declared_value, insured, weight_lbs, length_in,
        width_in, height_in, shipped_at, delivered_at, estimated_delivery, status,
        tracking_status, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanShipment(row scanner) (*domain.Shipment, error) {
	var s domain.Shipment
	var status string
	err := row.Scan(&s.ID, &s.PurchaseOrderID, &s.SalesOrderID, &s.CarrierID, &s.TrackingNumber, &s.LabelID,
		&s.LabelArtifact, &s.ServiceType, &s.DeclaredValue, &s.Insured, &s.WeightLbs, &s.LengthIn,
		&s.WidthIn, &s.HeightIn, &s.ShippedAt, &s.DeliveredAt, &s.EstimatedDelivery, &status,
		&s.TrackingStatus, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.Status = domain.ShippingStatus(status)
	return &s, nil
}

// ShipmentRepo reads and writes shipments.
type ShipmentRepo struct {
	db *pgxpool.Pool
}

// NewShipmentRepo creates a new ShipmentRepo.
func NewShipmentRepo(db *pgxpool.Pool) *ShipmentRepo {
	return &ShipmentRepo{db: db}
}

// GetShipment returns the shipment, or nil when it does not exist.
func (r *ShipmentRepo) GetShipment(ctx context.Context, id int64) (*domain.Shipment, error) {
	s, err := scanShipment(r.db.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1`, id))
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get shipment %d: %w", id, err)
	}
	return s, nil
}

// CreateShipment inserts a shipment and sets its id.
func (r *ShipmentRepo) CreateShipment(ctx context.Context, s *domain.Shipment) error {
	status := s.Status
	if status == "" {
		status = domain.StatusPending
	}
	err := r.db.QueryRow(ctx, `
        INSERT INTO shipments (
            purchase_order_id, sales_order_id, carrier_id, tracking_number, service_type,
            declared_value, insured, weight_lbs, length_in, width_in, height_in, status)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
        RETURNING id, updated_at
    `, s.PurchaseOrderID, s.SalesOrderID, s.CarrierID, s.TrackingNumber, s.ServiceType,
		s.DeclaredValue, s.Insured, s.WeightLbs, s.LengthIn, s.WidthIn, s.HeightIn, string(status)).
		Scan(&s.ID, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert shipment: %w", err)
	}
	s.Status = status
	return nil
}

// AttachLabel records a created label on the shipment.
func (r *ShipmentRepo) AttachLabel(ctx context.Context, shipmentID int64, serviceType string, label *shipping.LabelResult) error {
	ct, err := r.db.Exec(ctx, `
        UPDATE shipments
        SET tracking_number = $2, label_id = $3, label_artifact = $4, service_type = $5,
            status = CASE WHEN status = 'pending' THEN 'label_created' ELSE status END,
            updated_at = now()
        WHERE id = $1
    `, shipmentID, label.TrackingNumber, label.LabelID, label.LabelArtifact, serviceType)
	if err != nil {
		return fmt.Errorf("attach label to shipment %d: %w", shipmentID, err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("shipment %d not found", shipmentID)
	}
	return nil
}
