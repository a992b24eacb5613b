package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bullionhub/shipbridge/internal/domain"
)

// PickupRepo persists carrier pickups.
type PickupRepo struct {
	db *pgxpool.Pool
}

// NewPickupRepo creates a new PickupRepo.
func NewPickupRepo(db *pgxpool.Pool) *PickupRepo {
	return &PickupRepo{db: db}
}

// CreatePickup inserts a scheduled pickup and sets its id.
func (r *PickupRepo) CreatePickup(ctx context.Context, p *domain.CarrierPickup) error {
	if p.Status == "" {
		p.Status = domain.PickupScheduled
	}
	err := r.db.QueryRow(ctx, `
        INSERT INTO carrier_pickups (shipment_id, carrier_id, requested_at, status, confirmation_number, location)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at
    `, p.ShipmentID, p.CarrierID, p.RequestedAt, string(p.Status), p.ConfirmationNumber, p.Location).
		Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pickup %q: %w", p.ConfirmationNumber, err)
	}
	return nil
}

// CancelPickup marks the pickup cancelled. It reports false when no scheduled
// pickup matched.
func (r *PickupRepo) CancelPickup(ctx context.Context, carrierID int64, confirmationNumber string) (bool, error) {
	ct, err := r.db.Exec(ctx, `
        UPDATE carrier_pickups
        SET status = 'cancelled'
        WHERE carrier_id = $1 AND confirmation_number = $2 AND status = 'scheduled'
    `, carrierID, confirmationNumber)
	if err != nil {
		return false, fmt.Errorf("cancel pickup %q: %w", confirmationNumber, err)
	}
	return ct.RowsAffected() > 0, nil
}

// GetPickup returns a pickup by carrier and confirmation number, or nil.
func (r *PickupRepo) GetPickup(ctx context.Context, carrierID int64, confirmationNumber string) (*domain.CarrierPickup, error) {
	var p domain.CarrierPickup
	var status string
	err := r.db.QueryRow(ctx, `
        SELECT id, shipment_id, carrier_id, requested_at, status, confirmation_number, location, created_at
        FROM carrier_pickups
        WHERE carrier_id = $1 AND confirmation_number = $2
    `, carrierID, confirmationNumber).
		Scan(&p.ID, &p.ShipmentID, &p.CarrierID, &p.RequestedAt, &status, &p.ConfirmationNumber, &p.Location, &p.CreatedAt)
	if err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get pickup %q: %w", confirmationNumber, err)
	}
	p.Status = domain.PickupStatus(status)
	return &p, nil
}
