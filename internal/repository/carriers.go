package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// CarrierRepo reads and writes carriers and their services.
type CarrierRepo struct {
	db *pgxpool.Pool
}

// NewCarrierRepo creates a new CarrierRepo.
func NewCarrierRepo(db *pgxpool.Pool) *CarrierRepo {
	return &CarrierRepo{db: db}
}

var _ shipping.CarrierLookup = (*CarrierRepo)(nil)

// GetCarrierByID returns the carrier, or nil when no carrier has the id.
func (r *CarrierRepo) GetCarrierByID(ctx context.Context, id int64) (*shipping.Carrier, error) {
	row := r.db.QueryRow(ctx, `
        SELECT id, name, display_name, contact_email, contact_phone, active
        FROM carriers
        WHERE id = $1
    `, id)

	var c shipping.Carrier
	if err := row.Scan(&c.ID, &c.Name, &c.DisplayName, &c.ContactEmail, &c.ContactPhone, &c.Active); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get carrier %d: %w", id, err)
	}
	return &c, nil
}

// ListCarriers returns carriers ordered by id.
func (r *CarrierRepo) ListCarriers(ctx context.Context, activeOnly bool) ([]shipping.Carrier, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, name, display_name, contact_email, contact_phone, active
        FROM carriers
        WHERE NOT $1 OR active
        ORDER BY id
    `, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}

	carriers, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (shipping.Carrier, error) {
		var c shipping.Carrier
		err := row.Scan(&c.ID, &c.Name, &c.DisplayName, &c.ContactEmail, &c.ContactPhone, &c.Active)
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("list carriers: %w", err)
	}
	return carriers, nil
}

// CreateCarrier inserts a carrier and sets its id.
func (r *CarrierRepo) CreateCarrier(ctx context.Context, c *shipping.Carrier) error {
	err := r.db.QueryRow(ctx, `
        INSERT INTO carriers (name, display_name, contact_email, contact_phone, active)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `, c.Name, c.DisplayName, c.ContactEmail, c.ContactPhone, c.Active).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("insert carrier %q: %w", c.Name, err)
	}
	return nil
}

// CreateCarrierService validates and inserts a carrier service.
func (r *CarrierRepo) CreateCarrierService(ctx context.Context, s *domain.CarrierService) error {
	if err := s.Validate(); err != nil {
		return err
	}
	err := r.db.QueryRow(ctx, `
        INSERT INTO carrier_services (
            carrier_id, service_code, name, min_transit_days, max_transit_days,
            supports_pickup, supports_dropoff, supports_returns, supports_insurance,
            max_weight_lbs, max_length_in, active, display_order)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
        RETURNING id
    `, s.CarrierID, s.ServiceCode, s.Name, s.MinTransitDays, s.MaxTransitDays,
		s.Pickup, s.Dropoff, s.Returns, s.Insurance,
		s.MaxWeightLbs, s.MaxLengthIn, s.Active, s.DisplayOrder).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("insert carrier service %q: %w", s.ServiceCode, err)
	}
	return nil
}

// ListCarrierServices returns a carrier's active services in display order.
func (r *CarrierRepo) ListCarrierServices(ctx context.Context, carrierID int64) ([]domain.CarrierService, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, carrier_id, service_code, name, min_transit_days, max_transit_days,
               supports_pickup, supports_dropoff, supports_returns, supports_insurance,
               max_weight_lbs, max_length_in, active, display_order
        FROM carrier_services
        WHERE carrier_id = $1 AND active
        ORDER BY display_order, id
    `, carrierID)
	if err != nil {
		return nil, fmt.Errorf("list carrier services %d: %w", carrierID, err)
	}

	services, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.CarrierService, error) {
		var s domain.CarrierService
		err := row.Scan(&s.ID, &s.CarrierID, &s.ServiceCode, &s.Name, &s.MinTransitDays, &s.MaxTransitDays,
			&s.Pickup, &s.Dropoff, &s.Returns, &s.Insurance,
			&s.MaxWeightLbs, &s.MaxLengthIn, &s.Active, &s.DisplayOrder)
		return s, err
	})
	if err != nil {
		return nil, fmt.Errorf("list carrier services %d: %w", carrierID, err)
	}
	return services, nil
}
