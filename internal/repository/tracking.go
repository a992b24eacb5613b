package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/internal/tracking"
)

// TrackingStore persists tracking events and shipment tracking state.
type TrackingStore struct {
	db *pgxpool.Pool
}

// NewTrackingStore creates a new TrackingStore.
func NewTrackingStore(db *pgxpool.Pool) *TrackingStore {
	return &TrackingStore{db: db}
}

var _ tracking.Store = (*TrackingStore)(nil)

// WithTx opens a transaction and executes fn within it. The transaction is
// rolled back when fn returns an error or panics.
func (r *TrackingStore) WithTx(ctx context.Context, fn func(tx tracking.Tx) error) (err error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				panic(fmt.Sprintf("%v (rollback failed: %v)", p, rbErr))
			}
			panic(p)
		}
	}()

	if err := fn(&TrackingTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// ListTrackingEvents returns a shipment's events ascending by scan time, ties
// broken by insertion order.
func (r *TrackingStore) ListTrackingEvents(ctx context.Context, shipmentID int64) ([]domain.TrackingEvent, error) {
	rows, err := r.db.Query(ctx, `
        SELECT id, shipment_id, status_code, status, description, location, scanned_at
        FROM tracking_events
        WHERE shipment_id = $1
        ORDER BY scanned_at ASC, id ASC
    `, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("list tracking events %d: %w", shipmentID, err)
	}

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.TrackingEvent, error) {
		var e domain.TrackingEvent
		err := row.Scan(&e.ID, &e.ShipmentID, &e.StatusCode, &e.Status, &e.Description, &e.Location, &e.ScannedAt)
		return e, err
	})
	if err != nil {
		return nil, fmt.Errorf("list tracking events %d: %w", shipmentID, err)
	}
	return events, nil
}

// TrackingTx performs tracking writes inside a transaction.
type TrackingTx struct {
	tx pgx.Tx
}

var _ tracking.Tx = (*TrackingTx)(nil)

// LockShipment locks the shipment row for the rest of the transaction.
func (t *TrackingTx) LockShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	s, err := scanShipment(t.tx.QueryRow(ctx, `SELECT `+shipmentColumns+` FROM shipments WHERE id = $1 FOR UPDATE`, shipmentID))
	if err != nil {
		if IsNotFound(err) {
			return nil, tracking.ErrShipmentNotFound
		}
		return nil, fmt.Errorf("lock shipment %d: %w", shipmentID, err)
	}
	return s, nil
}

// DeleteTrackingEvents removes every event of the shipment.
func (t *TrackingTx) DeleteTrackingEvents(ctx context.Context, shipmentID int64) error {
	if _, err := t.tx.Exec(ctx, `DELETE FROM tracking_events WHERE shipment_id = $1`, shipmentID); err != nil {
		return fmt.Errorf("delete tracking events %d: %w", shipmentID, err)
	}
	return nil
}

// InsertTrackingEvents bulk inserts events in slice order.
func (t *TrackingTx) InsertTrackingEvents(ctx context.Context, events []domain.TrackingEvent) error {
	if len(events) == 0 {
		return nil
	}
	_, err := t.tx.CopyFrom(ctx,
		pgx.Identifier{"tracking_events"},
		[]string{"shipment_id", "status_code", "status", "description", "location", "scanned_at"},
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			e := events[i]
			return []any{e.ShipmentID, e.StatusCode, e.Status, e.Description, e.Location, e.ScannedAt}, nil
		}),
	)
	if err != nil {
		return fmt.Errorf("insert tracking events: %w", err)
	}
	return nil
}

// UpdateShipmentTracking writes the tracking summary.
func (t *TrackingTx) UpdateShipmentTracking(ctx context.Context, u *tracking.Update) error {
	ct, err := t.tx.Exec(ctx, `
        UPDATE shipments
        SET status = $2, tracking_status = $3, shipped_at = $4, delivered_at = $5,
            estimated_delivery = $6, updated_at = now()
        WHERE id = $1
    `, u.ShipmentID, string(u.Status), u.TrackingStatus, u.ShippedAt, u.DeliveredAt, u.EstimatedDelivery)
	if err != nil {
		return fmt.Errorf("update shipment tracking %d: %w", u.ShipmentID, err)
	}
	if ct.RowsAffected() == 0 {
		return tracking.ErrShipmentNotFound
	}
	return nil
}
