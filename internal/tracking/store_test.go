package tracking_test

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/internal/tracking"
)

// memStore is a tracking.Store whose transactions work on a copy of the state
// that is swapped in only on commit.
type memStore struct {
	mu        sync.Mutex
	shipments map[int64]domain.Shipment
	events    map[int64][]domain.TrackingEvent
	nextID    int64
	txCount   int

	failInsert error
	failUpdate error
	panicOn    string
}

func newMemStore(shipments ...domain.Shipment) *memStore {
	s := &memStore{
		shipments: make(map[int64]domain.Shipment),
		events:    make(map[int64][]domain.TrackingEvent),
	}
	for _, sh := range shipments {
		s.shipments[sh.ID] = sh
	}
	return s
}

type memTx struct {
	store     *memStore
	shipments map[int64]domain.Shipment
	events    map[int64][]domain.TrackingEvent
	nextID    int64
}

func (s *memStore) WithTx(ctx context.Context, fn func(tx tracking.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.txCount++

	tx := &memTx{
		store:     s,
		shipments: make(map[int64]domain.Shipment, len(s.shipments)),
		events:    make(map[int64][]domain.TrackingEvent, len(s.events)),
		nextID:    s.nextID,
	}
	for k, v := range s.shipments {
		tx.shipments[k] = v
	}
	for k, v := range s.events {
		tx.events[k] = append([]domain.TrackingEvent(nil), v...)
	}

	defer func() {
		if p := recover(); p != nil {
			err = errors.New("panic in transaction")
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}
	s.shipments = tx.shipments
	s.events = tx.events
	s.nextID = tx.nextID
	return nil
}

func (s *memStore) ListTrackingEvents(ctx context.Context, shipmentID int64) ([]domain.TrackingEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	events := append([]domain.TrackingEvent{}, s.events[shipmentID]...)
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].ScannedAt.Equal(events[j].ScannedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].ScannedAt.Before(events[j].ScannedAt)
	})
	return events, nil
}

func (s *memStore) shipment(id int64) domain.Shipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.shipments[id]
}

func (s *memStore) transactions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.txCount
}

func (tx *memTx) LockShipment(ctx context.Context, shipmentID int64) (*domain.Shipment, error) {
	sh, ok := tx.shipments[shipmentID]
	if !ok {
		return nil, tracking.ErrShipmentNotFound
	}
	return &sh, nil
}

func (tx *memTx) DeleteTrackingEvents(ctx context.Context, shipmentID int64) error {
	delete(tx.events, shipmentID)
	return nil
}

func (tx *memTx) InsertTrackingEvents(ctx context.Context, events []domain.TrackingEvent) error {
	if tx.store.panicOn == "insert" {
		panic("insert exploded")
	}
	if tx.store.failInsert != nil {
		return tx.store.failInsert
	}
	for _, e := range events {
		tx.nextID++
		e.ID = tx.nextID
		tx.events[e.ShipmentID] = append(tx.events[e.ShipmentID], e)
	}
	return nil
}

func (tx *memTx) UpdateShipmentTracking(ctx context.Context, u *tracking.Update) error {
	if tx.store.failUpdate != nil {
		return tx.store.failUpdate
	}
	sh := tx.shipments[u.ShipmentID]
	sh.Status = u.Status
	sh.TrackingStatus = u.TrackingStatus
	sh.ShippedAt = u.ShippedAt
	sh.DeliveredAt = u.DeliveredAt
	sh.EstimatedDelivery = u.EstimatedDelivery
	tx.shipments[u.ShipmentID] = sh
	return nil
}
