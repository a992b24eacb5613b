package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/internal/server"
	"github.com/bullionhub/shipbridge/internal/tracking"
	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/mock"
)

type stubCarrierStore struct {
	carriers []shipping.Carrier
	services []domain.CarrierService
}

func (s *stubCarrierStore) ListCarriers(_ context.Context, activeOnly bool) ([]shipping.Carrier, error) {
	out := make([]shipping.Carrier, 0, len(s.carriers))
	for _, c := range s.carriers {
		if !activeOnly || c.Active {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *stubCarrierStore) ListCarrierServices(context.Context, int64) ([]domain.CarrierService, error) {
	return s.services, nil
}

type stubShipmentStore struct {
	shipments map[int64]*domain.Shipment
	attached  map[int64]*shipping.LabelResult
	attachErr error
}

func (s *stubShipmentStore) GetShipment(_ context.Context, id int64) (*domain.Shipment, error) {
	return s.shipments[id], nil
}

func (s *stubShipmentStore) AttachLabel(_ context.Context, id int64, _ string, label *shipping.LabelResult) error {
	if s.attachErr != nil {
		return s.attachErr
	}
	s.attached[id] = label
	return nil
}

type stubPickupStore struct {
	created   []domain.CarrierPickup
	cancelled []string
}

func (s *stubPickupStore) CreatePickup(_ context.Context, p *domain.CarrierPickup) error {
	s.created = append(s.created, *p)
	return nil
}

func (s *stubPickupStore) CancelPickup(_ context.Context, _ int64, confirmation string) (bool, error) {
	s.cancelled = append(s.cancelled, confirmation)
	return true, nil
}

type stubRefresher struct {
	refreshFn func(ctx context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error)
	lastKnown []domain.TrackingEvent
}

func (s *stubRefresher) Refresh(ctx context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error) {
	return s.refreshFn(ctx, trackingNumber, shipmentID, carrierID)
}

func (s *stubRefresher) LastKnown(context.Context, int64) ([]domain.TrackingEvent, error) {
	return s.lastKnown, nil
}

type fixture struct {
	router    http.Handler
	fedex     *mock.Provider
	shipments *stubShipmentStore
	pickups   *stubPickupStore
	refresher *stubRefresher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := otelzap.New(zap.NewNop())
	fedex := mock.NewProvider(shipping.FedEx)
	registry := shipping.NewRegistry()
	registry.Register(shipping.FedEx, mock.Binding(fedex))

	lookup := mock.NewCarriers(
		&shipping.Carrier{ID: 1, Name: "FedEx", Active: true},
		&shipping.Carrier{ID: 2, Name: "UPS", Active: true},
	)
	handler := shipping.NewHandler(shipping.NewResolver(lookup, registry), shipping.HandlerConfig{}, logger, nil, nil)

	shipments := &stubShipmentStore{
		shipments: map[int64]*domain.Shipment{
			10: {ID: 10, CarrierID: 1, TrackingNumber: "794600000001", Status: domain.StatusLabelCreated},
			11: {ID: 11, CarrierID: 1},
		},
		attached: make(map[int64]*shipping.LabelResult),
	}
	pickups := &stubPickupStore{}
	refresher := &stubRefresher{}

	srv := server.New(server.Config{Port: 8080}, server.Deps{
		Handler:  handler,
		Registry: registry,
		Carriers: &stubCarrierStore{
			carriers: []shipping.Carrier{
				{ID: 1, Name: "FedEx", DisplayName: "FedEx", Active: true},
				{ID: 2, Name: "UPS", DisplayName: "UPS", Active: true},
				{ID: 3, Name: "DHL", DisplayName: "DHL", Active: false},
			},
			services: []domain.CarrierService{
				{ServiceCode: "PRIORITY_OVERNIGHT", Name: "Priority Overnight", MinTransitDays: 1, MaxTransitDays: 1, Insurance: true},
			},
		},
		Shipments: shipments,
		Pickups:   pickups,
		Tracking:  refresher,
		Gatherer:  prometheus.NewRegistry(),
	}, logger)

	return &fixture{
		router:    srv.Router(),
		fedex:     fedex,
		shipments: shipments,
		pickups:   pickups,
		refresher: refresher,
	}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const ratesBody = `{
	"destination": {"line_1": "1 Vault Way", "city": "Wilmington", "state": "DE", "zip": "19801", "country_code": "US"},
	"packages": [{"weight": 2.5}],
	"declared_value": "2450.00"
}`

func TestServer_Health(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = f.do(t, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_ListCarriers(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/carriers?active=true", "")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decodeBody[[]map[string]any](t, rec)
	require.Len(t, got, 2)
	assert.Equal(t, "fedex", got[0]["code"])
	assert.Equal(t, true, got[0]["supported"])
	assert.Equal(t, "ups", got[1]["code"])
	assert.Equal(t, false, got[1]["supported"])
}

func TestServer_ListServices(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/carriers/1/services", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[[]map[string]any](t, rec)
	require.Len(t, got, 1)
	assert.Equal(t, "PRIORITY_OVERNIGHT", got[0]["service_code"])
	assert.Equal(t, true, got[0]["supports_insurance"])
}

func TestServer_GetRates(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/rates", ratesBody)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rates := decodeBody[[]shipping.Rate](t, rec)
	require.Len(t, rates, 1)
	assert.Equal(t, shipping.FedEx, rates[0].Carrier)
}

func TestServer_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"invalid carrier id", "/v1/carriers/abc/rates", ratesBody, http.StatusBadRequest},
		{"malformed json", "/v1/carriers/1/rates", `{"packages":`, http.StatusBadRequest},
		{"unknown field", "/v1/carriers/1/rates", `{"bogus": 1}`, http.StatusBadRequest},
		{"validation", "/v1/carriers/1/rates", `{"packages": []}`, http.StatusBadRequest},
		{"unknown carrier", "/v1/carriers/42/rates", ratesBody, http.StatusNotFound},
		{"unsupported carrier", "/v1/carriers/2/rates", ratesBody, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			rec := f.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, 0, f.fedex.TotalCalls())
		})
	}
}

func TestServer_ValidationFields(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/rates", `{"packages": [{"weight": 1}]}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Contains(t, got["fields"], "destination.zip")
}

func TestServer_ProviderError(t *testing.T) {
	f := newFixture(t)
	f.fedex.OnCall = func(context.Context, shipping.Operation, shipping.Payload) (json.RawMessage, error) {
		return nil, shipping.NewProviderError(shipping.FedEx, shipping.OpGetRates, "ACCOUNT.NUMBER.INVALID", "Invalid account").
			WithStatusCode(http.StatusBadRequest).
			WithPayload([]byte(`{"errors":[{"code":"ACCOUNT.NUMBER.INVALID"}]}`))
	}

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/rates", ratesBody)
	require.Equal(t, http.StatusBadGateway, rec.Code)

	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ACCOUNT.NUMBER.INVALID", got["code"])
	assert.Equal(t, "fedex", got["carrier"])
	assert.NotNil(t, got["payload"])
}

func TestServer_RateShopping(t *testing.T) {
	f := newFixture(t)

	body := `{"carrier_ids": [1, 2, 42],` + strings.TrimPrefix(ratesBody, "{")
	rec := f.do(t, http.MethodPost, "/v1/rates", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[struct {
		Rates  []shipping.Rate `json:"rates"`
		Errors []string        `json:"errors"`
	}](t, rec)
	assert.Len(t, got.Rates, 1)
	assert.Len(t, got.Errors, 2)

	rec = f.do(t, http.MethodPost, "/v1/rates", ratesBody)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

const labelBody = `{
	"shipment_id": 10,
	"recipient": {"line_1": "1 Vault Way", "city": "Wilmington", "state": "DE", "zip": "19801", "country_code": "US"},
	"packages": [{"weight": 2.5}],
	"service_type": "PRIORITY_OVERNIGHT",
	"ship_date": "2025-03-03",
	"declared_value": "2450.00",
	"insured": true
}`

func TestServer_CreateLabel_RecordsOnShipment(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/labels", labelBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "TRK-1", got["tracking_number"])
	assert.Equal(t, true, got["recorded"])
	require.Contains(t, f.shipments.attached, int64(10))
	assert.Equal(t, "LBL-1", f.shipments.attached[10].LabelID)
}

func TestServer_CreateLabel_AttachFailureStillReturnsLabel(t *testing.T) {
	f := newFixture(t)
	f.shipments.attachErr = errors.New("db down")

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/labels", labelBody)
	require.Equal(t, http.StatusCreated, rec.Code)
	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "TRK-1", got["tracking_number"])
	assert.Equal(t, false, got["recorded"])
}

func TestServer_CreateLabel_UnknownShipment(t *testing.T) {
	f := newFixture(t)

	body := strings.Replace(labelBody, `"shipment_id": 10`, `"shipment_id": 99`, 1)
	rec := f.do(t, http.MethodPost, "/v1/carriers/1/labels", body)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, f.fedex.Calls(shipping.OpCreateLabel))
}

func TestServer_Pickups(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/pickups", `{
		"shipment_id": 10,
		"ready_date": "2025-03-03",
		"ready_time": "09:00",
		"close_time": "17:00",
		"package_count": 1,
		"total_weight": 2.5
	}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.Len(t, f.pickups.created, 1)
	assert.Equal(t, "PU-1", f.pickups.created[0].ConfirmationNumber)
	assert.Equal(t, int64(10), f.pickups.created[0].ShipmentID)
	assert.Equal(t, domain.PickupScheduled, f.pickups.created[0].Status)

	rec = f.do(t, http.MethodPost, "/v1/carriers/1/pickups/cancel",
		`{"confirmation_number": "PU-1", "scheduled_date": "2025-03-03"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"PU-1"}, f.pickups.cancelled)
}

const pickupBody = `{
	"shipment_id": 99,
	"ready_date": "2025-03-03",
	"ready_time": "09:00",
	"close_time": "17:00",
	"package_count": 1,
	"total_weight": 2.5
}`

func TestServer_CreatePickup_UnknownShipment(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/carriers/1/pickups", pickupBody)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, f.fedex.Calls(shipping.OpCreatePickup))
	assert.Empty(t, f.pickups.created)
}

func TestServer_CreatePickup_ShipmentOfAnotherCarrier(t *testing.T) {
	f := newFixture(t)

	body := strings.Replace(pickupBody, `"shipment_id": 99`, `"shipment_id": 10`, 1)
	rec := f.do(t, http.MethodPost, "/v1/carriers/2/pickups", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, 0, f.fedex.TotalCalls())
	assert.Empty(t, f.pickups.created)
}

func TestServer_GetTracking(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/carriers/1/tracking/794600000001", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[shipping.NormalizedTracking](t, rec)
	assert.Equal(t, shipping.EstimatedDeliveryTBD, got.EstimatedDeliveryTime)

	payload := f.fedex.LastPayload(shipping.OpGetTracking).(mock.Request)
	assert.Equal(t, "794600000001", payload.Input.(*shipping.TrackingInput).TrackingNumber)
}

func TestServer_RefreshTracking_UsesStoredShipment(t *testing.T) {
	f := newFixture(t)
	scanned := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	f.refresher.refreshFn = func(_ context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error) {
		assert.Equal(t, "794600000001", trackingNumber)
		assert.Equal(t, int64(10), shipmentID)
		assert.Equal(t, int64(1), carrierID)
		return []domain.TrackingEvent{{StatusCode: "PU", Status: shipping.StatusPickedUp, ScannedAt: scanned}}, nil
	}

	rec := f.do(t, http.MethodPost, "/v1/shipments/10/tracking/refresh", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, false, got["stale"])
	assert.Len(t, got["events"], 1)
}

func TestServer_RefreshTracking_StaleOnFailure(t *testing.T) {
	f := newFixture(t)
	f.refresher.lastKnown = []domain.TrackingEvent{{StatusCode: "OC", Status: shipping.StatusLabelCreated}}
	f.refresher.refreshFn = func(context.Context, string, int64, int64) ([]domain.TrackingEvent, error) {
		return nil, &shipping.IngestionError{ShipmentID: 10, Step: "insert_events", Cause: errors.New("boom")}
	}

	rec := f.do(t, http.MethodPost, "/v1/shipments/10/tracking/refresh", `{"tracking_number": "794600000001", "carrier_id": 1}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	got := decodeBody[map[string]any](t, rec)
	assert.Equal(t, true, got["stale"])
	assert.Len(t, got["events"], 1)
	assert.Contains(t, got["error"], "previous state preserved")
}

func TestServer_RefreshTracking_NotFound(t *testing.T) {
	f := newFixture(t)
	f.refresher.refreshFn = func(context.Context, string, int64, int64) ([]domain.TrackingEvent, error) {
		return nil, &shipping.IngestionError{ShipmentID: 77, Step: "lock_shipment", Cause: tracking.ErrShipmentNotFound}
	}

	rec := f.do(t, http.MethodPost, "/v1/shipments/99/tracking/refresh", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/v1/shipments/77/tracking/refresh", `{"tracking_number": "X", "carrier_id": 1}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_RefreshTracking_NoTrackingNumber(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/v1/shipments/11/tracking/refresh", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
