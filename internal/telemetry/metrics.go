package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	RequestsTotal     *prometheus.CounterVec
	RequestDuration   *prometheus.HistogramVec
	CarrierErrors     *prometheus.CounterVec
	TrackingRefreshes *prometheus.CounterVec
}

// NewMetrics creates metrics and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_requests_total",
				Help: "Total number of carrier operations by operation, carrier, and outcome",
			},
			[]string{"operation", "carrier", "outcome"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "shipbridge_request_duration_seconds",
				Help:    "Carrier operation duration in seconds by operation and carrier",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation", "carrier"},
		),
		CarrierErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_carrier_errors_total",
				Help: "Total carrier API errors by carrier and error type",
			},
			[]string{"carrier", "error_type"},
		),
		TrackingRefreshes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "shipbridge_tracking_refreshes_total",
				Help: "Total tracking refreshes by outcome",
			},
			[]string{"outcome"},
		),
	}
}

// ObserveOperation records a handler operation.
func (m *Metrics) ObserveOperation(op shipping.Operation, carrier shipping.Code, outcome string, elapsed time.Duration) {
	c := carrierLabel(carrier)
	m.RequestsTotal.WithLabelValues(string(op), c, outcome).Inc()
	m.RequestDuration.WithLabelValues(string(op), c).Observe(elapsed.Seconds())
}

// ObserveCarrierError records a carrier error.
func (m *Metrics) ObserveCarrierError(carrier shipping.Code, errType string) {
	m.CarrierErrors.WithLabelValues(carrierLabel(carrier), errType).Inc()
}

// ObserveRefresh records a tracking refresh outcome.
func (m *Metrics) ObserveRefresh(outcome string) {
	m.TrackingRefreshes.WithLabelValues(outcome).Inc()
}

func carrierLabel(c shipping.Code) string {
	if c == "" {
		return "unknown"
	}
	return string(c)
}
