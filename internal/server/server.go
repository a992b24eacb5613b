// Package server exposes carrier operations and tracking refreshes over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/domain"
	"github.com/bullionhub/shipbridge/pkg/shipping"
)

// CarrierStore lists configured carriers and their services.
type CarrierStore interface {
	ListCarriers(ctx context.Context, activeOnly bool) ([]shipping.Carrier, error)
	ListCarrierServices(ctx context.Context, carrierID int64) ([]domain.CarrierService, error)
}

// ShipmentStore reads shipments and records labels on them.
type ShipmentStore interface {
	GetShipment(ctx context.Context, id int64) (*domain.Shipment, error)
	AttachLabel(ctx context.Context, shipmentID int64, serviceType string, label *shipping.LabelResult) error
}

// PickupStore records scheduled pickups.
type PickupStore interface {
	CreatePickup(ctx context.Context, p *domain.CarrierPickup) error
	CancelPickup(ctx context.Context, carrierID int64, confirmationNumber string) (bool, error)
}

// Refresher refreshes stored tracking.
type Refresher interface {
	Refresh(ctx context.Context, trackingNumber string, shipmentID, carrierID int64) ([]domain.TrackingEvent, error)
	LastKnown(ctx context.Context, shipmentID int64) ([]domain.TrackingEvent, error)
}

// Config holds server configuration.
type Config struct {
	Port           int
	RequestTimeout time.Duration
}

// Deps are the components the server routes to.
type Deps struct {
	Handler   *shipping.Handler
	Registry  *shipping.Registry
	Carriers  CarrierStore
	Shipments ShipmentStore
	Pickups   PickupStore
	Tracking  Refresher
	Gatherer  prometheus.Gatherer
}

// Server is the HTTP server for the shipping service.
type Server struct {
	port    int
	timeout time.Duration
	deps    Deps
	logger  *otelzap.Logger
}

// New creates a new server instance.
func New(cfg Config, deps Deps, logger *otelzap.Logger) *Server {
	timeout := cfg.RequestTimeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	if deps.Gatherer == nil {
		deps.Gatherer = prometheus.DefaultGatherer
	}
	return &Server{
		port:    cfg.Port,
		timeout: timeout,
		deps:    deps,
		logger:  logger,
	}
}

// Router returns the HTTP handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.timeout))

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.deps.Gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/carriers", s.handleListCarriers)
		r.Post("/rates", s.handleRateShopping)

		r.Route("/carriers/{carrierID}", func(r chi.Router) {
			r.Get("/services", s.handleListServices)
			r.Post("/addresses/validate", s.handleValidateAddress)
			r.Post("/rates", s.handleGetRates)
			r.Post("/labels", s.handleCreateLabel)
			r.Post("/labels/cancel", s.handleCancelLabel)
			r.Post("/pickups/availability", s.handleCheckPickup)
			r.Post("/pickups", s.handleCreatePickup)
			r.Post("/pickups/cancel", s.handleCancelPickup)
			r.Post("/locations", s.handleGetLocations)
			r.Get("/tracking/{trackingNumber}", s.handleGetTracking)
		})

		r.Post("/shipments/{shipmentID}/tracking/refresh", s.handleRefreshTracking)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "not found")
	})

	return r
}

// Run starts the HTTP server and blocks until context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Router(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: s.timeout + 5*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting server", zap.Int("port", s.port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			path = rc.RoutePattern()
		}
		s.logger.Ctx(r.Context()).Info("HTTP request",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
		)
	})
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s", name)
	}
	return id, nil
}
