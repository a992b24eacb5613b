package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/config"
	"github.com/bullionhub/shipbridge/internal/repository"
	"github.com/bullionhub/shipbridge/internal/telemetry"
	"github.com/bullionhub/shipbridge/internal/tracking"
	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/carriers"
)

func loadConfig() (*config.Config, error) {
	return config.Load()
}

func initLogger(level string) (*otelzap.Logger, error) {
	return telemetry.NewLogger(level)
}

func initTracer(ctx context.Context, cfg *config.Config) (trace.Tracer, func(context.Context) error, error) {
	if !cfg.OTELEnabled {
		return telemetry.NoopTracer(), func(context.Context) error { return nil }, nil
	}
	return telemetry.InitTracer(ctx, cfg.OTELEndpoint, cfg.ServiceName, cfg.Version, cfg.Attributes()...)
}

// app is the wiring shared by the serve and track commands.
type app struct {
	cfg       *config.Config
	logger    *otelzap.Logger
	pool      *pgxpool.Pool
	registry  *shipping.Registry
	handler   *shipping.Handler
	carriers  *repository.CarrierRepo
	shipments *repository.ShipmentRepo
	tracking  *tracking.Service

	shutdownTracer func(context.Context) error
}

func newApp(ctx context.Context, reg prometheus.Registerer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	tracer, shutdown, err := initTracer(ctx, cfg)
	if err != nil {
		logger.Warn("Failed to initialize tracer", zap.Error(err))
		tracer, shutdown = telemetry.NoopTracer(), func(context.Context) error { return nil }
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		_ = shutdown(ctx)
		return nil, fmt.Errorf("connect database: %w", err)
	}

	metrics := telemetry.NewMetrics(reg)
	registry := carriers.NewRegistry(cfg.Carriers(), logger)
	carrierRepo := repository.NewCarrierRepo(pool)
	handler := shipping.NewHandler(
		shipping.NewResolver(carrierRepo, registry),
		cfg.Handler(),
		logger,
		tracer,
		metrics,
	)

	return &app{
		cfg:            cfg,
		logger:         logger,
		pool:           pool,
		registry:       registry,
		handler:        handler,
		carriers:       carrierRepo,
		shipments:      repository.NewShipmentRepo(pool),
		tracking:       tracking.NewService(handler, repository.NewTrackingStore(pool), logger, metrics),
		shutdownTracer: shutdown,
	}, nil
}

func (a *app) close(ctx context.Context) {
	a.pool.Close()
	if err := a.shutdownTracer(context.WithoutCancel(ctx)); err != nil {
		a.logger.Warn("Failed to flush traces", zap.Error(err))
	}
	_ = a.logger.Sync()
}
