package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/internal/repository"
	"github.com/bullionhub/shipbridge/internal/server"
)

var version = "0.0.1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "shipbridge",
	Short:   "Carrier integration layer - rates, labels, pickups and tracking",
	Version: version,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	RunE:  runMigrate,
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Tracking maintenance commands",
}

var trackRefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh stored tracking for one shipment",
	RunE:  runTrackRefresh,
}

var refreshFlags struct {
	shipmentID     int64
	carrierID      int64
	trackingNumber string
}

func init() {
	trackRefreshCmd.Flags().Int64Var(&refreshFlags.shipmentID, "shipment", 0, "shipment id")
	trackRefreshCmd.Flags().Int64Var(&refreshFlags.carrierID, "carrier", 0, "carrier id (defaults to the shipment's carrier)")
	trackRefreshCmd.Flags().StringVar(&refreshFlags.trackingNumber, "tracking-number", "", "tracking number (defaults to the shipment's)")
	_ = trackRefreshCmd.MarkFlagRequired("shipment")

	trackCmd.AddCommand(trackRefreshCmd)
	rootCmd.AddCommand(serveCmd, migrateCmd, trackCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	a.logger.Info("Starting shipbridge",
		zap.Int("port", a.cfg.Port),
		zap.String("version", a.cfg.Version),
		zap.Int("carriers", a.registry.Count()),
	)

	srv := server.New(server.Config{Port: a.cfg.Port}, server.Deps{
		Handler:   a.handler,
		Registry:  a.registry,
		Carriers:  a.carriers,
		Shipments: a.shipments,
		Pickups:   repository.NewPickupRepo(a.pool),
		Tracking:  a.tracking,
		Gatherer:  prometheus.DefaultGatherer,
	}, a.logger)
	if err := srv.Run(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

func runMigrate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := initLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	if err := repository.Migrate(ctx, pool); err != nil {
		return err
	}
	logger.Info("Schema applied")
	return nil
}

func runTrackRefresh(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, prometheus.NewRegistry())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	shipmentID := refreshFlags.shipmentID
	carrierID := refreshFlags.carrierID
	trackingNumber := refreshFlags.trackingNumber
	if carrierID == 0 || trackingNumber == "" {
		shipment, err := a.shipments.GetShipment(ctx, shipmentID)
		if err != nil {
			return err
		}
		if shipment == nil {
			return fmt.Errorf("shipment %d not found", shipmentID)
		}
		if carrierID == 0 {
			carrierID = shipment.CarrierID
		}
		if trackingNumber == "" {
			trackingNumber = shipment.TrackingNumber
		}
	}
	if trackingNumber == "" {
		return fmt.Errorf("shipment %d has no tracking number", shipmentID)
	}

	events, err := a.tracking.Refresh(ctx, trackingNumber, shipmentID, carrierID)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "shipment %d: %d tracking events stored\n", shipmentID, len(events))
	return nil
}
