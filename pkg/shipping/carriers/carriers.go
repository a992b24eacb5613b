// Package carriers wires every known carrier code to its implementation.
package carriers

import (
	"fmt"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/fedex"
)

// Config holds the settings of every implemented carrier.
type Config struct {
	FedExEnabled  bool
	FedEx         fedex.Config
	AccountNumber string
	ReturnAddress shipping.Address
}

// NewRegistry registers a binding for every known carrier that has an
// implementation and is enabled. Known carriers without one stay unregistered
// and resolve to shipping.ErrUnsupportedCarrier.
func NewRegistry(cfg Config, logger *otelzap.Logger) *shipping.Registry {
	registry := shipping.NewRegistry()

	for _, code := range shipping.KnownCodes() {
		switch code {
		case shipping.FedEx:
			if !cfg.FedExEnabled {
				logger.Info("Carrier disabled", zap.String("carrier", string(code)))
				continue
			}
			registry.Register(code, shipping.Binding{
				Provider:   fedex.NewProvider(cfg.FedEx, logger),
				Builders:   fedex.NewBuilders(cfg.AccountNumber, cfg.ReturnAddress),
				Normalizer: fedex.NewNormalizer(),
			})
			logger.Info("Registered carrier", zap.String("carrier", string(code)))
		case shipping.UPS:
			logger.Info("Carrier not implemented", zap.String("carrier", string(code)))
		default:
			panic(fmt.Sprintf("carriers: no wiring for known carrier %q", code))
		}
	}

	return registry
}
