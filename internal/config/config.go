package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.opentelemetry.io/otel/attribute"

	"github.com/bullionhub/shipbridge/pkg/shipping"
	"github.com/bullionhub/shipbridge/pkg/shipping/carriers"
	"github.com/bullionhub/shipbridge/pkg/shipping/fedex"
)

// Config holds all configuration for the service.
type Config struct {
	// Server
	Port     int    `envconfig:"PORT" default:"8080"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" default:"postgres://localhost:5432/shipbridge?sslmode=disable"`

	// FedEx
	FedExEnabled           bool          `envconfig:"FEDEX_ENABLED" default:"true"`
	FedExBaseURL           string        `envconfig:"FEDEX_BASE_URL" default:"https://apis-sandbox.fedex.com"`
	FedExClientID          string        `envconfig:"FEDEX_CLIENT_ID"`
	FedExClientSecret      string        `envconfig:"FEDEX_CLIENT_SECRET"`
	FedExTrackClientID     string        `envconfig:"FEDEX_TRACK_CLIENT_ID"`
	FedExTrackClientSecret string        `envconfig:"FEDEX_TRACK_CLIENT_SECRET"`
	FedExAccountNumber     string        `envconfig:"FEDEX_ACCOUNT_NUMBER"`
	FedExTimeout           time.Duration `envconfig:"FEDEX_TIMEOUT" default:"30s"`

	// Return address, used as shipper and pickup address when callers omit one.
	ReturnName    string `envconfig:"RETURN_NAME"`
	ReturnCompany string `envconfig:"RETURN_COMPANY"`
	ReturnPhone   string `envconfig:"RETURN_PHONE"`
	ReturnLine1   string `envconfig:"RETURN_LINE1"`
	ReturnLine2   string `envconfig:"RETURN_LINE2"`
	ReturnCity    string `envconfig:"RETURN_CITY"`
	ReturnState   string `envconfig:"RETURN_STATE"`
	ReturnZip     string `envconfig:"RETURN_ZIP"`
	ReturnCountry string `envconfig:"RETURN_COUNTRY" default:"US"`

	// Resilience
	RetryMaxAttempts int           `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"200ms"`
	RetryMaxDelay    time.Duration `envconfig:"RETRY_MAX_DELAY" default:"2s"`
	BreakerFailures  uint32        `envconfig:"BREAKER_FAILURES" default:"5"`
	BreakerTimeout   time.Duration `envconfig:"BREAKER_TIMEOUT" default:"30s"`

	// Telemetry
	OTELEnabled  bool   `envconfig:"OTEL_ENABLED" default:"false"`
	OTELEndpoint string `envconfig:"OTEL_ENDPOINT" default:"localhost:4318"`
	ServiceName  string `envconfig:"SERVICE_NAME" default:"shipbridge"`
	Version      string `envconfig:"SERVICE_VERSION" default:"0.0.1"`
}

// Load reads an optional .env file, then configuration from environment
// variables. Variables already set in the environment win over .env.
func Load() (*Config, error) {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid port: %d", cfg.Port)
	}
	return &cfg, nil
}

// ReturnAddress returns the configured return address.
func (c *Config) ReturnAddress() shipping.Address {
	return shipping.Address{
		Name:        c.ReturnName,
		Company:     c.ReturnCompany,
		Phone:       c.ReturnPhone,
		Line1:       c.ReturnLine1,
		Line2:       c.ReturnLine2,
		City:        c.ReturnCity,
		State:       c.ReturnState,
		Zip:         c.ReturnZip,
		CountryCode: c.ReturnCountry,
	}
}

// Carriers returns the carrier wiring configuration.
func (c *Config) Carriers() carriers.Config {
	return carriers.Config{
		FedExEnabled: c.FedExEnabled,
		FedEx: fedex.Config{
			BaseURL: c.FedExBaseURL,
			Ship: fedex.Credentials{
				ClientID:     c.FedExClientID,
				ClientSecret: c.FedExClientSecret,
			},
			Track: fedex.Credentials{
				ClientID:     c.FedExTrackClientID,
				ClientSecret: c.FedExTrackClientSecret,
			},
			Timeout:         c.FedExTimeout,
			BreakerFailures: c.BreakerFailures,
			BreakerTimeout:  c.BreakerTimeout,
		},
		AccountNumber: c.FedExAccountNumber,
		ReturnAddress: c.ReturnAddress(),
	}
}

// Handler returns the operation handler configuration.
func (c *Config) Handler() shipping.HandlerConfig {
	return shipping.HandlerConfig{
		Retry: shipping.RetryPolicy{
			MaxAttempts: c.RetryMaxAttempts,
			BaseDelay:   c.RetryBaseDelay,
			MaxDelay:    c.RetryMaxDelay,
		},
	}
}

// Attributes returns OpenTelemetry attributes for this configuration.
func (c *Config) Attributes() []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("service.name", c.ServiceName),
		attribute.String("service.version", c.Version),
		attribute.Bool("fedex.enabled", c.FedExEnabled),
	}
}
