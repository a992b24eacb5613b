package shipping

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives per-operation measurements.
type Observer interface {
	ObserveOperation(op Operation, carrier Code, outcome string, elapsed time.Duration)
	ObserveCarrierError(carrier Code, errType string)
}

type nopObserver struct{}

func (nopObserver) ObserveOperation(Operation, Code, string, time.Duration) {}
func (nopObserver) ObserveCarrierError(Code, string)                        {}

// Outcome labels reported to the Observer.
const (
	OutcomeOK              = "ok"
	OutcomeResolutionError = "resolution_error"
	OutcomeBuildError      = "build_error"
	OutcomeProviderError   = "provider_error"
)

// HandlerConfig configures a Handler.
type HandlerConfig struct {
	Retry RetryPolicy
}

// Handler is the single entry point for carrier operations. For every call it
// validates the input, resolves the carrier, builds the carrier request,
// invokes the provider and normalizes the response. It persists nothing.
type Handler struct {
	resolver *Resolver
	retry    RetryPolicy
	validate *validator.Validate
	logger   *otelzap.Logger
	tracer   trace.Tracer
	observer Observer
}

// NewHandler creates a Handler. tracer and observer may be nil.
func NewHandler(resolver *Resolver, cfg HandlerConfig, logger *otelzap.Logger, tracer trace.Tracer, observer Observer) *Handler {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Handler{
		resolver: resolver,
		retry:    cfg.Retry.withDefaults(),
		validate: newValidator(),
		logger:   logger,
		tracer:   tracer,
		observer: observer,
	}
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateAddress checks an address with the carrier.
func (h *Handler) ValidateAddress(ctx context.Context, carrierID int64, in *AddressValidationInput) (*AddressValidationResult, error) {
	return run(ctx, h, OpValidateAddress, carrierID, in,
		Builders.ValidateAddress, Provider.ValidateAddress, Normalizer.ValidateAddress)
}

// GetRates quotes the carrier's services for a shipment.
func (h *Handler) GetRates(ctx context.Context, carrierID int64, in *RatesInput) ([]Rate, error) {
	return run(ctx, h, OpGetRates, carrierID, in,
		Builders.GetRates, Provider.GetRates, Normalizer.GetRates)
}

// CreateLabel buys a shipping label.
func (h *Handler) CreateLabel(ctx context.Context, carrierID int64, in *CreateLabelInput) (*LabelResult, error) {
	return run(ctx, h, OpCreateLabel, carrierID, in,
		Builders.CreateLabel, Provider.CreateLabel, Normalizer.CreateLabel)
}

// CancelLabel voids a previously created label.
func (h *Handler) CancelLabel(ctx context.Context, carrierID int64, in *CancelLabelInput) (*CancelResult, error) {
	return run(ctx, h, OpCancelLabel, carrierID, in,
		Builders.CancelLabel, Provider.CancelLabel, Normalizer.CancelLabel)
}

// CheckPickup lists pickup availability for an address and date.
func (h *Handler) CheckPickup(ctx context.Context, carrierID int64, in *CheckPickupInput) ([]AvailabilityWindow, error) {
	return run(ctx, h, OpCheckPickup, carrierID, in,
		Builders.CheckPickup, Provider.CheckPickup, Normalizer.CheckPickup)
}

// CreatePickup schedules a carrier pickup.
func (h *Handler) CreatePickup(ctx context.Context, carrierID int64, in *CreatePickupInput) (*PickupResult, error) {
	return run(ctx, h, OpCreatePickup, carrierID, in,
		Builders.CreatePickup, Provider.CreatePickup,
		func(n Normalizer, raw json.RawMessage) (*PickupResult, error) {
			return n.CreatePickup(in, raw)
		})
}

// CancelPickup cancels a scheduled pickup.
func (h *Handler) CancelPickup(ctx context.Context, carrierID int64, in *CancelPickupInput) (*CancelResult, error) {
	return run(ctx, h, OpCancelPickup, carrierID, in,
		Builders.CancelPickup, Provider.CancelPickup, Normalizer.CancelPickup)
}

// GetLocations finds carrier locations near an address.
func (h *Handler) GetLocations(ctx context.Context, carrierID int64, in *LocationsInput) ([]Location, error) {
	return run(ctx, h, OpGetLocations, carrierID, in,
		Builders.GetLocations, Provider.GetLocations, Normalizer.GetLocations)
}

// GetTracking fetches and normalizes tracking for a tracking number.
func (h *Handler) GetTracking(ctx context.Context, carrierID int64, in *TrackingInput) (*NormalizedTracking, error) {
	return run(ctx, h, OpGetTracking, carrierID, in,
		Builders.GetTracking, Provider.GetTracking, Normalizer.NormalizeTracking)
}

// GetRatesFromCarriers quotes several carriers in parallel. Failures of
// individual carriers are collected and do not fail the whole request.
func (h *Handler) GetRatesFromCarriers(ctx context.Context, carrierIDs []int64, in *RatesInput) ([]Rate, []error) {
	rates := make([]Rate, 0)
	errs := make([]error, 0)
	mu := &sync.Mutex{}

	g, ctx := errgroup.WithContext(ctx)

	for _, id := range carrierIDs {
		g.Go(func() error {
			got, err := h.GetRates(ctx, id, in)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("carrier %d: %w", id, err))
				return nil
			}
			rates = append(rates, got...)
			return nil
		})
	}

	_ = g.Wait()
	return rates, errs
}

func run[In, Out any](
	ctx context.Context,
	h *Handler,
	op Operation,
	carrierID int64,
	in *In,
	build func(Builders, *In) Payload,
	call func(Provider, context.Context, Payload) (json.RawMessage, error),
	normalize func(Normalizer, json.RawMessage) (Out, error),
) (out Out, err error) {
	started := time.Now()
	code := Code("")

	ctx, span := h.tracer.Start(ctx, "shipping."+string(op),
		trace.WithAttributes(
			attribute.String("shipping.operation", string(op)),
			attribute.Int64("shipping.carrier_id", carrierID),
		),
	)
	defer span.End()

	log := h.logger.Ctx(ctx)
	outcome := OutcomeOK
	defer func() {
		h.observer.ObserveOperation(op, code, outcome, time.Since(started))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err = h.check(op, in); err != nil {
		outcome = OutcomeBuildError
		log.Error("Invalid carrier operation input",
			zap.String("operation", string(op)),
			zap.Int64("carrier_id", carrierID),
			zap.Error(err),
		)
		return out, err
	}

	res, err := h.resolver.Resolve(ctx, carrierID)
	if err != nil {
		outcome = OutcomeResolutionError
		var resErr *ResolutionError
		if errors.As(err, &resErr) {
			code = resErr.Code
		}
		log.Error("Carrier resolution failed",
			zap.String("operation", string(op)),
			zap.Int64("carrier_id", carrierID),
			zap.Error(err),
		)
		return out, err
	}
	code = res.Code
	span.SetAttributes(attribute.String("shipping.carrier", string(code)))

	payload := build(res.Builders, in)

	raw, err := h.invoke(ctx, op, code, func(ctx context.Context) (json.RawMessage, error) {
		return call(res.Provider, ctx, payload)
	})
	if err != nil {
		outcome = OutcomeProviderError
		h.observer.ObserveCarrierError(code, errorType(err))
		log.Warn("Carrier call failed",
			zap.String("operation", string(op)),
			zap.String("carrier", string(code)),
			zap.Int64("carrier_id", carrierID),
			zap.Bool("retryable", IsRetryable(err)),
			zap.Error(err),
		)
		return out, err
	}

	out, err = normalize(res.Normalizer, raw)
	if err != nil {
		outcome = OutcomeProviderError
		var providerErr *ProviderError
		if errors.As(err, &providerErr) {
			// The carrier answered 2xx but reported a failure in the body.
			h.observer.ObserveCarrierError(code, errorType(err))
		} else {
			h.observer.ObserveCarrierError(code, "invalid_response")
			err = NewProviderError(code, op, "INVALID_RESPONSE", "could not read carrier response").
				WithPayload(raw).
				WithCause(err)
		}
		log.Error("Carrier response could not be normalized",
			zap.String("operation", string(op)),
			zap.String("carrier", string(code)),
			zap.Error(err),
		)
		return out, err
	}

	log.Info("Carrier operation completed",
		zap.String("operation", string(op)),
		zap.String("carrier", string(code)),
		zap.Duration("elapsed", time.Since(started)),
	)
	return out, nil
}

// check validates input before any builder sees it.
func (h *Handler) check(op Operation, in any) error {
	if in == nil || reflect.ValueOf(in).IsNil() {
		return &BuildError{Operation: op, Cause: errors.New("input is required")}
	}
	err := h.validate.Struct(in)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return &BuildError{Operation: op, Cause: err}
	}
	fields := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		// Drop the root struct name: "RatesInput.destination.zip" -> "destination.zip".
		ns := fe.Namespace()
		if i := strings.IndexByte(ns, '.'); i >= 0 {
			ns = ns[i+1:]
		}
		fields = append(fields, ns)
	}
	return &BuildError{Operation: op, Fields: fields, Cause: err}
}

func errorType(err error) string {
	var providerErr *ProviderError
	if errors.As(err, &providerErr) && providerErr.Code != "" {
		return strings.ToLower(providerErr.Code)
	}
	return "unknown"
}
