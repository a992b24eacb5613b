package shipping

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds Handler-level retries of idempotent operations.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = 1
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 200 * time.Millisecond
	}
	if p.MaxDelay < p.BaseDelay {
		p.MaxDelay = p.BaseDelay
	}
	return p
}

// invoke runs call once, or up to MaxAttempts times for idempotent operations
// failing with a retryable error.
func (h *Handler) invoke(ctx context.Context, op Operation, carrier Code, call func(context.Context) (json.RawMessage, error)) (json.RawMessage, error) {
	attempts := 1
	if op.Idempotent() {
		attempts = h.retry.MaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		raw, err := call(ctx)
		if err == nil {
			return raw, nil
		}
		lastErr = err

		if ctx.Err() != nil || attempt == attempts || !IsRetryable(err) {
			break
		}

		delay := backoff(h.retry.BaseDelay, h.retry.MaxDelay, attempt)
		h.logger.Ctx(ctx).Warn("Retrying carrier call",
			zap.String("operation", string(op)),
			zap.String("carrier", string(carrier)),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if !sleepWithContext(ctx, delay) {
			break
		}
	}
	return nil, lastErr
}

func backoff(base, max time.Duration, attempt int) time.Duration {
	d := base << (attempt - 1)
	if d > max || d <= 0 {
		return max
	}
	return d
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
