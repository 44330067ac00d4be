package blob

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/citylake/traffic-weather-etl/internal/domain"
)

// RetryPolicy bounds the readiness wait on the object store. Stages probe
// the store before reading so a briefly restarting backend does not fail
// the run.
type RetryPolicy struct {
	MaxAttempts int
	Interval    time.Duration
}

// WaitReady probes the store until it answers a bucket listing, the attempts
// are exhausted, or the context is cancelled. Exhaustion is a connectivity
// error.
func WaitReady(ctx context.Context, store domain.ObjectStore, policy RetryPolicy, clock clockwork.Clock, logger *slog.Logger) error {
	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		_, err := store.ListBuckets(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		logger.Warn("object store not ready", "attempt", attempt, "max_attempts", policy.MaxAttempts, "error", lastErr)
		if attempt == policy.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for object store: %w", ctx.Err())
		case <-clock.After(policy.Interval):
		}
	}
	return fmt.Errorf("object store not ready after %d attempts: %w: %w",
		policy.MaxAttempts, domain.ErrStoreUnavailable, lastErr)
}
