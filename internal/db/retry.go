package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sethvargo/go-retry"
)

// retryInitialBackoff, retryFactor, and DefaultMaxRetries define the
// deterministic geometric backoff schedule: 50ms initial, factor 2,
// capped at the configured retry count (default 6).
const (
	retryInitialBackoff = 50 * time.Millisecond
	retryFactor         = 2.0
	DefaultMaxRetries   = 6
)

// lockBusyCodes are the Postgres SQLSTATEs treated as a transient
// lock-contention signal worth retrying: lock_not_available,
// serialization_failure, and deadlock_detected.
var lockBusyCodes = map[string]struct{}{
	"55P03": {}, // lock_not_available
	"40001": {}, // serialization_failure
	"40P01": {}, // deadlock_detected
}

// IsLockBusy reports whether err represents transient write contention
// that the retry loop should absorb.
func IsLockBusy(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		_, busy := lockBusyCodes[pgErr.Code]
		return busy
	}
	return false
}

// WithRetry wraps fn in a retry loop: on a lock-busy signal, back off
// geometrically and retry up to maxRetries times; any other error
// propagates immediately.
func WithRetry(ctx context.Context, maxRetries int, fn func(ctx context.Context) error) error {
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}

	backoff := retry.NewExponential(retryInitialBackoff)
	backoff = retry.WithMaxRetries(uint64(maxRetries), backoff)

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := fn(ctx); err != nil {
			if IsLockBusy(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("statement retry exhausted: %w", err)
	}
	return nil
}
