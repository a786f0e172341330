package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// SQLSTATEs that mean the transaction lost a conflict and can be rerun as is.
const (
	serializationFailure = "40001"
	deadlockDetected     = "40P01"
)

func isConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == serializationFailure || pgErr.Code == deadlockDetected
}

// withRetry runs fn until it succeeds, fails with an error retryable rejects,
// or maxRetries reruns are spent. The delay doubles after every attempt.
func withRetry(ctx context.Context, maxRetries int, baseDelay time.Duration, retryable func(error) bool, fn func(context.Context) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if baseDelay <= 0 {
		baseDelay = 100 * time.Millisecond
	}

	delay := baseDelay
	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries || !retryable(err) {
			return err
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
