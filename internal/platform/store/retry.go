package store

import (
	"context"
	"time"

	perr "warden/internal/platform/errors"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig bounds the transient-error retry loop used by writers
type RetryConfig struct {
	MaxAttempts     int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// DefaultRetry is tuned for short-lived lock/serialization conflicts
var DefaultRetry = RetryConfig{
	MaxAttempts:     5,
	InitialInterval: 50 * time.Millisecond,
	MaxInterval:     1 * time.Second,
}

// Retry runs fn, retrying with exponential backoff while the error is a
// transient database condition. Permanent errors and context cancellation
// abort immediately
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.MaxAttempts <= 0 {
		cfg = DefaultRetry
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = cfg.InitialInterval
	bo.MaxInterval = cfg.MaxInterval

	wrapped := func() error {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if perr.IsRetryable(err) {
			return err
		}
		return backoff.Permanent(err)
	}

	return backoff.Retry(
		wrapped,
		backoff.WithContext(backoff.WithMaxRetries(bo, uint64(cfg.MaxAttempts-1)), ctx),
	)
}
