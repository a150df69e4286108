package store

import (
	"context"
	stderrs "errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

func fastRetry(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:     attempts,
		InitialInterval: time.Millisecond,
		MaxInterval:     2 * time.Millisecond,
	}
}

func TestRetrySucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"} // deadlock
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry: %v", err)
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want 3", calls)
	}
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	boom := stderrs.New("syntax error")
	calls := 0
	err := Retry(context.Background(), fastRetry(5), func(context.Context) error {
		calls++
		return boom
	})
	if !stderrs.Is(err, boom) {
		t.Fatalf("err = %v, want the permanent cause", err)
	}
	if calls != 1 {
		t.Fatalf("calls = %d, want 1 (no retries for permanent errors)", calls)
	}
}

func TestRetryExhaustsAttempts(t *testing.T) {
	transient := &pgconn.PgError{Code: "40001"} // serialization failure
	calls := 0
	err := Retry(context.Background(), fastRetry(3), func(context.Context) error {
		calls++
		return transient
	})
	if err == nil {
		t.Fatalf("expected exhaustion error")
	}
	if calls != 3 {
		t.Fatalf("calls = %d, want MaxAttempts", calls)
	}
}

func TestRetryHonorsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, fastRetry(10), func(context.Context) error {
		calls++
		cancel()
		return &pgconn.PgError{Code: "40001"}
	})
	if err == nil {
		t.Fatalf("expected error after cancellation")
	}
	if calls > 2 {
		t.Fatalf("calls = %d, cancellation should stop the loop", calls)
	}
}

func TestRetryZeroConfigUsesDefaults(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), RetryConfig{}, func(context.Context) error {
		calls++
		return nil
	})
	if err != nil || calls != 1 {
		t.Fatalf("err=%v calls=%d", err, calls)
	}
}
