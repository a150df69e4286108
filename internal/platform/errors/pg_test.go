package errors

import (
	"context"
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pgErr(code string) error {
	return &pgconn.PgError{Code: code, Message: "pg says no"}
}

func TestDBErrorCodeMapping(t *testing.T) {
	cases := []struct {
		state string
		want  ErrorCode
	}{
		{pgErrUniqueViolation, ErrorCodeDuplicateKey},
		{pgErrForeignKeyViolation, ErrorCodeInvalidArgument},
		{pgErrNotNullViolation, ErrorCodeValidation},
		{pgErrCheckViolation, ErrorCodeValidation},
		{pgErrInvalidTextRepresentation, ErrorCodeInvalidArgument},
		{pgErrSerializationFailure, ErrorCodeDB},
		{pgErrDeadlockDetected, ErrorCodeDB},
		{pgErrCannotConnectNow, ErrorCodeUnavailable},
		{"99999", ErrorCodeDB}, // default branch
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pgErr(c.state))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v/%v, want %v", c.state, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("not pg")); ok {
		t.Fatalf("DBErrorCode true for a non-pg error")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) != nil")
	}
	err := FromPostgres(pgErr(pgErrUniqueViolation), "insert actor")
	if !IsCode(err, ErrorCodeDuplicateKey) {
		t.Fatalf("code = %v, want duplicate key", CodeOf(err))
	}
	if !IsDuplicateKey(err) {
		t.Fatalf("IsDuplicateKey lost the wrapped PgError")
	}

	// non-pg errors still get the DB code
	err = FromPostgres(stderrs.New("conn closed"), "query")
	if !IsCode(err, ErrorCodeDB) {
		t.Fatalf("code = %v, want DB", CodeOf(err))
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(nil) {
		t.Fatalf("nil retryable")
	}
	if IsRetryable(context.Canceled) || IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("local cancellation must not be retried")
	}

	// structured SQLSTATEs
	if !IsRetryable(pgErr(pgErrSerializationFailure)) ||
		!IsRetryable(pgErr(pgErrDeadlockDetected)) ||
		!IsRetryable(pgErr(pgErrLockNotAvailable)) {
		t.Fatalf("contention SQLSTATEs should be retryable")
	}
	if IsRetryable(pgErr(pgErrUniqueViolation)) {
		t.Fatalf("unique violation retried")
	}

	// wrapped causes are unwrapped to the root
	wrapped := Wrap(pgErr(pgErrDeadlockDetected), ErrorCodeDB, "tx failed")
	if !IsRetryable(wrapped) {
		t.Fatalf("wrapping hid the retryable cause")
	}

	// driver text fallbacks
	if !IsRetryable(stderrs.New("FATAL: commit unexpectedly resulted in rollback")) {
		t.Fatalf("commit rollback text not retryable")
	}
	if IsRetryable(stderrs.New("syntax error at or near")) {
		t.Fatalf("arbitrary error retried")
	}
}

func TestExtractPgError(t *testing.T) {
	inner := pgErr(pgErrCheckViolation)
	got, ok := ExtractPgError(Wrap(inner, ErrorCodeValidation, "bad score"))
	if !ok || got.Code != pgErrCheckViolation {
		t.Fatalf("ExtractPgError = %v/%v", got, ok)
	}
	if _, ok := ExtractPgError(stderrs.New("x")); ok {
		t.Fatalf("ExtractPgError true for non-pg error")
	}
}
