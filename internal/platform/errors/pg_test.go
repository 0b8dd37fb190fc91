package errors

import (
	"context"
	stderrs "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError { return &pgconn.PgError{Code: code} }

func TestDBErrorCodeMappings(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22001", ErrorCodeValidation},
		{"22P02", ErrorCodeValidation},
		{"40001", ErrorCodeConflict},
		{"40P01", ErrorCodeConflict},
		{"55P03", ErrorCodeConflict},
		{"25006", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(fmt.Errorf("wrapped: %w", pg(c.code)))
		if !ok || got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v,%v want %v", c.code, got, ok, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgres(t *testing.T) {
	t.Parallel()

	if FromPostgres(nil, "x") != nil {
		t.Fatalf("FromPostgres(nil) should be nil")
	}
	if got := CodeOf(FromPostgres(pgx.ErrNoRows, "load capsule")); got != ErrorCodeNotFound {
		t.Fatalf("no rows -> %v", got)
	}
	if got := CodeOf(FromPostgresf(pg("22P02"), "load %s", "abc")); got != ErrorCodeValidation {
		t.Fatalf("bad text -> %v", got)
	}
	if got := CodeOf(FromPostgres(stderrs.New("conn reset"), "x")); got != ErrorCodeDB {
		t.Fatalf("foreign -> %v", got)
	}
	if !IsLockNotAvailable(Wrap(pg("55P03"), ErrorCodeDB, "lock")) {
		t.Fatalf("IsLockNotAvailable did not see through wrap")
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"canceled", context.Canceled, false},
		{"deadline", fmt.Errorf("x: %w", context.DeadlineExceeded), false},
		{"serialization", pg("40001"), true},
		{"deadlock", pg("40P01"), true},
		{"unique", pg("23505"), false},
		{"commit text", stderrs.New("commit unexpectedly resulted in rollback"), true},
		{"plain", stderrs.New("boom"), false},
	}
	for _, c := range cases {
		if got := Retryable(c.err); got != c.want {
			t.Fatalf("%s: Retryable = %v, want %v", c.name, got, c.want)
		}
	}
}
