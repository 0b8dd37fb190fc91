package errors

import (
	stderrs "errors"
	"net/http"
	"testing"
)

func TestHTTPStatusAndWireCodes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		code   ErrorCode
		status int
		wire   string
	}{
		{ErrorCodeNotFound, http.StatusNotFound, WireNotFound},
		{ErrorCodeValidation, http.StatusBadRequest, WireBadRequest},
		{ErrorCodeJSON, http.StatusBadRequest, WireBadRequest},
		{ErrorCodeLimitExceeded, http.StatusRequestEntityTooLarge, WireLimitExceeded},
		{ErrorCodeForbidden, http.StatusForbidden, WireForbidden},
		{ErrorCodeUnauthorized, http.StatusUnauthorized, WireUnauthorized},
		{ErrorCodeConflict, http.StatusConflict, WireConflict},
		{ErrorCodeUnavailable, http.StatusServiceUnavailable, WireUnavailable},
		{ErrorCodeDB, http.StatusInternalServerError, WireServerError},
		{ErrorCodeStorage, http.StatusInternalServerError, WireServerError},
		{ErrorCodePanic, http.StatusInternalServerError, WireServerError},
		{ErrorCodeUnknown, http.StatusInternalServerError, WireServerError},
		{9999, http.StatusInternalServerError, WireServerError},
	}
	for _, c := range cases {
		if got := HTTPStatusCode(c.code); got != c.status {
			t.Fatalf("HTTPStatusCode(%v) = %d, want %d", c.code, got, c.status)
		}
		if got := WireCode(c.code); got != c.wire {
			t.Fatalf("WireCode(%v) = %q, want %q", c.code, got, c.wire)
		}
	}
}

func TestErrorTypeAndMethods(t *testing.T) {
	t.Parallel()

	var e *Error
	if e.Error() != "<nil>" {
		t.Fatalf("nil *Error render = %q", e.Error())
	}

	src := stderrs.New("root")
	wrapped := Wrapf(src, ErrorCodeForbidden, "nope %s", "here")
	if wrapped.Error() != "nope here: root" {
		t.Fatalf("Wrapf().Error = %q", wrapped.Error())
	}
	if stderrs.Unwrap(wrapped) != src {
		t.Fatalf("Wrap did not keep orig")
	}
	if got, ok := As(wrapped); !ok || got.Code() != ErrorCodeForbidden {
		t.Fatalf("As() failed for our error")
	}
	if _, ok := As(src); ok {
		t.Fatalf("As() true for foreign error")
	}

	base := LimitExceededf("too many videos")
	tagged := WithOp(WithReason(WithField(base, "videos"), "KIND_LIMIT_EXCEEDED"), "capsules.append")
	te, _ := As(tagged)
	if te.Field() != "videos" || te.Reason() != "KIND_LIMIT_EXCEEDED" || te.Op() != "capsules.append" {
		t.Fatalf("mutators lost data: %+v", te)
	}
	if b, _ := As(base); b.Field() != "" || b.Reason() != "" {
		t.Fatalf("copy-on-write mutated original")
	}
	if WithReason(src, "x") != src {
		t.Fatalf("WithReason should pass foreign errors through")
	}
}

func TestWireHidesServerMessages(t *testing.T) {
	t.Parallel()

	if w := WireFrom(nil); w != (Wire{}) {
		t.Fatalf("WireFrom(nil) = %+v", w)
	}
	if w := WireFrom(stderrs.New("dial tcp 10.0.0.3:5432")); w.Code != WireServerError || w.Message != "internal server error" {
		t.Fatalf("foreign error leaked: %+v", w)
	}
	if w := WireFrom(Wrap(stderrs.New("x"), ErrorCodeDB, "select capsule")); w.Message != "internal server error" {
		t.Fatalf("db message leaked: %+v", w)
	}
	w := WireFrom(WithReason(BadInputf("no files uploaded"), "EMPTY_BATCH"))
	if w.Code != WireBadRequest || w.Message != "no files uploaded" || w.Reason != "EMPTY_BATCH" {
		t.Fatalf("client error wire = %+v", w)
	}
}

func TestHTTPBundle(t *testing.T) {
	t.Parallel()

	if st, w := HTTP(nil); st != http.StatusOK || w != (Wire{}) {
		t.Fatalf("HTTP(nil) = %d %+v", st, w)
	}
	st, w := HTTP(NotFoundf("capsule %s not found", "x"))
	if st != http.StatusNotFound || w.Code != WireNotFound {
		t.Fatalf("HTTP(notfound) = %d %+v", st, w)
	}
}

func TestSugarCodes(t *testing.T) {
	t.Parallel()

	cases := map[ErrorCode]error{
		ErrorCodeNotFound:      NotFoundf("a"),
		ErrorCodeValidation:    BadInputf("a"),
		ErrorCodeLimitExceeded: LimitExceededf("a"),
		ErrorCodeJSON:          JSONErrf("a"),
		ErrorCodePanic:         PanicErrf("a"),
		ErrorCodeUnauthorized:  Unauthorizedf("a"),
		ErrorCodeForbidden:     Forbiddenf("a"),
		ErrorCodeUnavailable:   Unavailablef("a"),
		ErrorCodeUnknown:       Internalf("a"),
		ErrorCodeStorage:       Storage(stderrs.New("s3"), "put"),
	}
	for want, err := range cases {
		if got := CodeOf(err); got != want {
			t.Fatalf("CodeOf = %v, want %v", got, want)
		}
	}
	if WrapIf(nil, ErrorCodeDB, "x") != nil {
		t.Fatalf("WrapIf(nil) should be nil")
	}
	if Root(Wrap(Wrap(stderrs.New("deep"), ErrorCodeDB, "a"), ErrorCodeDB, "b")).Error() != "deep" {
		t.Fatalf("Root did not reach the cause")
	}
}
