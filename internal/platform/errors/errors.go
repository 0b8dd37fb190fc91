// Package errors provides the structured error type shared by every capsule service
package errors

// Always import the project errors package as perr (platform/errors)

import (
	stderrs "errors"
	"fmt"
	"net/http"
)

// ErrorCode classifies failures for status mapping and client branching
// Values are stable for wire compatibility; add sparingly
type ErrorCode uint16

const (
	// ErrorCodeUnknown is for unclassified errors; rendered as SERVER_ERROR
	ErrorCodeUnknown ErrorCode = iota

	// ErrorCodePanic is for panics recovered by middleware
	ErrorCodePanic

	// ErrorCodeUnavailable is for transient dependency failures
	ErrorCodeUnavailable

	// ErrorCodeUnauthorized is for missing or rejected bearer tokens
	ErrorCodeUnauthorized

	// ErrorCodeForbidden is for ownership mismatches
	ErrorCodeForbidden

	// ErrorCodeValidation is for bad input: missing fields, malformed ids, past dates, bad batches
	ErrorCodeValidation

	// ErrorCodeJSON is for undecodable request bodies
	ErrorCodeJSON

	// ErrorCodeNotFound is for missing capsules
	ErrorCodeNotFound

	// ErrorCodeLimitExceeded is for media quota and upload size violations
	ErrorCodeLimitExceeded

	// ErrorCodeConflict is for concurrent write conflicts
	ErrorCodeConflict

	// ErrorCodeDB is for general database errors
	ErrorCodeDB

	// ErrorCodeStorage is for object storage failures
	ErrorCodeStorage
)

// Wire codes seen by clients
const (
	WireBadRequest    = "BAD_REQUEST"
	WireUnauthorized  = "UNAUTHORIZED"
	WireForbidden     = "FORBIDDEN"
	WireNotFound      = "NOT_FOUND"
	WireLimitExceeded = "LIMIT_EXCEEDED"
	WireConflict      = "CONFLICT"
	WireUnavailable   = "UNAVAILABLE"
	WireServerError   = "SERVER_ERROR"
)

// HTTPStatusCode turns an ErrorCode into an http status code
func HTTPStatusCode(c ErrorCode) int {
	switch c {
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeValidation, ErrorCodeJSON:
		return http.StatusBadRequest
	case ErrorCodeLimitExceeded:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeConflict:
		return http.StatusConflict
	case ErrorCodeUnauthorized:
		return http.StatusUnauthorized
	case ErrorCodeForbidden:
		return http.StatusForbidden
	case ErrorCodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// WireCode turns an ErrorCode into the stable string clients branch on
func WireCode(c ErrorCode) string {
	switch c {
	case ErrorCodeValidation, ErrorCodeJSON:
		return WireBadRequest
	case ErrorCodeUnauthorized:
		return WireUnauthorized
	case ErrorCodeForbidden:
		return WireForbidden
	case ErrorCodeNotFound:
		return WireNotFound
	case ErrorCodeLimitExceeded:
		return WireLimitExceeded
	case ErrorCodeConflict:
		return WireConflict
	case ErrorCodeUnavailable:
		return WireUnavailable
	default:
		return WireServerError
	}
}

// ErrNotFound is a sentinel not found error for convenience
var ErrNotFound = New(ErrorCodeNotFound, "not found")

// Error is the structured error type with wrapping and metadata
// msg is client facing; code is machine facing
// field names the offending input, reason carries a finer classification (admission reasons)
type Error struct {
	orig   error
	msg    string
	code   ErrorCode
	field  string
	reason string
	op     string
}

// Wire is the JSON-serializable form returned in the response envelope
type Wire struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Reason  string `json:"reason,omitempty"`
	Field   string `json:"field,omitempty"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.orig != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.orig)
	}
	return e.msg
}

// Unwrap returns the wrapped error, if any
func (e *Error) Unwrap() error { return e.orig }

// Code returns the error code
func (e *Error) Code() ErrorCode { return e.code }

// Field returns the offending field, if any
func (e *Error) Field() string { return e.field }

// Reason returns the fine-grained reason, if any
func (e *Error) Reason() string { return e.reason }

// Op returns the operation label, if set
func (e *Error) Op() string { return e.op }

// ToWire converts an *Error to a Wire payload
// Server-side failures never leak their message
func (e *Error) ToWire() Wire {
	w := Wire{Code: WireCode(e.code), Message: e.msg, Reason: e.reason, Field: e.field}
	if w.Code == WireServerError {
		w.Message = "internal server error"
	}
	return w
}

// WireFrom converts any error into a Wire payload
// Foreign errors are never echoed to clients
func WireFrom(err error) Wire {
	if err == nil {
		return Wire{}
	}
	if e, ok := As(err); ok {
		return e.ToWire()
	}
	return Wire{Code: WireServerError, Message: "internal server error"}
}

// Root returns the deepest wrapped cause
func Root(err error) error {
	for err != nil {
		u := stderrs.Unwrap(err)
		if u == nil {
			return err
		}
		err = u
	}
	return nil
}

// CodeOf extracts an ErrorCode from any error, defaulting to Unknown
func CodeOf(err error) ErrorCode {
	if e, ok := As(err); ok {
		return e.code
	}
	return ErrorCodeUnknown
}

// IsCode reports whether err has the given code
func IsCode(err error, code ErrorCode) bool { return CodeOf(err) == code }

// HTTPStatus returns the mapped HTTP status for any error
func HTTPStatus(err error) int { return HTTPStatusCode(CodeOf(err)) }

// As unwraps and returns (*Error, true) if err is one of ours
func As(err error) (*Error, bool) {
	var e *Error
	if stderrs.As(err, &e) {
		return e, true
	}
	return nil, false
}

// Mutators (copy-on-write)

// WithField attaches a field to an *Error. Foreign errors pass through unchanged
func WithField(err error, field string) error {
	if e, ok := As(err); ok {
		c := *e
		c.field = field
		return &c
	}
	return err
}

// WithReason attaches a reason to an *Error. Foreign errors pass through unchanged
func WithReason(err error, reason string) error {
	if e, ok := As(err); ok {
		c := *e
		c.reason = reason
		return &c
	}
	return err
}

// WithOp attaches an operation label to an *Error. Foreign errors pass through unchanged
func WithOp(err error, op string) error {
	if e, ok := As(err); ok {
		c := *e
		c.op = op
		return &c
	}
	return err
}

// Constructors

// New returns a new *Error with the given code and message
func New(code ErrorCode, msg string) error { return &Error{code: code, msg: msg} }

// Newf returns a new *Error with code and formatted message
func Newf(code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...)}
}

// Wrap returns a new *Error that wraps orig with code and message
func Wrap(orig error, code ErrorCode, msg string) error {
	return &Error{code: code, msg: msg, orig: orig}
}

// Wrapf returns a new *Error that wraps orig with code and formatted message
func Wrapf(orig error, code ErrorCode, format string, a ...any) error {
	return &Error{code: code, msg: fmt.Sprintf(format, a...), orig: orig}
}

// WrapIf wraps only when err != nil
func WrapIf(err error, code ErrorCode, msg string) error {
	if err == nil {
		return nil
	}
	return Wrap(err, code, msg)
}

// Sugar

// NotFoundf returns a not found error
func NotFoundf(format string, a ...any) error { return Newf(ErrorCodeNotFound, format, a...) }

// BadInputf returns a validation error
func BadInputf(format string, a ...any) error { return Newf(ErrorCodeValidation, format, a...) }

// LimitExceededf returns a quota error
func LimitExceededf(format string, a ...any) error { return Newf(ErrorCodeLimitExceeded, format, a...) }

// JSONErrf returns a JSON error
func JSONErrf(format string, a ...any) error { return Newf(ErrorCodeJSON, format, a...) }

// PanicErrf returns a panic error
func PanicErrf(format string, a ...any) error { return Newf(ErrorCodePanic, format, a...) }

// Unauthorizedf returns an unauthorized error
func Unauthorizedf(format string, a ...any) error { return Newf(ErrorCodeUnauthorized, format, a...) }

// Forbiddenf returns a forbidden error
func Forbiddenf(format string, a ...any) error { return Newf(ErrorCodeForbidden, format, a...) }

// Unavailablef returns an unavailable error
func Unavailablef(format string, a ...any) error { return Newf(ErrorCodeUnavailable, format, a...) }

// Internalf returns a generic internal error
func Internalf(format string, a ...any) error { return Newf(ErrorCodeUnknown, format, a...) }

// Storage wraps an object storage failure
func Storage(orig error, msg string) error { return Wrap(orig, ErrorCodeStorage, msg) }

// HTTP bundles status + wire in one shot
func HTTP(err error) (int, Wire) {
	if err == nil {
		return http.StatusOK, Wire{}
	}
	return HTTPStatus(err), WireFrom(err)
}

// Retryable reports whether the error is a transient database condition
func Retryable(err error) bool { return IsRetryable(err) }
