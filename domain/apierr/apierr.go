// Package apierr defines the error taxonomy of the request pipeline.
// Every per-call failure reaches the caller as an *Error with a Kind.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error.
type Kind string

const (
	KindSchema         Kind = "SchemaError"
	KindBadRequest     Kind = "BadRequest"
	KindHTTP           Kind = "HttpError"
	KindGatewayTimeout Kind = "GatewayTimeout"
	KindTransport      Kind = "TransportError"
	KindInternal       Kind = "InternalServerError"
)

// Sentinels for errors.Is matching by kind.
var (
	ErrSchema         = &Error{Kind: KindSchema}
	ErrBadRequest     = &Error{Kind: KindBadRequest}
	ErrHTTP           = &Error{Kind: KindHTTP}
	ErrGatewayTimeout = &Error{Kind: KindGatewayTimeout}
	ErrTransport      = &Error{Kind: KindTransport}
	ErrInternal       = &Error{Kind: KindInternal}
)

// Error is a classified pipeline error.
type Error struct {
	Kind    Kind
	Status  int    // HTTP status when known
	Message string // Human readable description
	Body    string // Raw response body for HttpError
	Cause   error
}

// Error implements error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := fmt.Sprintf("%s: %s", e.Kind, e.Message)
	if e.Status > 0 && e.Kind == KindHTTP {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Cause != nil {
		msg = fmt.Sprintf("%s (%v)", msg, e.Cause)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// Is compares kinds so errors.Is(err, ErrBadRequest) works.
func (e *Error) Is(target error) bool {
	if e == nil {
		return false
	}
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// Retryable reports whether a caller-side retry could succeed.
// The pipeline itself never retries.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindGatewayTimeout, KindTransport:
		return true
	case KindHTTP:
		return e.Status >= 500 || e.Status == http.StatusTooManyRequests
	default:
		return false
	}
}

// KindOf returns the kind of err, or "" when err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// Schema returns a compile-time schema error.
func Schema(format string, args ...any) *Error {
	return &Error{Kind: KindSchema, Message: fmt.Sprintf(format, args...)}
}

// BadRequest returns a caller input error.
func BadRequest(format string, args ...any) *Error {
	return &Error{Kind: KindBadRequest, Status: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

// HTTP wraps a remote error response. The body is kept verbatim.
func HTTP(status int, body string) *Error {
	msg := http.StatusText(status)
	if msg == "" {
		msg = "unexpected status"
	}
	return &Error{Kind: KindHTTP, Status: status, Message: msg, Body: body}
}

// GatewayTimeout returns a timeout error for the given target.
func GatewayTimeout(target string, cause error) *Error {
	return &Error{
		Kind:    KindGatewayTimeout,
		Status:  http.StatusGatewayTimeout,
		Message: fmt.Sprintf("request to %s timed out", target),
		Cause:   cause,
	}
}

// Transport wraps a low-level connection failure.
func Transport(target string, cause error) *Error {
	return &Error{Kind: KindTransport, Message: fmt.Sprintf("request to %s failed", target), Cause: cause}
}

// Internal wraps a failure to interpret an otherwise successful response.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Status: http.StatusInternalServerError, Message: message, Cause: cause}
}
