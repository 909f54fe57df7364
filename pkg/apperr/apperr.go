// Package apperr defines the error kinds surfaced by patient-flow operations.
//
// Every rejected operation returns an *Error whose Code names the violated
// precondition, so callers can branch on it and HTTP handlers can render it.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers and transports.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindPreconditionFailed    Kind = "PRECONDITION_FAILED"
	KindConflict              Kind = "CONFLICT"
	KindValidation            Kind = "VALIDATION"
	KindUnauthorized          Kind = "UNAUTHORIZED"
	KindDownstreamUnavailable Kind = "DOWNSTREAM_UNAVAILABLE"
	KindInternal              Kind = "INTERNAL"
)

// Error is an application error. Two Errors match under errors.Is when their
// codes are equal, so package-level values work as sentinels.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// New returns an Error usable as a sentinel.
func New(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// With returns a copy of e carrying a more specific message.
func (e *Error) With(format string, args ...any) *Error {
	cp := *e
	cp.Message = fmt.Sprintf(format, args...)
	return &cp
}

// Wrap returns a copy of e carrying cause.
func (e *Error) Wrap(cause error) *Error {
	cp := *e
	cp.Err = cause
	return &cp
}

func NotFound(code, message string) *Error {
	return New(KindNotFound, code, message)
}

func Precondition(code, message string) *Error {
	return New(KindPreconditionFailed, code, message)
}

func Conflict(code, message string) *Error {
	return New(KindConflict, code, message)
}

func Validation(message string) *Error {
	return New(KindValidation, "VALIDATION_FAILED", message)
}

func Internal(message string, err error) *Error {
	return &Error{Kind: KindInternal, Code: "INTERNAL", Message: message, Err: err}
}

func Downstream(message string, err error) *Error {
	return &Error{Kind: KindDownstreamUnavailable, Code: "DOWNSTREAM_UNAVAILABLE", Message: message, Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindInternal
}

// HTTPStatus maps err to a response status code.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindPreconditionFailed:
		return http.StatusPreconditionFailed
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthorized:
		return http.StatusForbidden
	case KindDownstreamUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
