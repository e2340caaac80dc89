// Package apperr defines the error kinds shared by every component and the
// mapping from kind to transport status.
package apperr

import (
	"errors"
	"net/http"
)

type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidArgument    Kind = "invalid_argument"
	KindForbidden          Kind = "forbidden"
	KindUnauthenticated    Kind = "unauthenticated"
	KindPreconditionFailed Kind = "precondition_failed"
	KindConflict           Kind = "conflict"
	KindUpstream           Kind = "upstream"
	KindInternal           Kind = "internal"
)

// Error is a classified application error. Code is a stable machine-readable
// identifier, Message is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Message
}

// New builds a classified error. Sentinels declared with New are compared by
// identity, so wrap them with fmt.Errorf("%w: ...") to add detail.
func New(kind Kind, code, message string) *Error {
	if code == "" {
		code = string(kind)
	}
	return &Error{Kind: kind, Code: code, Message: message}
}

func NotFound(message string) *Error        { return New(KindNotFound, "", message) }
func InvalidArgument(message string) *Error { return New(KindInvalidArgument, "", message) }
func Forbidden(message string) *Error       { return New(KindForbidden, "", message) }
func Conflict(message string) *Error        { return New(KindConflict, "", message) }
func Upstream(message string) *Error        { return New(KindUpstream, "", message) }

// KindOf classifies err. Unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// CodeOf returns the code of the classified error wrapped by err.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return string(KindInternal)
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool { return KindOf(err) == kind }

// HTTPStatus maps an error to its HTTP status code.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindPreconditionFailed:
		switch e.Code {
		case "empty_cart", "idempotency_key_reused":
			return http.StatusUnprocessableEntity
		case "invalid_state":
			return http.StatusConflict
		default:
			return http.StatusPreconditionFailed
		}
	case KindUpstream:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
