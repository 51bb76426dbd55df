// Package apperr classifies failures so transports can map them consistently.
//
// Every error returned across a package boundary in the publisher is either a plain
// wrapped error (treated as internal) or an *Error carrying one of the kinds below.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind is the machine readable class of a failure.
type Kind string

const (
	KindInternal      Kind = "INTERNAL"
	KindValidation    Kind = "VALIDATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindStateConflict Kind = "OPERATION_NOT_ALLOWED"
	KindExternal      Kind = "EXTERNAL_SERVICE"
)

// Error is a classified failure. Op names the operation that failed.
type Error struct {
	Kind    Kind
	Op      string
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation reports a malformed request. Never retried.
func Validation(op, format string, args ...any) error {
	return &Error{Kind: KindValidation, Op: op, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown uuid, org_id, service_id or invite code.
func NotFound(op, format string, args ...any) error {
	return &Error{Kind: KindNotFound, Op: op, Message: fmt.Sprintf(format, args...)}
}

// Conflict reports an action that is invalid for the current status.
func Conflict(op string, err error) error {
	return &Error{Kind: KindStateConflict, Op: op, Err: err}
}

// External wraps a chain RPC, content store, object store or webhook failure.
// The caller is expected to retry the whole operation.
func External(op string, err error) error {
	return &Error{Kind: KindExternal, Op: op, Err: err}
}

// Wrap classifies err as kind, keeping it reachable through errors.Is and errors.As.
func Wrap(kind Kind, op string, err error) error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the kind of the outermost classified error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err is classified as kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// HTTPStatus maps an error to the response status surfaced by the API.
func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindStateConflict:
		return http.StatusConflict
	case KindExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
