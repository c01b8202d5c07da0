// Package apperr defines the marketplace error taxonomy shared by all
// components. Every semantic failure that crosses a component boundary is
// one of these kinds; anything else is treated as infrastructure trouble.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies an error category exposed to API clients.
type Kind string

// Error kinds reported to callers as distinct outcomes.
const (
	// KindValidation marks malformed input; never retried.
	KindValidation Kind = "VALIDATION"
	// KindNotFound marks a missing deal, coupon, or account.
	KindNotFound Kind = "NOT_FOUND"
	// KindExpired marks a deal or coupon past its expiry.
	KindExpired Kind = "EXPIRED"
	// KindSoldOut marks exhausted deal inventory.
	KindSoldOut Kind = "SOLD_OUT"
	// KindAlreadyClaimed marks an outstanding coupon for the same deal.
	KindAlreadyClaimed Kind = "ALREADY_CLAIMED"
	// KindAlreadyUsed marks a coupon that was already redeemed.
	KindAlreadyUsed Kind = "ALREADY_USED"
	// KindNotRevealed marks a ghost deal the user has not fully revealed.
	KindNotRevealed Kind = "NOT_REVEALED"
	// KindTransient marks a recoverable infrastructure failure.
	KindTransient Kind = "TRANSIENT"
)

// Error carries a kind alongside a human-readable message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause, if any.
func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap constructs an Error of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err when it is (or wraps) an *Error.
func KindOf(err error) (Kind, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind, true
	}
	return "", false
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// HTTPStatus maps a kind to the HTTP status the API responds with.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindExpired:
		return http.StatusGone
	case KindSoldOut, KindAlreadyClaimed, KindAlreadyUsed:
		return http.StatusConflict
	case KindNotRevealed:
		return http.StatusUnprocessableEntity
	case KindTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
