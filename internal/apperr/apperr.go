// Package apperr defines the error taxonomy shared by services and handlers.
// Repositories return their own sentinels; services translate them into one
// of these categories, and handlers map categories onto HTTP status codes.
// Security failures are wrapped with the generic per-flow message so callers
// never learn which sub-check failed.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrConflict signals a duplicate unique key (e.g. email already registered).
	ErrConflict = errors.New("conflict")
	// ErrUnauthorized signals a missing, invalid or expired credential.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden signals a valid credential with insufficient privilege or
	// an inactive account.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound signals a referenced entity that does not exist.
	ErrNotFound = errors.New("not found")
	// ErrBadRequest signals malformed input or a business-rule violation.
	ErrBadRequest = errors.New("bad request")
	// ErrInternal signals a persistence failure after business rules passed.
	// The underlying cause is logged, never returned to the caller.
	ErrInternal = errors.New("internal error")
)

// Wrap attaches a caller-facing message to a category error. The message is
// what handlers render; the category is what they switch on.
func Wrap(kind error, msg string) error {
	return fmt.Errorf("%w: %s", kind, msg)
}

// Message extracts the caller-facing part of a wrapped category error,
// falling back to the plain error text.
func Message(err error) string {
	for _, kind := range []error{ErrConflict, ErrUnauthorized, ErrForbidden, ErrNotFound, ErrBadRequest, ErrInternal} {
		if errors.Is(err, kind) {
			prefix := kind.Error() + ": "
			if s := err.Error(); len(s) > len(prefix) && s[:len(prefix)] == prefix {
				return s[len(prefix):]
			}
			return kind.Error()
		}
	}
	return err.Error()
}

// HTTPStatus maps a category error to its HTTP status code. Unknown errors
// map to 500 so nothing unexpected leaks with a misleading code.
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrConflict):
		return http.StatusConflict
	case errors.Is(err, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
