package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error so the transport layer can map it
// to a status code.
type Kind int

const (
	// KindValidation covers malformed input the caller can fix and retry.
	KindValidation Kind = iota
	// KindForbidden covers policy violations: wrong window, wrong password,
	// full room. Not retryable without the real world changing.
	KindForbidden
	// KindPermissionDenied covers role or ownership violations.
	KindPermissionDenied
	// KindNotFound covers missing records.
	KindNotFound
)

// Error is an application error with a human-readable reason.
type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Validationf creates a validation error.
func Validationf(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

// Forbiddenf creates a policy-violation error.
func Forbiddenf(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

// PermissionDeniedf creates a role/ownership error.
func PermissionDeniedf(format string, args ...interface{}) *Error {
	return newf(KindPermissionDenied, format, args...)
}

// NotFoundf creates a missing-record error.
func NotFoundf(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

// As unwraps err into an *Error if it is one.
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsKind reports whether err is an application error of the given kind.
func IsKind(err error, kind Kind) bool {
	appErr, ok := As(err)
	return ok && appErr.Kind == kind
}
