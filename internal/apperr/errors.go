// Package apperr defines the error kinds shared by the ledger, the optimizer and
// the settlement workflow. Handlers map each kind to an HTTP status.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind string

const (
	KindDataIntegrity Kind = "DATA_INTEGRITY"
	KindValidation    Kind = "VALIDATION"
	KindAuthorization Kind = "AUTHORIZATION"
	KindNotFound      Kind = "NOT_FOUND"
	KindConflict      Kind = "CONFLICT"
)

// Error is a classified error carrying a human readable reason.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same kind, so sentinel values declared with the
// constructors below can be used with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.Reason == "" || t.Reason == e.Reason)
}

// DataIntegrity reports upstream data that violates assumed invariants.
func DataIntegrity(format string, args ...any) *Error {
	return &Error{Kind: KindDataIntegrity, Reason: fmt.Sprintf(format, args...)}
}

// Validation reports bad caller input, rejected before any state change.
func Validation(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

// Authorization reports an actor that is not allowed to perform an action.
func Authorization(reason string) *Error {
	return &Error{Kind: KindAuthorization, Reason: reason}
}

// NotFound reports a missing entity.
func NotFound(reason string) *Error {
	return &Error{Kind: KindNotFound, Reason: reason}
}

// Conflict reports a request that cannot be applied to the current state.
func Conflict(reason string) *Error {
	return &Error{Kind: KindConflict, Reason: reason}
}

// KindOf returns the kind of err, or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err is classified as kind.
func IsKind(err error, kind Kind) bool {
	return KindOf(err) == kind
}
