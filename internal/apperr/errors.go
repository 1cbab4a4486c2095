// Rollcall - Live Attendance Relay and Reconciliation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/rollcall

// Package apperr defines the error taxonomy shared by the relay, recognition,
// attendance and HTTP layers.
//
// Every failure a caller can act on wraps exactly one of the sentinel kinds, so
// callers branch with errors.Is and the API layer maps kinds to status codes:
//
//	if errors.Is(err, apperr.ErrForbidden) { ... }
//
// Reason carries the literal, user-facing guard message (for example
// "This record is too old to be edited.") which is surfaced verbatim.
package apperr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds.
var (
	// ErrNotFound: unknown pairing id, class, student or record.
	ErrNotFound = errors.New("not found")

	// ErrConflict: duplicate finalize for the day, duplicate registration, duplicate enrollment.
	ErrConflict = errors.New("conflict")

	// ErrForbidden: edit-window violation or insufficient role.
	ErrForbidden = errors.New("forbidden")

	// ErrUpstream: recognition service call failed, timed out or was rejected by the breaker.
	ErrUpstream = errors.New("upstream failure")

	// ErrValidation: malformed message or payload.
	ErrValidation = errors.New("validation failure")
)

// Error is a classified error with a verbatim reason.
type Error struct {
	Kind   error
	Reason string
	Err    error
}

// Error implements error.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// New returns an Error of the given kind with a reason.
func New(kind error, reason string) *Error {
	return &Error{Kind: kind, Reason: reason}
}

// Wrap returns an Error of the given kind wrapping cause.
func Wrap(kind error, reason string, cause error) *Error {
	return &Error{Kind: kind, Reason: reason, Err: cause}
}

// NotFound is shorthand for New(ErrNotFound, reason).
func NotFound(reason string) *Error { return New(ErrNotFound, reason) }

// Conflict is shorthand for New(ErrConflict, reason).
func Conflict(reason string) *Error { return New(ErrConflict, reason) }

// Forbidden is shorthand for New(ErrForbidden, reason).
func Forbidden(reason string) *Error { return New(ErrForbidden, reason) }

// Validation is shorthand for New(ErrValidation, reason).
func Validation(reason string) *Error { return New(ErrValidation, reason) }

// Upstream wraps a recognition-service failure.
func Upstream(reason string, cause error) *Error { return Wrap(ErrUpstream, reason, cause) }

// Reason returns the verbatim reason of the first *Error in err's chain,
// or err.Error() when err is not classified.
func Reason(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Reason
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

// KindOf returns the sentinel kind of err, or nil if err is unclassified.
func KindOf(err error) error {
	for _, kind := range []error{ErrNotFound, ErrConflict, ErrForbidden, ErrUpstream, ErrValidation} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}
