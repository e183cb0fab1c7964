// Package errs defines the failure taxonomy shared by the booking engines.
//
// Expected business rejections (no availability, policy violations, invalid promotions,
// non-refundable bookings) are returned as result values by the engines. The kinds below
// are used when an operation cannot produce a result at all.
package errs

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindPolicyViolation Kind = "policy_violation"
	KindConflict        Kind = "conflict"
	KindForbidden       Kind = "forbidden"
	KindInvalid         Kind = "invalid"
	KindUnavailable     Kind = "unavailable"
	KindInternal        Kind = "internal"
)

// Error carries a Kind and a message suitable for direct display to the user
type Error struct {
	Kind       Kind
	Message    string
	Violations []string
	Err        error
}

func (e *Error) Error() string {
	msg := e.Message
	if len(e.Violations) > 0 {
		msg = msg + ": " + strings.Join(e.Violations, "; ")
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newf(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func Conflict(format string, args ...interface{}) *Error {
	return newf(KindConflict, format, args...)
}

func Forbidden(format string, args ...interface{}) *Error {
	return newf(KindForbidden, format, args...)
}

func Invalid(format string, args ...interface{}) *Error {
	return newf(KindInvalid, format, args...)
}

// PolicyViolation reports every rejection reason, never just the first
func PolicyViolation(message string, violations ...string) *Error {
	return &Error{Kind: KindPolicyViolation, Message: message, Violations: violations}
}

// Unavailable wraps a data-layer failure the caller may retry
func Unavailable(err error, format string, args ...interface{}) *Error {
	e := newf(KindUnavailable, format, args...)
	e.Err = err
	return e
}

// Wrap classifies an error coming from a collaborator. Context cancellation and deadlines
// become Unavailable so callers retry instead of assuming success.
func Wrap(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return Unavailable(err, format, args...)
	}
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err, or KindInternal for unclassified errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsRetryable is true for contention and transient data-layer failures
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindConflict, KindUnavailable:
		return true
	}
	return false
}

// Message returns the user-facing text of err
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if len(e.Violations) > 0 {
			return e.Message + ": " + strings.Join(e.Violations, "; ")
		}
		return e.Message
	}
	return err.Error()
}
