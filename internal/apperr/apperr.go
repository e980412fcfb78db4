// Package apperr defines the closed set of error kinds returned by every
// public booking and availability operation.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation      Kind = "validation_error"
	KindSlotUnavailable Kind = "slot_unavailable"
	KindConflict        Kind = "conflict"
	KindNotFound        Kind = "not_found"
	KindForbidden       Kind = "forbidden"
	KindState           Kind = "state_error"
	KindInternal        Kind = "internal_error"
)

// Error is a kind-tagged error. Two *Error values match under errors.Is when
// the target carries no message, so the package sentinels below work as
// kind matchers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

var (
	ErrValidation      = &Error{Kind: KindValidation}
	ErrSlotUnavailable = &Error{Kind: KindSlotUnavailable}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrState           = &Error{Kind: KindState}
	ErrInternal        = &Error{Kind: KindInternal}
)

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return string(e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == "" && t.Err == nil
}

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, format, args...)
}

func SlotUnavailable(format string, args ...any) *Error {
	return newf(KindSlotUnavailable, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindForbidden, format, args...)
}

func State(format string, args ...any) *Error {
	return newf(KindState, format, args...)
}

// Internal wraps an unexpected failure from a store or dependency.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// wrap tags err with kind, keeping it reachable through errors.Unwrap.
func wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// KindOf reports the kind of the first *Error in err's chain, or
// KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-facing message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return err.Error()
}

// Retryable reports whether a caller should refetch slots and try again.
func Retryable(kind Kind) bool {
	return kind == KindSlotUnavailable || kind == KindConflict
}
