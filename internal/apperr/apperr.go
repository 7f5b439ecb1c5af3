// Package apperr classifies errors raised by the job services so transports
// can map them to responses.
package apperr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindPermission  Kind = "permission"
	KindConflict    Kind = "conflict"
	KindNotFound    Kind = "not_found"
	KindRemote      Kind = "remote"
	KindPersistence Kind = "persistence"
	KindInternal    Kind = "internal"
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newf(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return newf(KindValidation, nil, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newf(KindPermission, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newf(KindConflict, nil, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newf(KindNotFound, nil, format, args...)
}

// Remote wraps a failure of the storage system.
func Remote(err error, format string, args ...any) *Error {
	return newf(KindRemote, err, format, args...)
}

// Persistence wraps a document store failure.
func Persistence(err error, format string, args ...any) *Error {
	return newf(KindPersistence, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
