// Package apperr defines the error taxonomy shared by all domain services.
// Handlers map each kind to an HTTP status; services return these instead of
// raw storage errors so callers can tell expected business outcomes
// (NoCapacity, Conflict) apart from infrastructure faults.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	KindValidation Kind = iota + 1
	KindConflict
	KindNoCapacity
	KindNotFound
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "ValidationError"
	case KindConflict:
		return "Conflict"
	case KindNoCapacity:
		return "NoCapacity"
	case KindNotFound:
		return "NotFound"
	case KindPersistence:
		return "PersistenceFailure"
	}
	return "Unknown"
}

// Error carries a kind, a caller-facing message and an optional wrapped cause.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func Validation(format string, args ...interface{}) error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...interface{}) error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func NoCapacity(format string, args ...interface{}) error {
	return &Error{Kind: KindNoCapacity, Msg: fmt.Sprintf(format, args...)}
}

func NotFound(format string, args ...interface{}) error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

// Persistence wraps a storage-layer fault. The message names the operation,
// never the SQL.
func Persistence(op string, err error) error {
	return &Error{Kind: KindPersistence, Msg: op, Err: err}
}

// KindOf returns the kind of err, or 0 when err carries no *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func IsValidation(err error) bool { return KindOf(err) == KindValidation }
func IsConflict(err error) bool   { return KindOf(err) == KindConflict }
func IsNoCapacity(err error) bool { return KindOf(err) == KindNoCapacity }
func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
