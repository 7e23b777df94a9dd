// Package apperr defines the closed set of error kinds shared by the store
// connector, the document repository and the HTTP layer.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error so callers can switch on it instead of matching text.
type Kind int

const (
	KindUnknown Kind = iota
	KindConfiguration
	KindConnection
	KindNotConnected
	KindValidation
	KindNotFound
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindConnection:
		return "connection"
	case KindNotConnected:
		return "not_connected"
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStorage:
		return "storage"
	}
	return "unknown"
}

// Error carries a Kind plus the operation and filename it happened on.
type Error struct {
	Kind     Kind
	Op       string
	Filename string
	Err      error
}

func (e *Error) Error() string {
	msg := e.Kind.String()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Filename != "" {
		msg += " (" + e.Filename + ")"
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality so errors.Is(err, apperr.ErrNotFound) works for
// any NotFound error regardless of op or filename.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Op == "" && t.Filename == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is comparisons.
var (
	ErrConfiguration = &Error{Kind: KindConfiguration}
	ErrConnection    = &Error{Kind: KindConnection}
	ErrNotConnected  = &Error{Kind: KindNotConnected}
	ErrValidation    = &Error{Kind: KindValidation}
	ErrNotFound      = &Error{Kind: KindNotFound}
	ErrStorage       = &Error{Kind: KindStorage}
)

// E builds an *Error.
func E(kind Kind, op, filename string, err error) *Error {
	return &Error{Kind: kind, Op: op, Filename: filename, Err: err}
}

// Validationf returns a validation error with a formatted message.
func Validationf(op, filename, format string, args ...interface{}) *Error {
	return E(KindValidation, op, filename, fmt.Errorf(format, args...))
}

// NotFound returns the not-found error for a filename.
func NotFound(op, filename string) *Error {
	return E(KindNotFound, op, filename, fmt.Errorf("file not found: %s", filename))
}

// Storage wraps a backing-store failure. Errors that already carry a kind
// are returned unchanged.
func Storage(op, filename string, err error) error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return err
	}
	return E(KindStorage, op, filename, err)
}

// KindOf returns the kind of the first *Error in err's chain.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

func IsNotFound(err error) bool   { return KindOf(err) == KindNotFound }
func IsValidation(err error) bool { return KindOf(err) == KindValidation }
