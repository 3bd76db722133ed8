// Package failure defines the error kinds surfaced by the analysis tools.
package failure

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. A Kind is itself an error so callers can
// write errors.Is(err, failure.IllegalMove).
type Kind string

const (
	InvalidPosition     Kind = "InvalidPosition"
	IllegalMove         Kind = "IllegalMove"
	OracleUnavailable   Kind = "OracleUnavailable"
	OracleProtocolError Kind = "OracleProtocolError"
	InvalidRequest      Kind = "InvalidRequest"
	RenderError         Kind = "RenderError"
)

func (k Kind) Error() string {
	return string(k)
}

// Error is a classified failure with a human-readable message.
type Error struct {
	Kind Kind
	Msg  string
	Err  error // underlying cause, may be nil
}

// New creates a failure of the given kind.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap creates a failure of the given kind around a cause.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is this failure's kind.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "" if
// there is none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return ""
}
