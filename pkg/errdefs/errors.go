package errdefs

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a worker, capability or contract name is unknown
	ErrNotFound = errors.New("not found")

	// ErrCapabilityMismatch is returned when a worker cannot perform a capability
	ErrCapabilityMismatch = errors.New("capability mismatch")

	// ErrExecution is returned when the backing inference call fails or times out
	ErrExecution = errors.New("execution failed")

	// ErrSubstitution is returned when a pipeline step needs output the previous step did not produce
	ErrSubstitution = errors.New("substitution failed")

	// ErrInvalidArgument is returned when a request or its arguments are malformed
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error carries a taxonomy kind together with the operation that failed and
// an optional cause.
type Error struct {
	Kind error
	Op   string
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Error()
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Is reports whether target is the kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFound builds an ErrNotFound error.
func NotFound(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrNotFound, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// CapabilityMismatch builds an ErrCapabilityMismatch error.
func CapabilityMismatch(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrCapabilityMismatch, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Execution wraps a backend failure as an ErrExecution error.
func Execution(op string, cause error) error {
	return &Error{Kind: ErrExecution, Op: op, Msg: "inference call failed", Err: cause}
}

// Substitution builds an ErrSubstitution error.
func Substitution(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrSubstitution, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// InvalidArgument builds an ErrInvalidArgument error.
func InvalidArgument(op, format string, args ...interface{}) error {
	return &Error{Kind: ErrInvalidArgument, Op: op, Msg: fmt.Sprintf(format, args...)}
}

func IsNotFound(err error) bool           { return errors.Is(err, ErrNotFound) }
func IsCapabilityMismatch(err error) bool { return errors.Is(err, ErrCapabilityMismatch) }
func IsExecution(err error) bool          { return errors.Is(err, ErrExecution) }
func IsSubstitution(err error) bool       { return errors.Is(err, ErrSubstitution) }
func IsInvalidArgument(err error) bool    { return errors.Is(err, ErrInvalidArgument) }

// KindOf returns the short kind name used in error payloads.
func KindOf(err error) string {
	switch {
	case IsNotFound(err):
		return "not_found"
	case IsCapabilityMismatch(err):
		return "capability_mismatch"
	case IsSubstitution(err):
		return "substitution"
	case IsInvalidArgument(err):
		return "invalid_argument"
	case IsExecution(err):
		return "execution"
	default:
		return "internal"
	}
}
