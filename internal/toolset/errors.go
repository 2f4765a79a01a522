// ABOUTME: Error kinds shared by every toolset and the pass scheduler.
// ABOUTME: Kinds are sentinels; Error carries a human message that matches its kind via errors.Is.

package toolset

import (
	"errors"
	"fmt"
)

// Error kinds. Toolset handlers return errors built with Errorf so callers can
// classify failures with errors.Is while the Menu surfaces only the message.
var (
	ErrNotFound           = errors.New("not found")
	ErrPermissionDenied   = errors.New("permission denied")
	ErrConflict           = errors.New("conflict")
	ErrPreconditionFailed = errors.New("precondition failed")
	ErrValidationFailed   = errors.New("validation failed")
	ErrUpstreamFailure    = errors.New("upstream failure")
)

// ErrToolCollision indicates two toolsets in one menu declare the same tool name.
var ErrToolCollision = errors.New("tool name collision")

// Error is a classified toolset failure.
type Error struct {
	Kind error
	Msg  string
}

// Errorf builds an Error of the given kind with a formatted message.
func Errorf(kind error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

func (e *Error) Error() string { return e.Msg }

// Is reports whether target is this error's kind.
func (e *Error) Is(target error) bool { return e.Kind == target }

// Unwrap exposes the kind so wrapped chains keep working.
func (e *Error) Unwrap() error { return e.Kind }

// KindOf returns the first known kind found in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range []error{
		ErrNotFound,
		ErrPermissionDenied,
		ErrConflict,
		ErrPreconditionFailed,
		ErrValidationFailed,
		ErrUpstreamFailure,
	} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
