/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package undercover

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration reports invalid role counts.
	ErrConfiguration = errors.New("invalid role configuration")

	// ErrPrecondition reports a transition or operation attempted from the wrong phase,
	// or without what it needs.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNotFound reports an unknown participant or voter.
	ErrNotFound = errors.New("not found")

	// ErrNoParticipants reports role assignment against an empty roster.
	ErrNoParticipants = errors.New("no participants")

	// ErrInvalidArgument reports malformed caller input, such as an empty name.
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error is returned by every controller operation that fails for a reason the caller
// can correct. Kind is one of the sentinels above; Err is an optional underlying cause.
type Error struct {
	Op   string
	Kind error
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	}

	return fmt.Sprintf("%s: %s", e.Op, e.Msg)
}

func (e *Error) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Kind != nil {
		errs = append(errs, e.Kind)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}

	return errs
}

func newError(op string, kind error, format string, args ...any) *Error {
	return &Error{Op: op, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// precondition wraps cause (usually a configuration error) so that it matches both
// ErrPrecondition and whatever cause matches.
func precondition(op string, cause error) *Error {
	return &Error{Op: op, Kind: ErrPrecondition, Msg: "cannot proceed", Err: cause}
}

// Message returns the user-facing part of err, without the operation prefix.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		if e.Err != nil {
			var inner *Error
			if errors.As(e.Err, &inner) {
				return inner.Msg
			}
			return e.Err.Error()
		}
		return e.Msg
	}

	return err.Error()
}
