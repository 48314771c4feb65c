// Package errorsx tags errors with the failure class the session uses to
// pick a user-facing alert.
package errorsx

import (
	"errors"
	"fmt"
)

// Reason is the failure class of an error.
type Reason string

const (
	ReasonUnknown    Reason = "unknown"
	ReasonPermission Reason = "permission"
	ReasonDevice     Reason = "device"
	ReasonProvider   Reason = "provider"
	ReasonConnection Reason = "connection"
	ReasonService    Reason = "service"
	ReasonProtocol   Reason = "protocol"
	ReasonSend       Reason = "send"
)

// Error attaches a Reason to an underlying error.
type Error struct {
	Reason Reason
	Err    error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Reason) + " error"
	}
	return e.Err.Error()
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with reason. An error that already carries a reason keeps
// it, so boundaries can wrap without hiding a more specific cause.
func Wrap(err error, reason Reason) error {
	if err == nil {
		return nil
	}
	if ReasonOf(err) != ReasonUnknown {
		return err
	}
	return &Error{Reason: reason, Err: err}
}

// Newf formats a new error tagged with reason.
func Newf(reason Reason, format string, args ...any) error {
	return &Error{Reason: reason, Err: fmt.Errorf(format, args...)}
}

// ReasonOf returns the first reason found in err's chain.
func ReasonOf(err error) Reason {
	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged.Reason
	}
	return ReasonUnknown
}

// Is reports whether err is tagged with reason.
func Is(err error, reason Reason) bool {
	return ReasonOf(err) == reason
}
