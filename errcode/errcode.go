package errcode

import (
	"context"
	"errors"
	"net"
	"os"
)

// Code is a stable, log-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	Unsupported    Code = "unsupported"
	InvalidParams  Code = "invalid_params"
	InvalidConfig  Code = "invalid_config"
	InvalidPayload Code = "invalid_payload"
	Timeout        Code = "timeout"

	// Connectivity
	ConnectFailed Code = "connect_failed"
	NotAssociated Code = "not_associated"

	// Time base
	ClockSyncTimeout Code = "clock_sync_timeout"
	ClockSyncFailed  Code = "clock_sync_failed"

	// Command dispatch
	AuthError        Code = "auth_error"
	APIError         Code = "api_error"
	NetworkTimeout   Code = "network_timeout"
	TransportFailure Code = "transport_failure"

	Error Code = "error" // generic fallback
)

// E keeps context and a cause alongside a Code.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Is lets errors.Is(err, errcode.Timeout) match a wrapped *E.
func (e *E) Is(target error) bool {
	c, ok := target.(Code)
	return ok && c == e.C
}

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	type coder interface{ Code() Code }
	var x coder
	if errors.As(err, &x) {
		return x.Code()
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return Error
}

// MapNetErr maps a transport error to NetworkTimeout or TransportFailure.
func MapNetErr(err error) Code {
	if err == nil {
		return OK
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return NetworkTimeout
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return NetworkTimeout
	}
	return TransportFailure
}
