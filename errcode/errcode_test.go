package errcode

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestCodesAreStableStrings(t *testing.T) {
	cases := map[string]Code{
		"timeout":            Timeout,
		"connect_failed":     ConnectFailed,
		"clock_sync_timeout": ClockSyncTimeout,
		"clock_sync_failed":  ClockSyncFailed,
		"auth_error":         AuthError,
		"api_error":          APIError,
		"network_timeout":    NetworkTimeout,
		"transport_failure":  TransportFailure,
		"invalid_config":     InvalidConfig,
		"unsupported":        Unsupported,
	}
	for want, c := range cases {
		if c.Error() != want {
			t.Fatalf("code %q mismatch: got %q", want, c.Error())
		}
	}
}

func TestOfUnwrapsWrappedE(t *testing.T) {
	inner := &E{C: ConnectFailed, Op: "wifi.connect", Err: errors.New("assoc rejected")}
	wrapped := fmt.Errorf("cycle: %w", inner)

	if got := Of(wrapped); got != ConnectFailed {
		t.Fatalf("Of = %q, want %q", got, ConnectFailed)
	}
	if !errors.Is(wrapped, ConnectFailed) {
		t.Fatal("errors.Is should match the code of a wrapped *E")
	}
	if errors.Is(wrapped, Timeout) {
		t.Fatal("errors.Is matched the wrong code")
	}
	if Of(nil) != OK {
		t.Fatal("Of(nil) should be OK")
	}
	if Of(errors.New("x")) != Error {
		t.Fatal("unknown errors should map to Error")
	}
}

func TestEErrorFormat(t *testing.T) {
	e := &E{C: Timeout, Op: "wifi.connect", Msg: "20s elapsed"}
	if got, want := e.Error(), "wifi.connect: timeout: 20s elapsed"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestMapNetErr(t *testing.T) {
	if MapNetErr(nil) != OK {
		t.Fatal("nil should map to OK")
	}
	if got := MapNetErr(context.DeadlineExceeded); got != NetworkTimeout {
		t.Fatalf("deadline: got %q", got)
	}
	if got := MapNetErr(fmt.Errorf("post: %w", timeoutErr{})); got != NetworkTimeout {
		t.Fatalf("net timeout: got %q", got)
	}
	if got := MapNetErr(errors.New("connection reset")); got != TransportFailure {
		t.Fatalf("reset: got %q", got)
	}
}
