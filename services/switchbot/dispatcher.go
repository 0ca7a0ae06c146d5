package switchbot

import (
	"context"
	"log/slog"
	"time"

	"lockbutton-go/types"
	"lockbutton-go/x/logx"
)

const (
	MaxAttempts           = 2
	DefaultRequestTimeout = 10 * time.Second
)

// Commander sends one command. *Client implements it.
type Commander interface {
	Command(ctx context.Context, deviceID, command string) Outcome
}

// Dispatcher sends the lock action with the retry policy: one retry for any
// outcome other than success or an authentication failure.
type Dispatcher struct {
	c        Commander
	deviceID string
	timeout  time.Duration
	log      *slog.Logger
}

func NewDispatcher(c Commander, deviceID string, timeout time.Duration, log *slog.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Dispatcher{c: c, deviceID: deviceID, timeout: timeout, log: logx.OrDiscard(log)}
}

// Send returns the last outcome and how many requests were made.
func (d *Dispatcher) Send(ctx context.Context, action types.Action) (Outcome, int) {
	var o Outcome
	n := 0
	for n < MaxAttempts {
		n++
		o = d.attempt(ctx, action)
		d.log.Info("api:attempt",
			slog.Int("n", n),
			slog.String("action", action.String()),
			slog.String("outcome", o.Kind.String()),
		)
		if !o.Retryable() || ctx.Err() != nil {
			break
		}
	}
	return o, n
}

func (d *Dispatcher) attempt(ctx context.Context, action types.Action) Outcome {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return d.c.Command(ctx, d.deviceID, action.String())
}
