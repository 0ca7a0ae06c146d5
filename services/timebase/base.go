// Package timebase keeps the wall clock plausible enough for request
// signing, syncing over SNTP only when it looks stale.
package timebase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/x/logx"
)

const (
	DefaultFloorYear   = 2024
	DefaultSyncTimeout = 5 * time.Second
)

type SyncResult uint8

const (
	SyncSkipped SyncResult = iota // clock already valid
	SyncOK
	SyncFailed
	SyncTimeout
)

func (r SyncResult) String() string {
	switch r {
	case SyncSkipped:
		return "skipped"
	case SyncOK:
		return "ok"
	case SyncFailed:
		return "failed"
	case SyncTimeout:
		return "timeout"
	default:
		return "unknown"
	}
}

type Config struct {
	FloorYear   int
	SyncTimeout time.Duration
	Epoch       Epoch
}

// Base reads and corrects a native clock.
type Base struct {
	clk halcore.Clock
	src Source
	cfg Config
	log *slog.Logger
}

func New(clk halcore.Clock, src Source, cfg Config, log *slog.Logger) *Base {
	if cfg.FloorYear == 0 {
		cfg.FloorYear = DefaultFloorYear
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = DefaultSyncTimeout
	}
	return &Base{clk: clk, src: src, cfg: cfg, log: logx.OrDiscard(log)}
}

// UnixMilli is the epoch-corrected current time.
func (b *Base) UnixMilli() int64 {
	return b.cfg.Epoch.ToUnixMilli(b.clk.NowNativeMs())
}

func (b *Base) Now() time.Time { return time.UnixMilli(b.UnixMilli()).UTC() }

// Valid reports whether the current year is at or after the floor.
func (b *Base) Valid() bool { return b.Now().Year() >= b.cfg.FloorYear }

// EnsureValid syncs once when the clock is stale. Failures are reported, not
// retried; the caller carries on either way.
func (b *Base) EnsureValid(ctx context.Context) SyncResult {
	if b.Valid() {
		return SyncSkipped
	}
	b.log.Info("time:stale", slog.Int("year", b.Now().Year()))

	ctx, cancel := context.WithTimeout(ctx, b.cfg.SyncTimeout)
	defer cancel()

	t, err := b.src.Now(ctx)
	if err != nil {
		res := SyncFailed
		if errors.Is(err, errcode.ClockSyncTimeout) || ctx.Err() != nil {
			res = SyncTimeout
		}
		b.log.Warn("time:sync-failed", slog.String("result", res.String()), slog.String("err", err.Error()))
		return res
	}
	if err := b.clk.SetNativeMs(b.cfg.Epoch.FromUnixMilli(t.UnixMilli())); err != nil {
		b.log.Warn("time:set-failed", slog.String("err", err.Error()))
		return SyncFailed
	}
	b.log.Info("time:synced", slog.Time("now", b.Now()))
	return SyncOK
}
