package main

import (
	"io"
	"log/slog"
	"time"

	"lockbutton-go/bus"
	"lockbutton-go/services/config"
	"lockbutton-go/services/cycle"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/hal/platform"
	"lockbutton-go/services/indicator"
	"lockbutton-go/services/power"
	"lockbutton-go/services/press"
	"lockbutton-go/services/rtcmem"
	"lockbutton-go/services/switchbot"
	"lockbutton-go/services/timebase"
	"lockbutton-go/services/wifi"
)

func ms(n int) time.Duration { return time.Duration(n) * time.Millisecond }

func parseLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func newLogger(w io.Writer, level string, json bool) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func wiring(cfg *config.Config) platform.Wiring {
	return platform.Wiring{
		ButtonPin:       cfg.Button.Pin,
		ButtonActiveLow: cfg.ButtonActiveLow(),
		LEDPin:          cfg.LED.Pin,
	}
}

// buildDeps turns a validated, normalised config and a board into the
// services one cycle needs.
func buildDeps(cfg *config.Config, b *platform.Board, trace *bus.Connection, log *slog.Logger) (cycle.Deps, error) {
	w := wiring(cfg)
	if err := b.Button.ConfigureInput(w.ButtonPull()); err != nil {
		return cycle.Deps{}, err
	}
	cache, err := rtcmem.NewCache(b.RTC)
	if err != nil {
		return cycle.Deps{}, err
	}

	ind := indicator.New(b.Pixel, cfg.LED.Brightness, indicator.WithLogger(log))

	var static *halcore.StaticAddr
	if s := cfg.WiFi.Static; s != nil {
		static = &halcore.StaticAddr{Address: s.Address, Netmask: s.Netmask, Gateway: s.Gateway, DNS: s.DNS}
	}

	tb := timebase.New(b.Clock, &timebase.SNTP{Server: cfg.Time.NTPServer, Dial: b.Dial}, timebase.Config{
		FloorYear:   cfg.Time.FloorYear,
		SyncTimeout: ms(cfg.Time.SyncTimeoutMs),
		Epoch:       b.Epoch,
	}, log)

	// Requests are signed with the board clock the cycle validated.
	opts := []switchbot.Option{
		switchbot.WithBaseURL(cfg.SwitchBot.BaseURL),
		switchbot.WithClock(tb.UnixMilli),
		switchbot.WithGC(b.LowMemory),
		switchbot.WithLogger(log),
	}
	if b.HTTP != nil {
		opts = append(opts, switchbot.WithDoer(b.HTTP))
	}
	client := switchbot.NewClient(switchbot.Credentials{Token: cfg.SwitchBot.Token, Secret: cfg.SwitchBot.Secret}, opts...)

	return cycle.Deps{
		Power: power.New(b.Power, b.Watchdog, power.Config{
			ActiveHz:        cfg.Power.ActiveHz,
			IdleHz:          cfg.Power.IdleHz,
			WatchdogTimeout: ms(cfg.Power.WatchdogMs),
			WakePin:         cfg.Button.Pin,
			WakeLevel:       !w.ButtonActiveLow,
		}, log),
		Sampler: press.New(b.Button, press.Config{
			LongPressMs: cfg.Button.LongPressMs,
			ActiveLow:   w.ButtonActiveLow,
		}, press.WithLogger(log)),
		Indicator: ind,
		WiFi: wifi.New(b.Station, cache, ind, wifi.Config{
			SSID:            cfg.WiFi.SSID,
			Passphrase:      cfg.WiFi.Password,
			Static:          static,
			Timeout:         ms(cfg.WiFi.TimeoutMs),
			FastPathTimeout: ms(cfg.WiFi.FastPathMs),
		}, log),
		Time:   tb,
		Sender: switchbot.NewDispatcher(client, cfg.SwitchBot.DeviceID, ms(cfg.SwitchBot.RequestTimeoutMs), log),
		Trace:  trace,
		Log:    log,
	}, nil
}

// sleepAfterFailure shows p and puts the board to sleep without running a
// cycle, so a board that cannot be wired still wakes on the next press.
func sleepAfterFailure(b *platform.Board, cfg *config.Config, log *slog.Logger, p indicator.Pattern) error {
	if b.Button != nil {
		_ = b.Button.ConfigureInput(wiring(cfg).ButtonPull())
	}
	indicator.New(b.Pixel, cfg.LED.Brightness, indicator.WithLogger(log)).Render(p)
	return power.New(b.Power, b.Watchdog, power.Config{
		IdleHz:    cfg.Power.IdleHz,
		WakePin:   cfg.Button.Pin,
		WakeLevel: !cfg.ButtonActiveLow(),
	}, log).Sleep()
}
