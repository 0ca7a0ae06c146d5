// Package power wraps the wake cycle: clock tiers, the hardware watchdog,
// wake arming and deep sleep.
package power

import (
	"errors"
	"log/slog"
	"time"

	"lockbutton-go/errcode"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/x/logx"
)

const (
	DefaultActiveHz        uint32 = 125_000_000
	DefaultIdleHz          uint32 = 48_000_000
	DefaultWatchdogTimeout        = 60 * time.Second
)

// Boot is what the reset cause means for this cycle.
type Boot uint8

const (
	BootCold Boot = iota
	BootWake
)

func (b Boot) String() string {
	if b == BootWake {
		return "wake_from_sleep"
	}
	return "cold_boot"
}

type Config struct {
	ActiveHz        uint32
	IdleHz          uint32
	WatchdogTimeout time.Duration
	WakePin         int
	WakeLevel       bool // level that wakes the device (pressed)
}

type Controller struct {
	pw  halcore.Power
	wd  halcore.Watchdog
	cfg Config
	log *slog.Logger
}

func New(pw halcore.Power, wd halcore.Watchdog, cfg Config, log *slog.Logger) *Controller {
	if cfg.ActiveHz == 0 {
		cfg.ActiveHz = DefaultActiveHz
	}
	if cfg.IdleHz == 0 {
		cfg.IdleHz = DefaultIdleHz
	}
	if cfg.WatchdogTimeout <= 0 {
		cfg.WatchdogTimeout = DefaultWatchdogTimeout
	}
	return &Controller{pw: pw, wd: wd, cfg: cfg, log: logx.OrDiscard(log)}
}

// Boot classifies the reset. Only a wake from deep sleep starts a cycle;
// power-on, watchdog and unknown resets are cold boots.
func (c *Controller) Boot() Boot {
	rc := c.pw.ResetCause()
	b := BootCold
	if rc == halcore.ResetWakeFromSleep {
		b = BootWake
	}
	c.log.Info("power:boot", slog.String("reset_cause", rc.String()), slog.String("boot", b.String()))
	return b
}

// Enter raises the clock and starts the watchdog.
func (c *Controller) Enter() error {
	c.setFrequency(c.cfg.ActiveHz, "active")
	if err := c.wd.Configure(c.cfg.WatchdogTimeout); err != nil {
		return &errcode.E{C: errcode.Error, Op: "power.enter", Msg: "watchdog configure", Err: err}
	}
	if err := c.wd.Start(); err != nil {
		return &errcode.E{C: errcode.Error, Op: "power.enter", Msg: "watchdog start", Err: err}
	}
	c.log.Info("power:watchdog-armed", slog.Duration("timeout", c.cfg.WatchdogTimeout))
	return nil
}

// Feed re-arms the watchdog at a phase boundary.
func (c *Controller) Feed(phase string) {
	c.wd.Feed()
	c.log.Debug("power:feed", slog.String("phase", phase))
}

// Sleep lowers the clock, arms wake on the button and enters deep sleep.
// On hardware it does not return.
func (c *Controller) Sleep() error {
	c.setFrequency(c.cfg.IdleHz, "idle")
	if err := c.pw.ArmWake(c.cfg.WakePin, c.cfg.WakeLevel); err != nil {
		return &errcode.E{C: errcode.Error, Op: "power.sleep", Msg: "arm wake", Err: err}
	}
	c.log.Info("power:deep-sleep", slog.Int("wake_pin", c.cfg.WakePin), slog.Bool("wake_level", c.cfg.WakeLevel))
	c.pw.DeepSleep()
	return nil
}

func (c *Controller) setFrequency(hz uint32, tier string) {
	err := c.pw.SetCPUFrequency(hz)
	switch {
	case err == nil:
		c.log.Debug("power:frequency", slog.String("tier", tier), slog.Int("hz", int(hz)))
	case errors.Is(err, errcode.Unsupported):
		c.log.Debug("power:frequency-fixed", slog.String("tier", tier))
	default:
		c.log.Warn("power:frequency-failed", slog.String("tier", tier), slog.String("err", err.Error()))
	}
}
