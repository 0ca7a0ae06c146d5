//go:build !(rp2040 && ninafw)

// Command lockbutton runs one wake cycle on the host board: a scripted
// button press, a simulated radio over the workstation's network and a
// file-backed retained region that survives between runs.
//
// The Nano RP2040 firmware entry point is main_rp2.go, built with
// -target=nano-rp2040 (tags rp2040 and ninafw).
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lockbutton-go/bus"
	"lockbutton-go/services/config"
	"lockbutton-go/services/cycle"
	"lockbutton-go/services/hal/halcore"
	"lockbutton-go/services/hal/platform"
)

type hostFlags struct {
	config     string
	env        []string
	press      time.Duration
	cold       bool
	watchdog   bool
	staleClock bool
	rtcPath    string
	jsonLogs   bool
	trace      bool
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "lockbutton:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	f := &hostFlags{}
	cmd := &cobra.Command{
		Use:           "lockbutton",
		Short:         "Run one simulated wake cycle",
		Long:          "lockbutton boots the host board, measures a scripted press, connects,\nsends lock or unlock to SwitchBot and goes back to sleep.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), f)
		},
	}
	fl := cmd.Flags()
	fl.StringVarP(&f.config, "config", "c", "lockbutton.yaml", "config file (.yaml, .yml or .toml)")
	fl.StringSliceVar(&f.env, "env", []string{".env"}, "dotenv files loaded before LOCKBUTTON_* overrides")
	fl.DurationVar(&f.press, "press", 300*time.Millisecond, "how long the button is held after wake")
	fl.BoolVar(&f.cold, "cold", false, "simulate power-on: clear retained memory and skip the cycle")
	fl.BoolVar(&f.watchdog, "watchdog-reset", false, "simulate a reset caused by the watchdog")
	fl.BoolVar(&f.staleClock, "stale-clock", false, "start with the clock at its epoch so it must be synced")
	fl.StringVar(&f.rtcPath, "rtc", filepath.Join(os.TempDir(), "lockbutton-rtc.bin"), "file backing retained memory")
	fl.BoolVar(&f.jsonLogs, "json", !isatty.IsTerminal(os.Stderr.Fd()), "JSON log lines")
	fl.BoolVar(&f.trace, "trace", false, "print cycle phases from the bus")
	return cmd
}

func loadConfig(path string, envFiles []string) (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	return cfg, nil
}

func run(ctx context.Context, f *hostFlags) error {
	cfg, err := loadConfig(f.config, f.env)
	if err != nil {
		return err
	}
	log := newLogger(os.Stderr, cfg.Log.Level, f.jsonLogs)

	cause := halcore.ResetWakeFromSleep
	switch {
	case f.cold:
		cause = halcore.ResetPowerOn
	case f.watchdog:
		cause = halcore.ResetWatchdog
	}
	if cause != halcore.ResetWakeFromSleep {
		// A full reset loses retained memory.
		if err := (&platform.FileRegion{Path: f.rtcPath}).Clear(); err != nil {
			return err
		}
	}

	board := platform.NewHost(platform.HostOptions{
		Wiring:     wiring(cfg),
		Hold:       f.press,
		Cause:      cause,
		RTCPath:    f.rtcPath,
		StaleClock: f.staleClock,
		SSID:       cfg.WiFi.SSID,
		Log:        log,
	})
	log.Info("main:boot", slog.String("board", board.Name), slog.String("reset", cause.String()))

	b := bus.NewBus(16)
	mon := b.NewConnection("monitor").Subscribe(bus.T("cycle/#"))

	deps, err := buildDeps(cfg, board, b.NewConnection("cycle"), log)
	if err != nil {
		return err
	}
	rep := cycle.Run(ctx, deps)
	if f.trace {
		printTrace(mon)
	}

	switch {
	case rep.ConnectErr != nil:
		return rep.ConnectErr
	case rep.Attempts > 0 && !rep.Outcome.Success():
		return rep.Outcome.AsError("lockbutton.dispatch")
	}
	return nil
}

// printTrace drains what the cycle published, in order.
func printTrace(sub *bus.Subscription) {
	for {
		select {
		case m := <-sub.Channel():
			switch p := m.Payload.(type) {
			case string:
				fmt.Fprintln(os.Stderr, "[trace]", m.Topic.String(), p)
			case cycle.Report:
				fmt.Fprintln(os.Stderr, "[trace]", m.Topic.String(), "final="+p.Final().String())
			}
		default:
			return
		}
	}
}
