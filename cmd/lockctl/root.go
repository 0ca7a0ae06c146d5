package main

import (
	"io"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"lockbutton-go/services/config"
	"lockbutton-go/services/switchbot"
)

// env is what commands need from the process; tests replace it.
type env struct {
	in    io.Reader
	isTTY func() bool
	now   func() int64
	doer  switchbot.Doer
}

func newEnv() *env {
	return &env{
		in:    os.Stdin,
		isTTY: func() bool { return isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) },
		now:   func() int64 { return time.Now().UnixMilli() },
	}
}

type globalFlags struct {
	config  string
	env     []string
	baseURL string
	timeout time.Duration
}

// newRootCmd creates the root lockctl command with all subcommands attached.
func newRootCmd(e *env) *cobra.Command {
	g := &globalFlags{}
	cmd := &cobra.Command{
		Use:           "lockctl",
		Short:         "SwitchBot lock developer tool",
		Long:          "lockctl reads the lockbutton config and calls the SwitchBot API with\nthe firmware's signing scheme.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := cmd.PersistentFlags()
	pf.StringVarP(&g.config, "config", "c", "lockbutton.yaml", "config file (.yaml, .yml or .toml)")
	pf.StringSliceVar(&g.env, "env", []string{".env"}, "dotenv files loaded before LOCKBUTTON_* overrides")
	pf.StringVar(&g.baseURL, "base-url", "", "override switchbot.base_url")
	pf.DurationVar(&g.timeout, "timeout", switchbot.DefaultRequestTimeout, "per-request timeout")

	cmd.AddCommand(
		newDevicesCmd(e, g),
		newStatusCmd(e, g),
		newSendCmd(e, g),
		newSignCmd(e, g),
	)
	return cmd
}

// loadConfig reads credentials. needDevice also requires the device id.
func (g *globalFlags) loadConfig(needDevice bool) (*config.Config, error) {
	if err := config.LoadDotEnv(g.env...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(g.config)
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	if g.baseURL != "" {
		cfg.SwitchBot.BaseURL = g.baseURL
	}
	if err := config.ValidateSwitchBot(cfg, needDevice); err != nil {
		return nil, err
	}
	config.Normalize(cfg)
	return cfg, nil
}

func (e *env) client(cfg *config.Config) *switchbot.Client {
	opts := []switchbot.Option{
		switchbot.WithBaseURL(cfg.SwitchBot.BaseURL),
		switchbot.WithClock(e.now),
	}
	if e.doer != nil {
		opts = append(opts, switchbot.WithDoer(e.doer))
	}
	return switchbot.NewClient(switchbot.Credentials{Token: cfg.SwitchBot.Token, Secret: cfg.SwitchBot.Secret}, opts...)
}
