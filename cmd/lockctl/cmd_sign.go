package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"lockbutton-go/services/switchbot"
)

// newSignCmd creates the "lockctl sign" subcommand.
func newSignCmd(e *env, g *globalFlags) *cobra.Command {
	var (
		t     int64
		nonce string
	)
	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Print signed request headers",
		Long:  "Prints the four auth headers for the configured token and secret.\nFix --t and --nonce to compare against another implementation.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(false)
			if err != nil {
				return err
			}
			if t == 0 {
				t = e.now()
			}
			if nonce == "" {
				if nonce, err = switchbot.NewNonce(); err != nil {
					return err
				}
			}
			h := switchbot.NewHeaders(cfg.SwitchBot.Token, cfg.SwitchBot.Secret, t, nonce)
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Authorization:", h.Authorization)
			fmt.Fprintln(out, "t:", h.T)
			fmt.Fprintln(out, "nonce:", h.Nonce)
			fmt.Fprintln(out, "sign:", h.Sign)
			fmt.Fprintln(out, "Content-Type:", switchbot.ContentType)
			return nil
		},
	}
	cmd.Flags().Int64Var(&t, "t", 0, "timestamp in Unix milliseconds (default now)")
	cmd.Flags().StringVar(&nonce, "nonce", "", "nonce (default random)")
	return cmd
}
