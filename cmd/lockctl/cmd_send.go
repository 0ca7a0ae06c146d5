package main

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"lockbutton-go/errcode"
	"lockbutton-go/services/switchbot"
	"lockbutton-go/types"
)

var errNotConfirmed = errors.New("not confirmed")

func parseAction(s string) (types.Action, error) {
	switch strings.ToLower(s) {
	case "lock":
		return types.ActionLock, nil
	case "unlock":
		return types.ActionUnlock, nil
	}
	return 0, &errcode.E{C: errcode.InvalidParams, Op: "lockctl.send", Msg: "action must be lock or unlock, got " + s}
}

// newSendCmd creates the "lockctl send" subcommand.
func newSendCmd(e *env, g *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:       "send lock|unlock",
		Short:     "Send lock or unlock to the configured device",
		Long:      "Sends the command the way the firmware does, including one retry on\nnon-auth failures. Asks for confirmation unless --yes is given.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"lock", "unlock"},
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := parseAction(args[0])
			if err != nil {
				return err
			}
			cfg, err := g.loadConfig(true)
			if err != nil {
				return err
			}
			if !yes {
				if !e.isTTY() {
					return &errcode.E{C: errcode.InvalidParams, Op: "lockctl.send", Msg: "stdin is not a terminal; pass --yes"}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Send %s to %s? [y/N] ", action, cfg.SwitchBot.DeviceID)
				line, _ := bufio.NewReader(e.in).ReadString('\n')
				if a := strings.ToLower(strings.TrimSpace(line)); a != "y" && a != "yes" {
					return errNotConfirmed
				}
			}

			d := switchbot.NewDispatcher(e.client(cfg), cfg.SwitchBot.DeviceID, g.timeout, nil)
			o, n := d.Send(cmd.Context(), action)
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %s after %d attempt(s)\n", action, o.Kind, n)
			return o.AsError("lockctl.send")
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}
