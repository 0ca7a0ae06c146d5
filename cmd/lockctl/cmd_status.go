package main

import (
	"context"

	"github.com/spf13/cobra"
)

// newStatusCmd creates the "lockctl status" subcommand.
func newStatusCmd(e *env, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "status [device-id]",
		Short: "Show a device's status",
		Long:  "Fetches GET /v1.1/devices/{id}/status. The id defaults to\nswitchbot.device_id from the config.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := g.loadConfig(len(args) == 0)
			if err != nil {
				return err
			}
			id := cfg.SwitchBot.DeviceID
			if len(args) == 1 {
				id = args[0]
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			body, err := e.client(cfg).Status(ctx, id)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}
