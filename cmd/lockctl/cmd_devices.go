package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// newDevicesCmd creates the "lockctl devices" subcommand.
func newDevicesCmd(e *env, g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List devices on the account",
		Long:  "Fetches GET /v1.1/devices and prints the body. Use it to find the\nLock Pro's deviceId for switchbot.device_id.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.loadConfig(false)
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
			defer cancel()
			body, err := e.client(cfg).Devices(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), body)
		},
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(w, string(raw))
		return err
	}
	_, err := fmt.Fprintln(w, buf.String())
	return err
}
