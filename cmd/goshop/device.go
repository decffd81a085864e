package main

import (
	"github.com/MrEthical07/goShop/internal/output"
	"github.com/spf13/cobra"
)

func newDeviceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "device",
		Short: "Show this installation's device identity",
		Args:  withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			view := newDeviceView(client.DeviceIdentity(ctx))
			if a.jsonOut {
				return a.writeJSON(cmd, view)
			}
			table := output.NewTable(cmd.OutOrStdout(), []string{"Field", "Value"}, a.quiet)
			table.AddRow("device id", view.DeviceID)
			table.AddRow("device type", view.DeviceType)
			return table.Render()
		},
	}
}
