package main

import (
	"fmt"

	"github.com/MrEthical07/goShop/metrics/export/prometheus"
	"github.com/spf13/cobra"
)

func newMetricsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Probe the backend and print the client counters",
		Long: `metrics restores the session, fetches banners and products once and
prints the resulting client counters in Prometheus text format.`,
		Args: withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := a.openClient(ctx, cmd)
			if err != nil {
				return err
			}
			defer client.Close()

			if _, err := client.FetchStorefront(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), prometheus.NewPrometheusExporter(client).Render())
			return err
		},
	}
}
