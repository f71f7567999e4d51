package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/metrics"
)

var metricsCmd = &cobra.Command{
	Use:   "metrics",
	Short: "Print crash metrics in the Prometheus text format",
	Long: `Print crash metrics in the Prometheus text format, or write them to a
file for the node exporter textfile collector with --textfile.`,
	RunE: runMetrics,
}

var metricsTextfile string

func init() {
	rootCmd.AddCommand(metricsCmd)
	metricsCmd.Flags().StringVar(&metricsTextfile, "textfile", "", "write to this file instead of stdout")
}

func runMetrics(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if metricsTextfile != "" {
		if err := metrics.WriteTextfile(metricsTextfile, a.Registry); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Metrics written to %s\n", metricsTextfile)
		return nil
	}
	return metrics.Expose(cmd.OutOrStdout(), a.Registry)
}
