package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, _ []string) {
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "crashguard %s\n", appVersion)
		fmt.Fprintf(w, "  commit: %s\n", appCommit)
		if appBranch != "" {
			fmt.Fprintf(w, "  branch: %s\n", appBranch)
		}
		fmt.Fprintf(w, "  built:  %s\n", appDate)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
