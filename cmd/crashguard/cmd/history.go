package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded crashes, oldest first",
	RunE:  runHistory,
}

var historyLimit int

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of most recent entries to show")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	if historyLimit <= 0 {
		return fmt.Errorf("--limit must be positive")
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lines, err := a.Ledger.Tail(cmd.Context(), historyLimit)
	if err != nil {
		return fmt.Errorf("reading crash ledger: %w", err)
	}

	events := make([]core.CrashEvent, 0, len(lines))
	skipped := 0
	for _, line := range lines {
		ev, err := ledger.ParseLine(line)
		if err != nil {
			skipped++
			continue
		}
		events = append(events, ev)
	}

	w := cmd.OutOrStdout()
	if handled, err := writeStructured(w, events); handled {
		return err
	}

	if len(events) == 0 {
		fmt.Fprintln(w, "No crashes recorded")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("Time", "PID", "Type", "Runtime")
	for _, ev := range events {
		table.Append(
			ev.Timestamp.Format(core.LedgerTimeLayout),
			ev.PID,
			string(ev.Kind),
			ev.Runtime,
		)
	}
	table.Render()

	if skipped > 0 {
		fmt.Fprintf(w, "\n%d unreadable entries skipped\n", skipped)
	}
	return nil
}
