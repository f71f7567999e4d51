package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/diagnostics"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage preserved crash dumps",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived crash dumps, newest first",
	RunE:  runArchiveList,
}

var archivePruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the archive retention limit now",
	RunE:  runArchivePrune,
}

func init() {
	rootCmd.AddCommand(archiveCmd)
	archiveCmd.AddCommand(archiveListCmd, archivePruneCmd)
}

func runArchiveList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Archive.List()
	if err != nil {
		return fmt.Errorf("listing archive: %w", err)
	}
	if list == nil {
		list = []core.ArchivedDump{}
	}

	w := cmd.OutOrStdout()
	if handled, err := writeStructured(w, list); handled {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No archived crash dumps")
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("PID", "Captured", "Size", "Path")
	for _, d := range list {
		table.Append(d.PID, d.CapturedAt.Format(core.LedgerTimeLayout), diagnostics.FormatBytes(d.Size), d.Path)
	}
	table.Render()
	fmt.Fprintf(w, "\nArchive: %s (keeps %d)\n", a.Archive.Dir(), a.Config.Archive.MaxFiles)
	return nil
}

func runArchivePrune(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	removed, err := a.Archive.Prune()
	if err != nil {
		return fmt.Errorf("pruning archive: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d archived dump(s)\n", removed)
	return nil
}
