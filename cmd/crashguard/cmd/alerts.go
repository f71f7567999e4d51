package cmd

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and acknowledge crash alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored alerts, newest first",
	RunE:  runAlertsList,
}

var alertsReadCmd = &cobra.Command{
	Use:   "read <id>...",
	Short: "Mark alerts as read",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAlertsRead,
}

var (
	alertsUnread bool
	alertsBody   bool
)

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd, alertsReadCmd)

	alertsListCmd.Flags().BoolVar(&alertsUnread, "unread", false, "only show unread alerts")
	alertsListCmd.Flags().BoolVar(&alertsBody, "body", false, "print alert bodies instead of a table")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	list, err := a.Alerts.List(cmd.Context(), alertsUnread)
	if err != nil {
		return fmt.Errorf("listing alerts: %w", err)
	}
	if list == nil {
		list = []core.Alert{}
	}

	w := cmd.OutOrStdout()
	if handled, err := writeStructured(w, list); handled {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintln(w, "No alerts")
		return nil
	}

	if alertsBody {
		for _, al := range list {
			fmt.Fprintf(w, "[%s] %s  %s\n%s\n%s\n\n", al.Level, al.CreatedAt.Format(core.LedgerTimeLayout), al.ID, al.Title, al.Body)
		}
		return nil
	}

	table := tablewriter.NewWriter(w)
	table.Header("ID", "Level", "Created", "Read", "Title")
	for _, al := range list {
		read := "no"
		if al.Read {
			read = "yes"
		}
		table.Append(al.ID, string(al.Level), al.CreatedAt.Format(core.LedgerTimeLayout), read, al.Title)
	}
	table.Render()
	return nil
}

func runAlertsRead(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	for _, id := range args {
		if err := a.Alerts.MarkRead(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Marked %s as read\n", id)
	}
	return nil
}
