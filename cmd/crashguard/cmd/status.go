package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/app"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show crash state at a glance",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

var (
	statusTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	statusLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6b7280")).Width(22)
	statusOKStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981"))
	statusWarnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	statusBadStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#ef4444"))
)

// StatusView is the machine-readable form of `crashguard status`.
type StatusView struct {
	App            string `json:"app" yaml:"app"`
	Version        string `json:"version" yaml:"version"`
	Runtime        string `json:"runtime" yaml:"runtime"`
	DataDir        string `json:"data_dir" yaml:"data_dir"`
	MarkerPresent  bool   `json:"marker_present" yaml:"marker_present"`
	LedgerEntries  int    `json:"ledger_entries" yaml:"ledger_entries"`
	RecentCrashes  int    `json:"recent_crashes" yaml:"recent_crashes"`
	Window         string `json:"window" yaml:"window"`
	Threshold      int    `json:"threshold" yaml:"threshold"`
	ArchivedDumps  int    `json:"archived_dumps" yaml:"archived_dumps"`
	UnreadAlerts   int    `json:"unread_alerts" yaml:"unread_alerts"`
	Recommendation string `json:"recommendation" yaml:"recommendation"`
}

func collectStatus(cmd *cobra.Command, a *app.App) (StatusView, error) {
	ctx := cmd.Context()
	cfg := a.Config
	window := cfg.Crash.WindowDuration()

	v := StatusView{
		App:           a.Meta.AppName(),
		Version:       a.Meta.Build().Version,
		Runtime:       a.Meta.Runtime().Descriptor(),
		DataDir:       cfg.DataDir,
		MarkerPresent: a.Marker.Exists(),
		Window:        window.String(),
		Threshold:     a.Escalator.Threshold(),
	}

	var err error
	if v.RecentCrashes, err = a.Ledger.RecentCount(ctx, window, timeNow()); err != nil {
		return v, fmt.Errorf("reading crash ledger: %w", err)
	}
	lines, err := a.Ledger.Tail(ctx, cfg.Crash.MaxHistory)
	if err != nil {
		return v, fmt.Errorf("reading crash ledger: %w", err)
	}
	v.LedgerEntries = len(lines)

	archived, err := a.Archive.List()
	if err != nil {
		return v, fmt.Errorf("listing archive: %w", err)
	}
	v.ArchivedDumps = len(archived)

	unread, err := a.Alerts.List(ctx, true)
	if err != nil {
		return v, fmt.Errorf("listing alerts: %w", err)
	}
	v.UnreadAlerts = len(unread)
	v.Recommendation = recommendationFor(a)
	return v, nil
}

func runStatus(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	v, err := collectStatus(cmd, a)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if handled, err := writeStructured(w, v); handled {
		return err
	}

	row := func(label, value string) string {
		return statusLabelStyle.Render(label) + value
	}

	crashes := fmt.Sprintf("%d in %s (threshold %d)", v.RecentCrashes, v.Window, v.Threshold)
	switch {
	case v.RecentCrashes >= v.Threshold:
		crashes = statusBadStyle.Render(crashes)
	case v.RecentCrashes > 0:
		crashes = statusWarnStyle.Render(crashes)
	default:
		crashes = statusOKStyle.Render(crashes)
	}

	marker := statusOKStyle.Render("absent")
	if v.MarkerPresent {
		marker = statusWarnStyle.Render("present (running, or previous run did not exit cleanly)")
	}

	lines := []string{
		statusTitleStyle.Render(v.App + " crash status"),
		row("Version", v.Version),
		row("Runtime", v.Runtime),
		row("Data directory", v.DataDir),
		row("Running marker", marker),
		row("Recent crashes", crashes),
		row("Ledger entries", fmt.Sprintf("%d / %d", v.LedgerEntries, a.Config.Crash.MaxHistory)),
		row("Archived dumps", fmt.Sprintf("%d / %d", v.ArchivedDumps, a.Config.Archive.MaxFiles)),
		row("Unread alerts", fmt.Sprint(v.UnreadAlerts)),
	}
	if v.RecentCrashes >= v.Threshold {
		lines = append(lines, "", row("Recommendation", v.Recommendation))
	}
	fmt.Fprintln(w, strings.Join(lines, "\n"))
	return nil
}
