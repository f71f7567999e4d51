package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hugo-lorenzo-mato/crashguard/internal/clip"
	"github.com/hugo-lorenzo-mato/crashguard/internal/report"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Generate a crash summary for bug reports",
	Long: `Generate a markdown crash summary with build, system and runtime
information, the recent crash history and a runtime recommendation.

Examples:
  # Print markdown to stdout
  crashguard report

  # Write crash-summary-<timestamp>.md into the data directory
  crashguard report --export

  # Pretty-print in the terminal and copy to the clipboard
  crashguard report --render --copy`,
	RunE: runReport,
}

var (
	reportExport bool
	reportRender bool
	reportCopy   bool
	reportWidth  int
	reportPlain  bool
)

// newCopier is overridden by tests.
var newCopier = clip.NewCopier

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().BoolVar(&reportExport, "export", false, "write the report into the data directory")
	reportCmd.Flags().BoolVar(&reportRender, "render", false, "render markdown for the terminal")
	reportCmd.Flags().BoolVar(&reportCopy, "copy", false, "copy the report to the clipboard")
	reportCmd.Flags().IntVar(&reportWidth, "width", 100, "word wrap width for --render")
	reportCmd.Flags().BoolVar(&reportPlain, "plain", false, "render without colors")
}

func runReport(cmd *cobra.Command, _ []string) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	w := cmd.OutOrStdout()
	ctx := cmd.Context()

	if reportExport {
		path, err := a.Report.Export(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "Crash summary exported to %s\n", path)
		return nil
	}

	md := a.Report.Generate(ctx)

	if reportCopy {
		res, err := newCopier().Copy(md)
		if err != nil {
			return fmt.Errorf("copying report: %w", err)
		}
		if res.Method == clip.MethodFile {
			fmt.Fprintf(cmd.ErrOrStderr(), "Clipboard unavailable; report saved to %s\n", res.FilePath)
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "Report copied to clipboard (%s)\n", res.Method)
		}
	}

	if reportRender {
		fmt.Fprint(w, report.Render(md, report.RenderOptions{Width: reportWidth, Plain: reportPlain}))
		return nil
	}
	fmt.Fprint(w, md)
	return nil
}
