// Package report builds the markdown crash summary operators attach to bug reports.
package report

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crashguard/internal/fsutil"
)

// DefaultHistoryLines is how many ledger lines the report includes.
const DefaultHistoryLines = 10

// InfoSource provides the system snapshot embedded in the report.
type InfoSource interface {
	Collect(ctx context.Context) diagnostics.SystemInfo
}

// Deps wires a Composer.
type Deps struct {
	Meta         core.MetadataProvider
	Ledger       core.EventStore
	Info         InfoSource
	Window       time.Duration
	HistoryLines int
	Clock        core.Clock
	Logger       *slog.Logger
}

// Composer generates and exports crash summaries.
type Composer struct {
	meta         core.MetadataProvider
	ledger       core.EventStore
	info         InfoSource
	window       time.Duration
	historyLines int
	now          core.Clock
	logger       *slog.Logger
}

// New creates a Composer. Meta, Ledger and Info are required.
func New(d Deps) *Composer {
	c := &Composer{
		meta:         d.Meta,
		ledger:       d.Ledger,
		info:         d.Info,
		window:       d.Window,
		historyLines: d.HistoryLines,
		now:          d.Clock,
		logger:       d.Logger,
	}
	if c.window <= 0 {
		c.window = 24 * time.Hour
	}
	if c.historyLines <= 0 {
		c.historyLines = DefaultHistoryLines
	}
	if c.now == nil {
		c.now = time.Now
	}
	if c.logger == nil {
		c.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c
}

// Generate returns the markdown report. Failing sources degrade to
// placeholder text instead of aborting.
func (c *Composer) Generate(ctx context.Context) string {
	now := c.now()
	build := c.meta.Build()
	app := c.meta.AppName()

	recent, err := c.ledger.RecentCount(ctx, c.window, now)
	if err != nil {
		c.logger.Warn("counting recent crashes failed", slog.String("error", err.Error()))
		recent = 0
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# %s Crash Report\n\n", app)
	fmt.Fprintf(&b, "**Version:** %s\n", orNA(build.Version))
	fmt.Fprintf(&b, "**Branch:** %s\n", orNA(build.Branch))
	fmt.Fprintf(&b, "**Commit:** %s\n", orNA(build.Commit))
	fmt.Fprintf(&b, "**Report Generated:** %s\n\n", now.Format(core.LedgerTimeLayout))
	fmt.Fprintf(&b, "**Recent Crashes (%s):** %d\n\n", windowLabel(c.window), recent)

	b.WriteString("## System Information\n")
	b.WriteString("```\n")
	b.WriteString(c.info.Collect(ctx).Text())
	b.WriteString("```\n\n")

	b.WriteString("## Recommendation\n")
	b.WriteString(diagnostics.Recommend(c.meta.Runtime().Vendor))
	b.WriteString("\n\n")

	history, err := c.ledger.Tail(ctx, c.historyLines)
	switch {
	case err != nil:
		fmt.Fprintf(&b, "Failed to read crash history: %v\n\n", err)
	case len(history) > 0:
		b.WriteString("## Recent Crash History\n")
		b.WriteString("```\n")
		for _, line := range history {
			b.WriteString(line)
			b.WriteString("\n")
		}
		b.WriteString("```\n\n")
	}

	b.WriteString("## Instructions\n")
	b.WriteString("1. Please share this report when reporting the crash issue\n")
	b.WriteString("2. If available, also attach the crash dump file (hs_err_*.log)\n")
	b.WriteString("3. Include steps to reproduce if the crash is reproducible\n")
	b.WriteString("4. Consider the runtime recommendation above before reporting\n")

	return b.String()
}

// ExportFileName names an exported summary generated at t.
func ExportFileName(t time.Time) string {
	return "crash-summary-" + t.Format(core.FileTimeLayout) + ".md"
}

// Export writes the report into the data directory and returns its path.
func (c *Composer) Export(ctx context.Context) (string, error) {
	content := c.Generate(ctx)
	path := filepath.Join(c.meta.DataDir(), ExportFileName(c.now()))
	if err := fsutil.WriteFileAtomic(path, []byte(content), 0o644); err != nil {
		return "", core.ErrIO(core.CodeExportWrite, "writing crash summary").WithCause(err)
	}
	c.logger.Info("crash summary exported", slog.String("path", path))
	return path, nil
}

func windowLabel(d time.Duration) string {
	if d%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(d/time.Hour))
	}
	return d.String()
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return core.NotAvailable
	}
	return s
}
