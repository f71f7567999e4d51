// Package app wires the crash recovery components from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hugo-lorenzo-mato/crashguard/internal/alerts"
	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crashguard/internal/dumps"
	"github.com/hugo-lorenzo-mato/crashguard/internal/i18n"
	"github.com/hugo-lorenzo-mato/crashguard/internal/ledger"
	"github.com/hugo-lorenzo-mato/crashguard/internal/logging"
	"github.com/hugo-lorenzo-mato/crashguard/internal/marker"
	"github.com/hugo-lorenzo-mato/crashguard/internal/metrics"
	"github.com/hugo-lorenzo-mato/crashguard/internal/recovery"
	"github.com/hugo-lorenzo-mato/crashguard/internal/report"
	"github.com/hugo-lorenzo-mato/crashguard/internal/web"
)

// App holds the wired components.
type App struct {
	Config *config.Config
	Logger *logging.Logger
	Meta   *Metadata

	Marker      *marker.Marker
	Ledger      core.EventStore
	Locator     *dumps.Locator
	Archive     *dumps.Archiver
	Alerts      *alerts.SQLiteSink
	Catalog     *i18n.Catalog
	Escalator   *alerts.Escalator
	Coordinator *recovery.Coordinator
	SystemInfo  *diagnostics.Collector
	Report      *report.Composer
	Metrics     *metrics.Collector
	Registry    *prometheus.Registry

	mu      sync.Mutex
	closers []func() error
}

// Options customizes wiring, mostly for tests.
type Options struct {
	Clock  core.Clock
	Env    *dumps.Env
	Probes *diagnostics.Probes
	PID    int
}

// New opens every store under cfg.DataDir and wires the components.
// On error, whatever was already opened is closed.
func New(cfg *config.Config, build core.BuildInfo, logger *logging.Logger, opts Options) (_ *App, err error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	if err := os.MkdirAll(cfg.DataDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	a := &App{
		Config: cfg,
		Logger: logger,
		Meta:   NewMetadata(cfg, build),
	}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	rt := a.Meta.Runtime()
	window := cfg.Crash.WindowDuration()
	markerOpts := []marker.Option{marker.WithLogger(logger.WithComponent("marker").Logger)}
	if opts.Clock != nil {
		markerOpts = append(markerOpts, marker.WithClock(opts.Clock))
	}
	if opts.PID > 0 {
		markerOpts = append(markerOpts, marker.WithPID(opts.PID))
	}
	a.Marker = marker.New(cfg.MarkerPath(), rt, markerOpts...)

	a.Ledger, err = ledger.Open(cfg, logger.WithComponent("ledger").Logger)
	if err != nil {
		return nil, fmt.Errorf("opening crash ledger: %w", err)
	}
	a.onClose(a.Ledger.Close)

	env := dumps.DefaultEnv(cfg.DataDir, cfg.AppName())
	if opts.Env != nil {
		env = *opts.Env
	}
	a.Locator = dumps.NewLocator(env.Resolvers(), logger.WithComponent("dumps").Logger)

	archiveOpts := []dumps.ArchiverOption{dumps.WithLogger(logger.WithComponent("archive").Logger)}
	if opts.Clock != nil {
		archiveOpts = append(archiveOpts, dumps.WithClock(opts.Clock))
	}
	a.Archive = dumps.NewArchiver(cfg.ArchiveDir(), cfg.Archive.MaxFiles, archiveOpts...)

	var sinkOpts []alerts.SQLiteSinkOption
	if opts.Clock != nil {
		sinkOpts = append(sinkOpts, alerts.WithSinkClock(opts.Clock))
	}
	a.Alerts, err = alerts.OpenSQLiteSink(cfg.AlertsPath(), sinkOpts...)
	if err != nil {
		return nil, fmt.Errorf("opening alert store: %w", err)
	}
	a.onClose(a.Alerts.Close)

	a.Catalog = i18n.New(cfg.Alerts.Locale)

	escOpts := []alerts.EscalatorOption{
		alerts.WithThreshold(cfg.Crash.FrequencyThreshold),
		alerts.WithLogger(logger.WithComponent("escalation").Logger),
	}
	if opts.Clock != nil {
		escOpts = append(escOpts, alerts.WithClock(opts.Clock))
	}
	a.Escalator = alerts.NewEscalator(a.Alerts, a.Catalog, diagnostics.Recommend(rt.Vendor), escOpts...)

	a.Coordinator = recovery.New(recovery.Deps{
		AppName:   cfg.AppName(),
		Runtime:   rt,
		Marker:    a.Marker,
		Ledger:    a.Ledger,
		Finder:    a.Locator,
		Archive:   a.Archive,
		Escalator: a.Escalator,
		Sink:      a.Alerts,
		Formatter: a.Catalog,
		Logger:    logger.WithComponent("recovery").Logger,
		Window:    window,
		Clock:     opts.Clock,
	})

	probes := diagnostics.DefaultProbes()
	if opts.Probes != nil {
		probes = *opts.Probes
	}
	a.SystemInfo = diagnostics.NewCollector(a.Meta, probes)

	a.Report = report.New(report.Deps{
		Meta:         a.Meta,
		Ledger:       a.Ledger,
		Info:         a.SystemInfo,
		Window:       window,
		HistoryLines: cfg.Crash.ReportHistoryLines,
		Clock:        opts.Clock,
		Logger:       logger.WithComponent("report").Logger,
	})

	a.Metrics = metrics.NewCollector(metrics.Sources{
		Ledger:     a.Ledger,
		MaxEntries: cfg.Crash.MaxHistory,
		Archive:    a.Archive,
		Alerts:     a.Alerts,
		Window:     window,
		Clock:      opts.Clock,
		Logger:     logger.WithComponent("metrics").Logger,
	})
	a.Registry = metrics.NewRegistry(a.Metrics)

	return a, nil
}

func (a *App) onClose(fn func() error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closers = append(a.closers, fn)
}

// StartupCheck runs the recovery coordinator and records its outcome.
// Call it before StartMarker.
func (a *App) StartupCheck(ctx context.Context, args []string) recovery.Outcome {
	out := a.Coordinator.Run(ctx, args)
	a.Metrics.ObserveStartup(string(out.Mode), out.Escalated)
	a.Logger.Info("startup check complete",
		slog.String("mode", string(out.Mode)),
		slog.Int("recent_crashes", out.RecentCrashes),
		slog.Bool("escalated", out.Escalated))
	return out
}

// StartMarker writes the running marker. The handle must be released on
// orderly shutdown.
func (a *App) StartMarker() *marker.Handle {
	return a.Marker.Start()
}

// Server builds the HTTP status server from the server config section.
func (a *App) Server() *web.Server {
	cfg := web.DefaultConfig()
	cfg.Host = a.Config.Server.Host
	cfg.Port = a.Config.Server.Port
	if len(a.Config.Server.CORSOrigins) > 0 {
		cfg.CORSOrigins = a.Config.Server.CORSOrigins
	} else {
		cfg.EnableCORS = false
	}

	return web.New(cfg, a.Logger.WithComponent("web").Logger,
		web.WithLedger(a.Ledger, a.Config.Crash.WindowDuration()),
		web.WithAlerts(a.Alerts),
		web.WithArchive(a.Archive),
		web.WithReport(a.Report),
		web.WithMetrics(metrics.Handler(a.Registry)),
	)
}

// WriteMetrics writes the textfile export when metrics.textfile is set.
func (a *App) WriteMetrics() error {
	if a.Config.Metrics.Textfile == "" {
		return nil
	}
	return metrics.WriteTextfile(a.Config.Metrics.Textfile, a.Registry)
}

// Close releases stores in reverse order of opening.
func (a *App) Close() error {
	a.mu.Lock()
	closers := a.closers
	a.closers = nil
	a.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
