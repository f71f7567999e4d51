// Package recovery decides, once per startup, whether the previous run
// crashed and records what happened.
//
// Two mutually exclusive branches exist. A launcher that restarted a crashed
// process passes crashRecovery:<pid>; otherwise a running marker left behind
// by the previous run signals an unexpected shutdown. No failure inside the
// coordinator propagates to the caller.
package recovery

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/i18n"
)

// Mode is the branch taken by Run.
type Mode string

const (
	// ModeClean means no recovery argument and no leftover marker.
	ModeClean Mode = "clean"
	// ModeRecovery means the launcher reported a crashed pid.
	ModeRecovery Mode = "recovery"
	// ModeUnexpectedShutdown means the previous run left its marker behind.
	ModeUnexpectedShutdown Mode = "unexpected_shutdown"
)

// Outcome summarizes one Run.
type Outcome struct {
	Mode          Mode   `json:"mode" yaml:"mode"`
	PID           string `json:"pid,omitempty" yaml:"pid,omitempty"`
	DumpPath      string `json:"dump_path,omitempty" yaml:"dump_path,omitempty"`
	ArchivedPath  string `json:"archived_path,omitempty" yaml:"archived_path,omitempty"`
	RecentCrashes int    `json:"recent_crashes" yaml:"recent_crashes"`
	Escalated     bool   `json:"escalated" yaml:"escalated"`
	AlertID       string `json:"alert_id,omitempty" yaml:"alert_id,omitempty"`
}

// MarkerReader is the read side of the running marker.
type MarkerReader interface {
	Exists() bool
	Read() (string, error)
}

// DumpFinder locates a crash dump by pid.
type DumpFinder interface {
	Find(pid string) (string, bool)
}

// Escalator raises the frequent-crash alert.
type Escalator interface {
	MaybeEscalate(ctx context.Context, count int) bool
}

// Deps are the collaborators a Coordinator drives.
type Deps struct {
	AppName   string
	Runtime   core.RuntimeInfo
	Marker    MarkerReader
	Ledger    core.EventStore
	Finder    DumpFinder
	Archive   core.ArchiveStore
	Escalator Escalator
	Sink      core.AlertSink
	Formatter core.Formatter
	Logger    *slog.Logger

	// Window is the frequency window. Default: 24h.
	Window time.Duration
	// Clock defaults to time.Now.
	Clock core.Clock
	// NewID generates alert id suffixes. Defaults to random UUIDs.
	NewID func() string
}

// Coordinator runs the startup crash check.
type Coordinator struct {
	deps Deps
}

// New creates a coordinator, filling in defaults for optional dependencies.
func New(deps Deps) *Coordinator {
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if deps.Window <= 0 {
		deps.Window = 24 * time.Hour
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewID == nil {
		deps.NewID = func() string { return uuid.NewString() }
	}
	if deps.AppName == "" {
		deps.AppName = "PeerBanHelper"
	}
	return &Coordinator{deps: deps}
}

// Run examines the startup arguments and the marker and executes exactly one
// branch. It must run before a new marker is written.
func (c *Coordinator) Run(ctx context.Context, args []string) Outcome {
	if pid, ok := c.recoveryPID(args); ok {
		return c.recover(ctx, pid)
	}
	return c.checkUnexpectedShutdown(ctx)
}

func (c *Coordinator) recoveryPID(args []string) (string, bool) {
	for _, arg := range args {
		pid, candidate, err := parseRecoveryArg(arg)
		if !candidate {
			continue
		}
		if err != nil {
			c.deps.Logger.Warn("ignoring malformed recovery argument", "arg", arg, "error", err)
			continue
		}
		return pid, true
	}
	return "", false
}

func (c *Coordinator) recover(ctx context.Context, pid string) Outcome {
	d := c.deps
	now := d.Clock()
	log := d.Logger.With("pid", pid)
	log.Warn("previous run crashed, entering recovery")

	out := Outcome{Mode: ModeRecovery, PID: pid, DumpPath: core.NotAvailable}

	c.record(ctx, core.NewCrashEvent(now, pid, core.KindRuntimeCrash, d.Runtime))
	out.RecentCrashes = c.recentCount(ctx, now)

	if path, found := d.Finder.Find(pid); found {
		out.DumpPath = path
		if archived, err := d.Archive.Preserve(path, pid); err != nil {
			log.Error("failed to preserve crash dump", "path", path, "error", err)
		} else {
			out.ArchivedPath = archived.Path
		}
	} else {
		log.Info("no crash dump found for crashed process")
	}

	out.Escalated = d.Escalator.MaybeEscalate(ctx, out.RecentCrashes)

	alert := core.Alert{
		ID:         strings.ToLower(d.AppName) + "-crash-recovery-" + d.NewID(),
		Level:      core.AlertFatal,
		Persistent: true,
		Title:      d.Formatter.Format(i18n.KeyRecoveryTitle, d.AppName),
		Body: d.Formatter.Format(i18n.KeyRecoveryBody,
			pid, now.Format(core.LedgerTimeLayout), out.DumpPath, out.RecentCrashes),
		CreatedAt: now,
	}
	out.AlertID = c.publish(ctx, alert)

	log.Info("crash recovery complete",
		"dump", out.DumpPath,
		"recent_crashes", out.RecentCrashes,
		"escalated", out.Escalated,
	)
	return out
}

func (c *Coordinator) checkUnexpectedShutdown(ctx context.Context) Outcome {
	d := c.deps
	if !d.Marker.Exists() {
		d.Logger.Debug("previous run shut down cleanly")
		return Outcome{Mode: ModeClean}
	}

	now := d.Clock()
	d.Logger.Warn("running marker found, previous run ended unexpectedly")

	out := Outcome{Mode: ModeUnexpectedShutdown, PID: core.UnknownPID}

	c.record(ctx, core.NewCrashEvent(now, core.UnknownPID, core.KindUnexpectedShutdown, d.Runtime))
	out.RecentCrashes = c.recentCount(ctx, now)
	out.Escalated = d.Escalator.MaybeEscalate(ctx, out.RecentCrashes)

	content, err := d.Marker.Read()
	if err != nil {
		d.Logger.Warn("failed to read running marker", "error", err)
		content = core.NotAvailable
	}

	alert := core.Alert{
		ID:         "unexpected-shutdown-" + d.NewID(),
		Level:      core.AlertWarn,
		Persistent: true,
		Title:      d.Formatter.Format(i18n.KeyShutdownTitle),
		Body: d.Formatter.Format(i18n.KeyShutdownBody,
			strings.TrimSpace(content), now.Format(core.LedgerTimeLayout)),
		CreatedAt: now,
	}
	out.AlertID = c.publish(ctx, alert)
	return out
}

func (c *Coordinator) record(ctx context.Context, ev core.CrashEvent) {
	if err := c.deps.Ledger.Append(ctx, ev); err != nil {
		c.deps.Logger.Error("failed to record crash event", "kind", ev.Kind, "error", err)
	}
}

func (c *Coordinator) recentCount(ctx context.Context, now time.Time) int {
	n, err := c.deps.Ledger.RecentCount(ctx, c.deps.Window, now)
	if err != nil {
		c.deps.Logger.Error("failed to count recent crashes", "error", err)
		return 0
	}
	return n
}

// publish sends alert and returns its id, or "" when publishing failed.
func (c *Coordinator) publish(ctx context.Context, alert core.Alert) string {
	if err := c.deps.Sink.Publish(ctx, alert); err != nil {
		c.deps.Logger.Error("failed to publish alert", "id", alert.ID, "error", err)
		return ""
	}
	return alert.ID
}
