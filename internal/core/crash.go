package core

import (
	"fmt"
	"strings"
	"time"
)

// Timestamp layouts shared by the ledger, the marker and the archive.
const (
	// LedgerTimeLayout is the yyyy-MM-dd HH:mm:ss stamp used in ledger lines and the marker.
	LedgerTimeLayout = "2006-01-02 15:04:05"
	// FileTimeLayout is the yyyyMMdd_HHmmss stamp used in archive and export file names.
	FileTimeLayout = "20060102_150405"
	// DayKeyLayout is the yyyyMMdd stamp used in per-day alert identifiers.
	DayKeyLayout = "20060102"
)

// UnknownPID is recorded when the crashed process id cannot be determined.
const UnknownPID = "unknown"

// NotAvailable is shown in alerts and reports in place of missing diagnostic data.
const NotAvailable = "N/A"

// CrashKind identifies how the previous run ended.
type CrashKind string

const (
	// KindRuntimeCrash is recorded when the launcher reports a crashed pid.
	KindRuntimeCrash CrashKind = "jvm_crash"
	// KindUnexpectedShutdown is recorded when the running marker survived the previous run.
	KindUnexpectedShutdown CrashKind = "unexpected_shutdown"
)

// Valid reports whether the kind is one of the known crash kinds.
func (k CrashKind) Valid() bool {
	return k == KindRuntimeCrash || k == KindUnexpectedShutdown
}

// RuntimeInfo describes the runtime hosting the monitored process.
type RuntimeInfo struct {
	Name    string `json:"name" yaml:"name"`
	Vendor  string `json:"vendor" yaml:"vendor"`
	Version string `json:"version" yaml:"version"`
}

// Descriptor returns "<name> <version>" with unknown parts filled in.
func (r RuntimeInfo) Descriptor() string {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = "Unknown Runtime"
	}
	version := strings.TrimSpace(r.Version)
	if version == "" {
		version = "Unknown Version"
	}
	return name + " " + version
}

// CrashEvent is a single immutable ledger record.
type CrashEvent struct {
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	PID       string    `json:"pid" yaml:"pid"`
	Kind      CrashKind `json:"kind" yaml:"kind"`
	Runtime   string    `json:"runtime" yaml:"runtime"`
}

// NewCrashEvent builds an event stamped at now. An empty pid becomes UnknownPID.
func NewCrashEvent(now time.Time, pid string, kind CrashKind, rt RuntimeInfo) CrashEvent {
	if strings.TrimSpace(pid) == "" {
		pid = UnknownPID
	}
	return CrashEvent{
		Timestamp: now,
		PID:       pid,
		Kind:      kind,
		Runtime:   rt.Descriptor(),
	}
}

// ArchivedDump is a crash dump copied into the archive directory.
type ArchivedDump struct {
	PID        string    `json:"pid" yaml:"pid"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
	Path       string    `json:"path" yaml:"path"`
	Size       int64     `json:"size" yaml:"size"`
}

// AlertLevel is the severity of a published alert.
type AlertLevel string

const (
	AlertInfo  AlertLevel = "INFO"
	AlertWarn  AlertLevel = "WARN"
	AlertError AlertLevel = "ERROR"
	AlertFatal AlertLevel = "FATAL"
)

// Alert is a message handed to an AlertSink.
type Alert struct {
	ID         string     `json:"id" yaml:"id"`
	Level      AlertLevel `json:"level" yaml:"level"`
	Persistent bool       `json:"persistent" yaml:"persistent"`
	Title      string     `json:"title" yaml:"title"`
	Body       string     `json:"body" yaml:"body"`
	CreatedAt  time.Time  `json:"created_at" yaml:"created_at"`
	Read       bool       `json:"read" yaml:"read"`
}

// BuildInfo carries the host application's build metadata.
type BuildInfo struct {
	Version string `json:"version" yaml:"version"`
	Branch  string `json:"branch" yaml:"branch"`
	Commit  string `json:"commit" yaml:"commit"`
	Date    string `json:"date" yaml:"date"`
}

// String returns a one-line summary.
func (b BuildInfo) String() string {
	return fmt.Sprintf("%s (%s@%s)", orUnknown(b.Version), orUnknown(b.Branch), orUnknown(b.Commit))
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "unknown"
	}
	return s
}
