package core

import (
	"context"
	"time"
)

// EventStore persists the bounded crash ledger.
//
// Implementations keep events in insertion order and never hold more than
// their configured maximum after an Append; the oldest entries go first.
type EventStore interface {
	// Append records an event and then enforces the size bound.
	Append(ctx context.Context, event CrashEvent) error

	// RecentCount counts events stamped strictly after now-window.
	// Unparsable records are skipped and never reported as errors.
	RecentCount(ctx context.Context, window time.Duration, now time.Time) (int, error)

	// Tail returns up to the last n serialized records, oldest first.
	Tail(ctx context.Context, n int) ([]string, error)

	// Close releases backend resources.
	Close() error
}

// ArchiveStore keeps a capped archive of preserved crash dumps.
type ArchiveStore interface {
	// Preserve copies dumpPath into the archive and applies retention.
	Preserve(dumpPath, pid string) (ArchivedDump, error)

	// Prune deletes all but the most recently modified members.
	Prune() (int, error)

	// List returns archived dumps, newest first.
	List() ([]ArchivedDump, error)
}

// AlertSink delivers alerts to operators.
type AlertSink interface {
	// Publish stores or forwards an alert. Publishing an id twice is a no-op.
	Publish(ctx context.Context, alert Alert) error

	// ExistsIncludingRead reports whether an alert with id was ever published,
	// whether or not it has since been read.
	ExistsIncludingRead(ctx context.Context, id string) (bool, error)
}

// Formatter turns a message key and positional arguments into display text.
type Formatter interface {
	Format(key string, args ...any) string
}

// MetadataProvider exposes host application metadata.
type MetadataProvider interface {
	AppName() string
	Build() BuildInfo
	DataDir() string
	ConfigDir() string
	Runtime() RuntimeInfo
}

// Clock returns the current wall-clock time.
type Clock func() time.Time
