// Package marker owns the running-state marker file.
//
// The marker is written once at startup and removed on graceful shutdown.
// Finding it at the next startup, without an explicit recovery argument, is
// the only evidence that the previous run ended uncleanly.
package marker

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/fsutil"
)

// Marker manages a single marker file path.
type Marker struct {
	path    string
	runtime core.RuntimeInfo
	pid     int
	now     core.Clock
	logger  *slog.Logger
}

// Option configures a Marker.
type Option func(*Marker)

// WithClock overrides the clock used for the start timestamp.
func WithClock(clock core.Clock) Option {
	return func(m *Marker) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Marker) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithPID overrides the process id written into the marker.
func WithPID(pid int) Option {
	return func(m *Marker) {
		m.pid = pid
	}
}

// New creates a marker rooted at path.
func New(path string, rt core.RuntimeInfo, opts ...Option) *Marker {
	m := &Marker{
		path:    path,
		runtime: rt,
		pid:     os.Getpid(),
		now:     time.Now,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Path returns the marker file path.
func (m *Marker) Path() string {
	return m.path
}

// Content renders the marker body for the given start time.
func (m *Marker) Content(started time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "PID: %d\n", m.pid)
	fmt.Fprintf(&b, "Started: %s\n", started.Format(core.LedgerTimeLayout))
	b.WriteString(m.runtime.Descriptor())
	b.WriteString("\n")
	return b.String()
}

// Start writes the marker, replacing any previous content, and returns the
// handle that removes it. A write failure is logged; the returned handle is
// then a no-op and startup continues without a marker.
func (m *Marker) Start() *Handle {
	if err := fsutil.WriteFileAtomic(m.path, []byte(m.Content(m.now())), 0o600); err != nil {
		m.logger.Error("failed to create running marker",
			"path", m.path,
			"error", core.ErrIO(core.CodeMarkerWrite, "writing marker").WithCause(err),
		)
		return &Handle{logger: m.logger}
	}
	m.logger.Debug("running marker created", "path", m.path)
	return &Handle{path: m.path, logger: m.logger}
}

// Exists reports whether the marker file is present.
func (m *Marker) Exists() bool {
	return fsutil.FileExists(m.path)
}

// Read returns the raw marker content.
func (m *Marker) Read() (string, error) {
	data, err := fsutil.ReadFileScoped(m.path)
	if err != nil {
		return "", fmt.Errorf("reading marker: %w", err)
	}
	return string(data), nil
}

// Handle removes the marker on Release. The zero value and nil are valid no-op handles.
type Handle struct {
	path   string
	logger *slog.Logger
	once   sync.Once
}

// Release deletes the marker if it still exists. It runs at most once and
// never fails; errors are logged at debug level.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	h.once.Do(func() {
		if h.path == "" || !fsutil.FileExists(h.path) {
			return
		}
		if err := fsutil.RemoveIfExists(h.path); err != nil && h.logger != nil {
			h.logger.Debug("failed to remove running marker", "path", h.path, "error", err)
		}
	})
}

// Active reports whether the handle owns a marker file.
func (h *Handle) Active() bool {
	return h != nil && h.path != ""
}
