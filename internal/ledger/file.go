package ledger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/fsutil"
)

// FileStore keeps the ledger in a text file, one event per line.
type FileStore struct {
	path       string
	maxEntries int
	logger     *slog.Logger
	mu         sync.Mutex
}

var _ core.EventStore = (*FileStore)(nil)

// NewFileStore creates a file-backed ledger. The file is created on first Append.
func NewFileStore(path string, maxEntries int, logger *slog.Logger) *FileStore {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &FileStore{
		path:       path,
		maxEntries: maxEntries,
		logger:     logger,
	}
}

// Path returns the ledger file path.
func (s *FileStore) Path() string {
	return s.path
}

// Append writes one line and trims the file to the last maxEntries lines.
func (s *FileStore) Append(ctx context.Context, ev core.CrashEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return core.ErrIO(core.CodeLedgerAppend, "creating ledger directory").WithCause(err)
	}

	f, err := os.OpenFile(s.path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
	if err != nil {
		return core.ErrIO(core.CodeLedgerAppend, "opening ledger").WithCause(err)
	}
	if _, err := f.WriteString(FormatLine(ev) + "\n"); err != nil {
		_ = f.Close()
		return core.ErrIO(core.CodeLedgerAppend, "writing ledger").WithCause(err)
	}
	if err := f.Close(); err != nil {
		return core.ErrIO(core.CodeLedgerAppend, "closing ledger").WithCause(err)
	}

	return s.trim()
}

// trim rewrites the file atomically when it holds more than maxEntries lines.
func (s *FileStore) trim() error {
	lines, err := s.readLines()
	if err != nil {
		return core.ErrIO(core.CodeLedgerTrim, "reading ledger for trim").WithCause(err)
	}
	if len(lines) <= s.maxEntries {
		return nil
	}

	kept := lines[len(lines)-s.maxEntries:]
	data := strings.Join(kept, "\n") + "\n"
	if err := fsutil.WriteFileAtomic(s.path, []byte(data), 0o600); err != nil {
		return core.ErrIO(core.CodeLedgerTrim, "rewriting ledger").WithCause(err)
	}
	s.logger.Debug("crash ledger trimmed", "dropped", len(lines)-len(kept), "kept", len(kept))
	return nil
}

// RecentCount counts events stamped strictly after now-window. A missing file counts as zero.
func (s *FileStore) RecentCount(ctx context.Context, window time.Duration, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	lines, err := s.readLines()
	s.mu.Unlock()
	if err != nil {
		return 0, core.ErrIO(core.CodeLedgerRead, "reading ledger").WithCause(err)
	}
	return countSince(lines, now.Add(-window)), nil
}

// Tail returns up to the last n lines in insertion order.
func (s *FileStore) Tail(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	lines, err := s.readLines()
	s.mu.Unlock()
	if err != nil {
		return nil, core.ErrIO(core.CodeLedgerRead, "reading ledger").WithCause(err)
	}
	return lastN(lines, n), nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}

// readLines returns the non-empty lines of the ledger, or nil when the file does not exist.
func (s *FileStore) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", s.path, err)
	}

	raw := strings.Split(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines, nil
}
