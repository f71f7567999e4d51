package dumps

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/fsutil"
)

// DefaultMaxFiles is the archive retention cap.
const DefaultMaxFiles = 10

const (
	archivePrefix = "hs_err_"
	archiveSuffix = ".log"
)

// ArchivedName returns the archive member name for pid captured at t.
func ArchivedName(pid string, t time.Time) string {
	return fmt.Sprintf("hs_err_pid%s_%s.log", pid, t.Format(core.FileTimeLayout))
}

// Archiver copies crash dumps into a retention-capped directory.
type Archiver struct {
	dir      string
	maxFiles int
	now      core.Clock
	logger   *slog.Logger
}

var _ core.ArchiveStore = (*Archiver)(nil)

// ArchiverOption configures an Archiver.
type ArchiverOption func(*Archiver)

// WithClock sets the clock used for capture timestamps.
func WithClock(clock core.Clock) ArchiverOption {
	return func(a *Archiver) {
		if clock != nil {
			a.now = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) ArchiverOption {
	return func(a *Archiver) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// NewArchiver creates an archiver rooted at dir keeping at most maxFiles members.
func NewArchiver(dir string, maxFiles int, opts ...ArchiverOption) *Archiver {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxFiles
	}
	a := &Archiver{
		dir:      dir,
		maxFiles: maxFiles,
		now:      time.Now,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Dir returns the archive directory.
func (a *Archiver) Dir() string {
	return a.dir
}

// Preserve copies dumpPath into the archive under a timestamped name, then
// applies retention. An existing member with the same name is never overwritten.
func (a *Archiver) Preserve(dumpPath, pid string) (core.ArchivedDump, error) {
	if err := os.MkdirAll(a.dir, 0o750); err != nil && !errors.Is(err, fs.ErrExist) {
		return core.ArchivedDump{}, core.ErrIO(core.CodeArchiveCopy, "creating archive directory").WithCause(err)
	}

	captured := a.now()
	dst := filepath.Join(a.dir, ArchivedName(pid, captured))
	n, err := fsutil.CopyFile(dumpPath, dst, 0o600)
	if err != nil {
		return core.ArchivedDump{}, core.ErrIO(core.CodeArchiveCopy, "copying crash dump").
			WithCause(err).
			WithDetail("source", dumpPath)
	}

	// Retention orders by modification time, so stamp it with the capture time.
	if err := os.Chtimes(dst, captured, captured); err != nil {
		a.logger.Debug("failed to stamp archived dump", "path", dst, "error", err)
	}

	a.logger.Info("crash dump preserved", "pid", pid, "path", dst, "bytes", n)

	if _, err := a.Prune(); err != nil {
		a.logger.Warn("crash dump retention failed", "dir", a.dir, "error", err)
	}

	return core.ArchivedDump{PID: pid, CapturedAt: captured, Path: dst, Size: n}, nil
}

type member struct {
	name string
	info fs.FileInfo
}

// members lists archive files oldest first. A missing directory is empty.
func (a *Archiver) members() ([]member, error) {
	entries, err := os.ReadDir(a.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}

	var out []member
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), archivePrefix) || !strings.HasSuffix(e.Name(), archiveSuffix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, member{name: e.Name(), info: info})
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := out[i].info.ModTime(), out[j].info.ModTime()
		if ti.Equal(tj) {
			return out[i].name < out[j].name
		}
		return ti.Before(tj)
	})
	return out, nil
}

// Prune removes the oldest members beyond maxFiles and returns how many were deleted.
func (a *Archiver) Prune() (int, error) {
	dumps, err := a.members()
	if err != nil {
		return 0, core.ErrIO(core.CodeArchivePrune, "listing archive").WithCause(err)
	}

	removed := 0
	for len(dumps) > a.maxFiles {
		path := filepath.Join(a.dir, dumps[0].name)
		if err := os.Remove(path); err != nil {
			a.logger.Warn("failed to remove old crash dump", "path", path, "error", err)
		} else {
			removed++
			a.logger.Debug("old crash dump removed", "path", path)
		}
		dumps = dumps[1:]
	}
	return removed, nil
}

// List returns archived dumps, newest first.
func (a *Archiver) List() ([]core.ArchivedDump, error) {
	dumps, err := a.members()
	if err != nil {
		return nil, core.ErrIO(core.CodeArchivePrune, "listing archive").WithCause(err)
	}

	out := make([]core.ArchivedDump, 0, len(dumps))
	for i := len(dumps) - 1; i >= 0; i-- {
		m := dumps[i]
		pid, captured, ok := parseArchivedName(m.name)
		if !ok {
			captured = m.info.ModTime()
		}
		out = append(out, core.ArchivedDump{
			PID:        pid,
			CapturedAt: captured,
			Path:       filepath.Join(a.dir, m.name),
			Size:       m.info.Size(),
		})
	}
	return out, nil
}

// parseArchivedName splits hs_err_pid<PID>_<yyyyMMdd_HHmmss>.log.
func parseArchivedName(name string) (pid string, captured time.Time, ok bool) {
	stem, found := strings.CutPrefix(strings.TrimSuffix(name, archiveSuffix), "hs_err_pid")
	if !found || len(stem) < len(core.FileTimeLayout)+2 {
		return "", time.Time{}, false
	}
	cut := len(stem) - len(core.FileTimeLayout)
	if stem[cut-1] != '_' {
		return "", time.Time{}, false
	}
	ts, err := time.ParseInLocation(core.FileTimeLayout, stem[cut:], time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return stem[:cut-1], ts, true
}
