package ledger

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

var baseTime = time.Date(2026, 6, 10, 12, 0, 0, 0, time.Local)

// backends runs fn against each ledger implementation.
func backends(t *testing.T, fn func(t *testing.T, store core.EventStore)) {
	t.Helper()

	t.Run("file", func(t *testing.T) {
		t.Parallel()
		store := NewFileStore(filepath.Join(t.TempDir(), "crash-history.log"), DefaultMaxEntries, nil)
		fn(t, store)
	})

	t.Run("badger", func(t *testing.T) {
		t.Parallel()
		store, err := OpenBadger(InMemoryBadgerConfig())
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		fn(t, store)
	})
}

func event(ts time.Time, pid string) core.CrashEvent {
	return core.CrashEvent{Timestamp: ts, PID: pid, Kind: core.KindRuntimeCrash, Runtime: "Go go1.24.2"}
}

func TestStore_BoundedAppend(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store core.EventStore) {
		ctx := context.Background()
		const total = 73

		for i := 1; i <= total; i++ {
			require.NoError(t, store.Append(ctx, event(baseTime.Add(time.Duration(i)*time.Second), fmt.Sprint(i))))

			lines, err := store.Tail(ctx, 1000)
			require.NoError(t, err)
			require.LessOrEqual(t, len(lines), DefaultMaxEntries, "after append %d", i)
		}

		lines, err := store.Tail(ctx, 1000)
		require.NoError(t, err)
		require.Len(t, lines, DefaultMaxEntries)

		for idx, line := range lines {
			ev, err := ParseLine(line)
			require.NoError(t, err)
			assert.Equal(t, fmt.Sprint(total-DefaultMaxEntries+idx+1), ev.PID, "line %d out of order", idx)
		}
	})
}

func TestStore_RecentCountWindowEdges(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store core.EventStore) {
		ctx := context.Background()
		now := baseTime

		require.NoError(t, store.Append(ctx, event(now.Add(-24*time.Hour-time.Second), "outside")))
		require.NoError(t, store.Append(ctx, event(now.Add(-24*time.Hour), "boundary")))
		require.NoError(t, store.Append(ctx, event(now.Add(-24*time.Hour+time.Second), "inside")))
		require.NoError(t, store.Append(ctx, event(now.Add(-time.Minute), "recent")))

		count, err := store.RecentCount(ctx, 24*time.Hour, now)
		require.NoError(t, err)
		assert.Equal(t, 2, count, "only events strictly after now-24h count")
	})
}

func TestStore_RecomputedPerCall(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store core.EventStore) {
		ctx := context.Background()

		count, err := store.RecentCount(ctx, 24*time.Hour, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 0, count)

		require.NoError(t, store.Append(ctx, event(baseTime.Add(-time.Hour), "1")))
		count, err = store.RecentCount(ctx, 24*time.Hour, baseTime)
		require.NoError(t, err)
		assert.Equal(t, 1, count)

		// Same ledger, later "now": the event ages out.
		count, err = store.RecentCount(ctx, 24*time.Hour, baseTime.Add(24*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, count)
	})
}

func TestStore_Tail(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store core.EventStore) {
		ctx := context.Background()
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Append(ctx, event(baseTime.Add(time.Duration(i)*time.Minute), fmt.Sprint(i))))
		}

		lines, err := store.Tail(ctx, 2)
		require.NoError(t, err)
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "PID: 3,")
		assert.Contains(t, lines[1], "PID: 4,")
	})
}

func TestStore_CanceledContext(t *testing.T) {
	t.Parallel()
	backends(t, func(t *testing.T, store core.EventStore) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		assert.Error(t, store.Append(ctx, event(baseTime, "1")))
		_, err := store.RecentCount(ctx, time.Hour, baseTime)
		assert.Error(t, err)
		_, err = store.Tail(ctx, 1)
		assert.Error(t, err)
	})
}

func TestFileStore_MissingFile(t *testing.T) {
	t.Parallel()
	store := NewFileStore(filepath.Join(t.TempDir(), "nested", "crash-history.log"), 0, nil)
	ctx := context.Background()

	count, err := store.RecentCount(ctx, 24*time.Hour, baseTime)
	require.NoError(t, err)
	assert.Zero(t, count)

	lines, err := store.Tail(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, lines)

	require.NoError(t, store.Append(ctx, event(baseTime, "9")))
	assert.FileExists(t, store.Path())
}

func TestFileStore_SkipsGarbageLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crash-history.log")
	content := strings.Join([]string{
		"garbage without timestamp",
		"[not a time] PID: 1, Type: jvm_crash, Runtime: x",
		FormatLine(event(baseTime.Add(-time.Hour), "7")),
		"",
	}, "\n")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	store := NewFileStore(path, 0, nil)
	count, err := store.RecentCount(context.Background(), 24*time.Hour, baseTime)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestFileStore_AppendKeepsExistingLines(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "crash-history.log")
	store := NewFileStore(path, 3, nil)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		require.NoError(t, store.Append(ctx, event(baseTime, fmt.Sprint(i))))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "PID: 1,")
	assert.True(t, strings.HasSuffix(string(data), "\n"))
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	cfg := DefaultBadgerConfig(dir)
	cfg.SyncWrites = false
	cfg.MaxEntries = 2

	store, err := OpenBadger(cfg)
	require.NoError(t, err)
	require.NoError(t, store.Append(ctx, event(baseTime, "1")))
	require.NoError(t, store.Append(ctx, event(baseTime, "2")))
	require.NoError(t, store.Close())

	store, err = OpenBadger(cfg)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Append(ctx, event(baseTime, "3")))
	lines, err := store.Tail(ctx, 10)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "PID: 2,")
	assert.Contains(t, lines[1], "PID: 3,")
}

func TestOpenBadger_RequiresPath(t *testing.T) {
	t.Parallel()
	_, err := OpenBadger(BadgerConfig{})
	require.Error(t, err)
}

func TestOpen_SelectsBackend(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := &config.Config{DataDir: dir, Crash: config.CrashConfig{MaxHistory: 50}}

	cfg.Crash.LedgerBackend = config.LedgerBackendFS
	store, err := Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, store)

	cfg.Crash.LedgerBackend = config.LedgerBackendKV
	store, err = Open(cfg, nil)
	require.NoError(t, err)
	assert.IsType(t, &BadgerStore{}, store)
	require.NoError(t, store.Close())
	assert.DirExists(t, filepath.Join(dir, config.BadgerDirName))

	cfg.Crash.LedgerBackend = "etcd"
	_, err = Open(cfg, nil)
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatValidation))
}
