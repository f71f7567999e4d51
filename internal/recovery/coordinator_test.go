package recovery

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

	"github.com/hugo-lorenzo-mato/crashguard/internal/alerts"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/dumps"
	"github.com/hugo-lorenzo-mato/crashguard/internal/i18n"
	"github.com/hugo-lorenzo-mato/crashguard/internal/ledger"
	"github.com/hugo-lorenzo-mato/crashguard/internal/marker"
	"github.com/hugo-lorenzo-mato/crashguard/internal/testutil"
)

var (
	startup = time.Date(2026, 8, 20, 14, 30, 0, 0, time.Local)
	testRT  = core.RuntimeInfo{Name: "Go", Vendor: "gc", Version: "go1.24.2"}
)

type harness struct {
	env      dumps.Env
	store    *ledger.FileStore
	archive  *dumps.Archiver
	marker   *marker.Marker
	sink     *testutil.MockAlertSink
	deps     Deps
	ledgerFn string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	root := t.TempDir()
	env := dumps.Env{
		DataDir:      filepath.Join(root, "data"),
		LocalAppData: filepath.Join(root, "local", "PeerBanHelper"),
		TempDir:      filepath.Join(root, "tmp"),
		HomeDir:      filepath.Join(root, "home"),
		WorkDir:      filepath.Join(root, "work"),
	}
	for _, dir := range []string{env.DataDir, env.LocalAppData, env.TempDir, env.HomeDir, env.WorkDir} {
		require.NoError(t, os.MkdirAll(dir, 0o750))
	}

	clock := testutil.FixedClock(startup)
	h := &harness{
		env:      env,
		ledgerFn: filepath.Join(env.DataDir, "crash-history.log"),
		sink:     testutil.NewMockAlertSink(),
	}
	h.store = ledger.NewFileStore(h.ledgerFn, ledger.DefaultMaxEntries, nil)
	h.archive = dumps.NewArchiver(filepath.Join(env.DataDir, "crash-reports"), dumps.DefaultMaxFiles, dumps.WithClock(clock))
	h.marker = marker.New(filepath.Join(env.DataDir, "running.marker"), testRT, marker.WithClock(clock), marker.WithPID(999))

	ids := 0
	h.deps = Deps{
		AppName:   "PeerBanHelper",
		Runtime:   testRT,
		Marker:    h.marker,
		Ledger:    h.store,
		Finder:    dumps.NewLocator(env.Resolvers(), nil),
		Archive:   h.archive,
		Escalator: alerts.NewEscalator(h.sink, testutil.MockFormatter{}, "upgrade", alerts.WithClock(clock)),
		Sink:      h.sink,
		Formatter: testutil.MockFormatter{},
		Clock:     clock,
		NewID: func() string {
			ids++
			return fmt.Sprintf("id-%d", ids)
		},
	}
	return h
}

func (h *harness) seed(t *testing.T, ages ...time.Duration) {
	t.Helper()
	for i, age := range ages {
		ev := core.NewCrashEvent(startup.Add(-age), fmt.Sprint(100+i), core.KindRuntimeCrash, testRT)
		require.NoError(t, h.store.Append(context.Background(), ev))
	}
}

func TestRun_RecoveryEndToEnd(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seed(t, 30*time.Hour, 2*time.Hour, 10*time.Minute)

	dump := filepath.Join(h.env.TempDir, "hs_err_pid1234.log")
	require.NoError(t, os.WriteFile(dump, []byte("# fatal error"), 0o600))

	out := New(h.deps).Run(context.Background(), []string{"crashRecovery:1234"})

	assert.Equal(t, ModeRecovery, out.Mode)
	assert.Equal(t, "1234", out.PID)
	assert.Equal(t, dump, out.DumpPath)
	assert.Equal(t, 3, out.RecentCrashes)
	assert.True(t, out.Escalated)

	// Ledger gained exactly one jvm_crash event.
	lines := testutil.ReadLines(t, h.ledgerFn)
	require.Len(t, lines, 4)
	last, err := ledger.ParseLine(lines[3])
	require.NoError(t, err)
	assert.Equal(t, "1234", last.PID)
	assert.Equal(t, core.KindRuntimeCrash, last.Kind)

	// Archive gained one member with the expected name.
	archived, err := h.archive.List()
	require.NoError(t, err)
	require.Len(t, archived, 1)
	assert.Equal(t, "hs_err_pid1234_20260820_143000.log", filepath.Base(archived[0].Path))
	assert.Equal(t, archived[0].Path, out.ArchivedPath)

	// Escalation fired exactly once.
	assert.Len(t, h.sink.PublishedWithPrefix("frequent-crashes-20260820"), 1)

	// Fatal recovery alert with pid, dump path and count.
	recovery := h.sink.PublishedWithPrefix("peerbanhelper-crash-recovery-")
	require.Len(t, recovery, 1)
	a := recovery[0]
	assert.Equal(t, out.AlertID, a.ID)
	assert.Equal(t, "peerbanhelper-crash-recovery-id-1", a.ID)
	assert.Equal(t, core.AlertFatal, a.Level)
	assert.True(t, a.Persistent)
	assert.Equal(t,
		strings.Join([]string{i18n.KeyRecoveryBody, "1234", "2026-08-20 14:30:00", dump, "3"}, "|"),
		a.Body)
}

func TestRun_RecoveryWithoutDump(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out := New(h.deps).Run(context.Background(), []string{"crashRecovery:77"})

	assert.Equal(t, ModeRecovery, out.Mode)
	assert.Equal(t, core.NotAvailable, out.DumpPath)
	assert.Empty(t, out.ArchivedPath)
	assert.Equal(t, 1, out.RecentCrashes)
	assert.False(t, out.Escalated)

	published := h.sink.Published()
	require.Len(t, published, 1)
	assert.Contains(t, published[0].Body, "|77|")
	assert.Contains(t, published[0].Body, "|N/A|")
}

func TestRun_RecoveryIgnoresMarker(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.marker.Start()

	out := New(h.deps).Run(context.Background(), []string{"crashRecovery:5"})

	assert.Equal(t, ModeRecovery, out.Mode)
	assert.Empty(t, h.sink.PublishedWithPrefix("unexpected-shutdown-"))
	assert.Len(t, testutil.ReadLines(t, h.ledgerFn), 1)
}

func TestRun_CleanStartupDoesNothing(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out := New(h.deps).Run(context.Background(), []string{"--port", "9898"})

	assert.Equal(t, ModeClean, out.Mode)
	assert.NoFileExists(t, h.ledgerFn)
	assert.Zero(t, h.sink.CallCount("Publish"))
	assert.Zero(t, h.sink.CallCount("ExistsIncludingRead"))
}

func TestRun_MalformedArgumentFallsBackToMarkerCheck(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	out := New(h.deps).Run(context.Background(), []string{"crashRecovery:1:2"})
	assert.Equal(t, ModeClean, out.Mode)
	assert.Zero(t, h.sink.CallCount("Publish"))
}

func TestRun_UnexpectedShutdown(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.marker.Start()

	out := New(h.deps).Run(context.Background(), nil)

	assert.Equal(t, ModeUnexpectedShutdown, out.Mode)
	assert.Equal(t, core.UnknownPID, out.PID)
	assert.Equal(t, 1, out.RecentCrashes)
	assert.False(t, out.Escalated)

	lines := testutil.ReadLines(t, h.ledgerFn)
	require.Len(t, lines, 1)
	ev, err := ledger.ParseLine(lines[0])
	require.NoError(t, err)
	assert.Equal(t, core.KindUnexpectedShutdown, ev.Kind)
	assert.Equal(t, core.UnknownPID, ev.PID)

	shutdown := h.sink.PublishedWithPrefix("unexpected-shutdown-")
	require.Len(t, shutdown, 1)
	a := shutdown[0]
	assert.Equal(t, core.AlertWarn, a.Level)
	assert.Equal(t, "unexpected-shutdown-id-1", out.AlertID)
	assert.Equal(t,
		i18n.KeyShutdownBody+"|PID: 999\nStarted: 2026-08-20 14:30:00\nGo go1.24.2|2026-08-20 14:30:00",
		a.Body)
}

func TestRun_UnexpectedShutdownEscalates(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.seed(t, time.Hour, 2*time.Hour)
	h.marker.Start()

	out := New(h.deps).Run(context.Background(), nil)
	assert.Equal(t, 3, out.RecentCrashes)
	assert.True(t, out.Escalated)
	assert.Len(t, h.sink.PublishedWithPrefix("frequent-crashes-"), 1)
}

type failingLedger struct{}

func (failingLedger) Append(context.Context, core.CrashEvent) error { return testutil.ErrTest }
func (failingLedger) RecentCount(context.Context, time.Duration, time.Time) (int, error) {
	return 0, testutil.ErrTest
}
func (failingLedger) Tail(context.Context, int) ([]string, error) { return nil, testutil.ErrTest }
func (failingLedger) Close() error {
	return nil
}

type brokenMarker struct{}

func (brokenMarker) Exists() bool          { return true }
func (brokenMarker) Read() (string, error) { return "", testutil.ErrTest }

func TestRun_FailuresDegrade(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.deps.Ledger = failingLedger{}
	h.deps.Marker = brokenMarker{}
	h.sink.WithPublishError(testutil.ErrTest)

	out := New(h.deps).Run(context.Background(), nil)

	assert.Equal(t, ModeUnexpectedShutdown, out.Mode)
	assert.Zero(t, out.RecentCrashes)
	assert.Empty(t, out.AlertID, "failed publish leaves no alert id")
}

func TestRun_MarkerReadFailureUsesNA(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.deps.Marker = brokenMarker{}

	out := New(h.deps).Run(context.Background(), nil)
	require.NotEmpty(t, out.AlertID)
	assert.Contains(t, h.sink.Published()[0].Body, "|N/A|")
}

func TestRun_LocalizedAlert(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.deps.Formatter = i18n.New("en")

	New(h.deps).Run(context.Background(), []string{"crashRecovery:1234"})

	a := h.sink.Published()[0]
	assert.Equal(t, "PeerBanHelper recovered from a crash", a.Title)
	assert.Contains(t, a.Body, "PID 1234")
	assert.Contains(t, a.Body, "Crash dump: N/A")
}

func TestNew_Defaults(t *testing.T) {
	t.Parallel()
	c := New(Deps{})
	assert.Equal(t, 24*time.Hour, c.deps.Window)
	assert.Equal(t, "PeerBanHelper", c.deps.AppName)
	assert.Len(t, c.deps.NewID(), 36)
	assert.NotNil(t, c.deps.Clock)
}
