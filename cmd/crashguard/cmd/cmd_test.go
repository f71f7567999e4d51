package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hugo-lorenzo-mato/crashguard/internal/clip"
	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

func leaveMarker(t *testing.T, dataDir string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, config.MarkerFileName),
		[]byte("PID: 31337\nStarted: 2026-06-10 07:00:00\nGo go1.24.2\n"), 0o644))
}

func TestExecute_Help(t *testing.T) {
	out, err := runCLI(t, t.TempDir(), "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "crashRecovery:<pid>")
}

func TestVersion(t *testing.T) {
	SetVersion("v9.9.9", "deadbee", "2026-06-01", "main")
	t.Cleanup(func() { SetVersion("", "", "", "") })

	out, err := runCLI(t, t.TempDir(), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "crashguard v9.9.9")
	assert.Contains(t, out, "commit: deadbee")
	assert.Contains(t, out, "branch: main")
	assert.Equal(t, "v9.9.9", GetVersion())
}

func TestServe_CleanStartReleasesMarker(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, "Clean start")
	assert.NoFileExists(t, filepath.Join(dir, config.MarkerFileName))
}

func TestServe_UnexpectedShutdown(t *testing.T) {
	dir := t.TempDir()
	leaveMarker(t, dir)

	out, err := runCLI(t, dir, "serve")
	require.NoError(t, err)
	assert.Contains(t, out, "Previous run shut down unexpectedly (crashes in window: 1)")

	out, err = runCLI(t, dir, "alerts", "list", "-o", "json")
	require.NoError(t, err)
	var list []core.Alert
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.True(t, strings.HasPrefix(list[0].ID, "unexpected-shutdown-"))
	assert.Contains(t, list[0].Body, "PID: 31337")
}

func TestServe_RecoveryArchivesDump(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hs_err_pid555.log"), []byte("dump"), 0o644))

	out, err := runCLI(t, dir, "serve", "crashRecovery:555")
	require.NoError(t, err)
	assert.Contains(t, out, "Recovered from crash of PID 555")
	assert.Contains(t, out, "archived:")

	out, err = runCLI(t, dir, "archive", "list", "-o", "json")
	require.NoError(t, err)
	var dumps []core.ArchivedDump
	require.NoError(t, json.Unmarshal([]byte(out), &dumps))
	require.Len(t, dumps, 1)
	assert.Equal(t, "555", dumps[0].PID)

	out, err = runCLI(t, dir, "archive", "prune")
	require.NoError(t, err)
	assert.Contains(t, out, "Removed 0 archived dump(s)")
}

func TestServe_EscalatesOnThirdCrash(t *testing.T) {
	dir := t.TempDir()

	var out string
	var err error
	for _, pid := range []string{"1", "2", "3"} {
		out, err = runCLI(t, dir, "serve", "crashRecovery:"+pid)
		require.NoError(t, err)
	}
	assert.Contains(t, out, "Frequent crashes detected")

	out, err = runCLI(t, dir, "status", "-o", "json")
	require.NoError(t, err)
	var v StatusView
	require.NoError(t, json.Unmarshal([]byte(out), &v))
	assert.Equal(t, 3, v.RecentCrashes)
	assert.Equal(t, 3, v.LedgerEntries)
	assert.Equal(t, 3, v.Threshold)
	assert.False(t, v.MarkerPresent)
	assert.Equal(t, 4, v.UnreadAlerts, "three recovery alerts plus one frequent-crash alert")
}

func TestHistory(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No crashes recorded")

	_, err = runCLI(t, dir, "serve", "crashRecovery:42")
	require.NoError(t, err)

	out, err = runCLI(t, dir, "history", "-o", "json")
	require.NoError(t, err)
	var events []core.CrashEvent
	require.NoError(t, json.Unmarshal([]byte(out), &events))
	require.Len(t, events, 1)
	assert.Equal(t, "42", events[0].PID)
	assert.Equal(t, core.KindRuntimeCrash, events[0].Kind)

	out, err = runCLI(t, dir, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "jvm_crash")

	_, err = runCLI(t, dir, "history", "-n", "0")
	require.Error(t, err)
}

func TestAlerts_ReadMarksAlert(t *testing.T) {
	dir := t.TempDir()
	leaveMarker(t, dir)
	_, err := runCLI(t, dir, "serve")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "alerts", "list", "-o", "json")
	require.NoError(t, err)
	var list []core.Alert
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)

	out, err = runCLI(t, dir, "alerts", "read", list[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Marked "+list[0].ID+" as read")

	out, err = runCLI(t, dir, "alerts", "list", "--unread")
	require.NoError(t, err)
	assert.Contains(t, out, "No alerts")

	_, err = runCLI(t, dir, "alerts", "read", "does-not-exist")
	require.Error(t, err)
	assert.True(t, core.IsCategory(err, core.ErrCatNotFound))
}

func TestReport(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "serve", "crashRecovery:7")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "report")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# PeerBanHelper Crash Report\n"))
	assert.Contains(t, out, "**Recent Crashes (24h):** 1")
	assert.Contains(t, out, "## Recent Crash History")

	out, err = runCLI(t, dir, "report", "--export")
	require.NoError(t, err)
	assert.Contains(t, out, "Crash summary exported to ")
	matches, err := filepath.Glob(filepath.Join(dir, "crash-summary-*.md"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestReport_CopyFallsBackToFile(t *testing.T) {
	dir := t.TempDir()
	tmp := t.TempDir()
	newCopier = offlineCopier(tmp)
	t.Cleanup(func() { newCopier = clip.NewCopier })

	_, err := runCLI(t, dir, "report", "--copy")
	require.NoError(t, err)

	matches, err := filepath.Glob(filepath.Join(tmp, "crashguard-report-*.md"))
	require.NoError(t, err)
	assert.Len(t, matches, 1)
}

func TestMetrics(t *testing.T) {
	dir := t.TempDir()
	_, err := runCLI(t, dir, "serve", "crashRecovery:8")
	require.NoError(t, err)

	out, err := runCLI(t, dir, "metrics")
	require.NoError(t, err)
	assert.Contains(t, out, "crashguard_recent_crashes 1")
	assert.Contains(t, out, "crashguard_ledger_entries 1")

	textfile := filepath.Join(t.TempDir(), "crashguard.prom")
	out, err = runCLI(t, dir, "metrics", "--textfile", textfile)
	require.NoError(t, err)
	assert.Contains(t, out, "Metrics written to")
	assert.FileExists(t, textfile)
}

func TestInit(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, t.TempDir(), "init", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "crashguard.yaml")

	data, err := os.ReadFile(filepath.Join(dir, "crashguard.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.DefaultConfigYAML, string(data))

	_, err = runCLI(t, t.TempDir(), "init", dir)
	require.Error(t, err)

	_, err = runCLI(t, t.TempDir(), "init", dir, "--force")
	require.NoError(t, err)
}

func TestStatus_Table(t *testing.T) {
	dir := t.TempDir()

	out, err := runCLI(t, dir, "status")
	require.NoError(t, err)
	assert.Contains(t, out, "PeerBanHelper crash status")
	assert.Contains(t, out, "0 in 24h0m0s (threshold 3)")
}

func TestOutputFormat_Unknown(t *testing.T) {
	_, err := runCLI(t, t.TempDir(), "history", "-o", "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown output format")
}
