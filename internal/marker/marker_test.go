package marker

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

var testRuntime = core.RuntimeInfo{Name: "Go", Vendor: "gc", Version: "go1.24.2"}

func fixedClock() time.Time {
	return time.Date(2026, 5, 4, 9, 30, 15, 0, time.Local)
}

func TestMarker_RoundTrip(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "running.marker")
	m := New(path, testRuntime, WithClock(fixedClock), WithPID(4242))

	if m.Exists() {
		t.Fatal("marker should not exist before Start")
	}

	h := m.Start()
	if !m.Exists() {
		t.Fatal("marker should exist after Start")
	}
	if !h.Active() {
		t.Fatal("handle should be active")
	}

	h.Release()
	if m.Exists() {
		t.Fatal("marker should be gone after Release")
	}
}

func TestMarker_Content(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "running.marker")
	m := New(path, testRuntime, WithClock(fixedClock), WithPID(4242))
	m.Start()

	got, err := m.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	want := "PID: 4242\nStarted: 2026-05-04 09:30:15\nGo go1.24.2\n"
	if got != want {
		t.Errorf("content = %q, want %q", got, want)
	}
}

func TestMarker_StartTruncatesPrevious(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "running.marker")
	if err := os.WriteFile(path, []byte(strings.Repeat("stale\n", 100)), 0o600); err != nil {
		t.Fatal(err)
	}

	m := New(path, testRuntime, WithClock(fixedClock), WithPID(1))
	m.Start()

	got, err := m.Read()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(got, "stale") {
		t.Errorf("old content survived: %q", got)
	}
}

func TestMarker_StartFailureReturnsNoopHandle(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	if err := os.WriteFile(blocker, []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}
	// Parent is a regular file, so the marker cannot be created.
	m := New(filepath.Join(blocker, "running.marker"), testRuntime)

	h := m.Start()
	if h == nil {
		t.Fatal("Start must always return a handle")
	}
	if h.Active() {
		t.Error("handle should be inactive after failed write")
	}
	h.Release()
}

func TestHandle_ReleaseIdempotent(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "running.marker")
	m := New(path, testRuntime)
	h := m.Start()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Release()
		}()
	}
	wg.Wait()

	if m.Exists() {
		t.Fatal("marker should be removed")
	}

	// A marker recreated after release belongs to a new run and must survive.
	if err := os.WriteFile(path, []byte("new run"), 0o600); err != nil {
		t.Fatal(err)
	}
	h.Release()
	if !m.Exists() {
		t.Fatal("second Release must be a no-op")
	}
}

func TestHandle_ReleaseMissingFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "running.marker")
	h := New(path, testRuntime).Start()
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	h.Release()

	var nilHandle *Handle
	nilHandle.Release()
	(&Handle{}).Release()
}

func TestMarker_ReadMissing(t *testing.T) {
	t.Parallel()
	m := New(filepath.Join(t.TempDir(), "running.marker"), testRuntime)
	if _, err := m.Read(); err == nil {
		t.Fatal("expected error reading missing marker")
	}
}
