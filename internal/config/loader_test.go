package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoader_Defaults(t *testing.T) {
	loader := NewLoader()
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
	if cfg.Log.Format != "auto" {
		t.Errorf("Log.Format = %q, want %q", cfg.Log.Format, "auto")
	}
	if cfg.AppName() != "PeerBanHelper" {
		t.Errorf("AppName() = %q", cfg.AppName())
	}
	if filepath.Base(cfg.DataDir) != "data" || !filepath.IsAbs(cfg.DataDir) {
		t.Errorf("DataDir = %q, want absolute path ending in data", cfg.DataDir)
	}
	if cfg.Crash.MaxHistory != 50 {
		t.Errorf("Crash.MaxHistory = %d, want 50", cfg.Crash.MaxHistory)
	}
	if cfg.Crash.FrequencyThreshold != 3 {
		t.Errorf("Crash.FrequencyThreshold = %d, want 3", cfg.Crash.FrequencyThreshold)
	}
	if cfg.Crash.WindowDuration() != 24*time.Hour {
		t.Errorf("Crash.WindowDuration() = %v, want 24h", cfg.Crash.WindowDuration())
	}
	if cfg.Crash.LedgerBackend != LedgerBackendFS {
		t.Errorf("Crash.LedgerBackend = %q", cfg.Crash.LedgerBackend)
	}
	if cfg.Archive.MaxFiles != 10 {
		t.Errorf("Archive.MaxFiles = %d, want 10", cfg.Archive.MaxFiles)
	}
	if err := Validate(cfg); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestLoader_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crashguard.yaml")
	content := `
data_dir: ` + filepath.Join(dir, "pbh-data") + `
log:
  level: debug
crash:
  max_history: 20
  ledger_backend: badger
archive:
  max_files: 3
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	loader := NewLoader().WithConfigFile(path)
	cfg, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level = %q, want debug", cfg.Log.Level)
	}
	if cfg.Crash.MaxHistory != 20 {
		t.Errorf("Crash.MaxHistory = %d, want 20", cfg.Crash.MaxHistory)
	}
	if cfg.Crash.LedgerBackend != LedgerBackendKV {
		t.Errorf("Crash.LedgerBackend = %q, want badger", cfg.Crash.LedgerBackend)
	}
	if cfg.Archive.MaxFiles != 3 {
		t.Errorf("Archive.MaxFiles = %d, want 3", cfg.Archive.MaxFiles)
	}
	// Untouched keys keep their defaults
	if cfg.Crash.FrequencyThreshold != 3 {
		t.Errorf("Crash.FrequencyThreshold = %d, want 3", cfg.Crash.FrequencyThreshold)
	}
	if loader.ConfigFile() != path {
		t.Errorf("ConfigFile() = %q, want %q", loader.ConfigFile(), path)
	}
	if cfg.LedgerPath() != filepath.Join(dir, "pbh-data", "crash-history.log") {
		t.Errorf("LedgerPath() = %q", cfg.LedgerPath())
	}
}

func TestLoader_EnvOverride(t *testing.T) {
	t.Setenv("CRASHGUARD_CRASH_FREQUENCY_THRESHOLD", "5")
	t.Setenv("CRASHGUARD_APP_NAME", "MyService")

	cfg, err := NewLoader().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crash.FrequencyThreshold != 5 {
		t.Errorf("Crash.FrequencyThreshold = %d, want 5", cfg.Crash.FrequencyThreshold)
	}
	if cfg.AppName() != "MyService" {
		t.Errorf("AppName() = %q, want MyService", cfg.AppName())
	}
}

func TestLoader_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crashguard.yaml")
	if err := os.WriteFile(path, []byte("crash: [unclosed"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := NewLoader().WithConfigFile(path).Load(); err == nil {
		t.Fatal("expected error for malformed config")
	}
}

func TestConfig_Paths(t *testing.T) {
	t.Parallel()
	cfg := &Config{DataDir: filepath.FromSlash("/srv/pbh")}

	tests := map[string]string{
		cfg.MarkerPath(): filepath.FromSlash("/srv/pbh/running.marker"),
		cfg.LedgerPath(): filepath.FromSlash("/srv/pbh/crash-history.log"),
		cfg.ArchiveDir(): filepath.FromSlash("/srv/pbh/crash-reports"),
		cfg.AlertsPath(): filepath.FromSlash("/srv/pbh/alerts.db"),
		cfg.BadgerDir():  filepath.FromSlash("/srv/pbh/crash-ledger"),
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("path = %q, want %q", got, want)
		}
	}
}

func TestCrashConfig_WindowDurationFallback(t *testing.T) {
	t.Parallel()
	for _, w := range []string{"", "soon", "-1h", "0s"} {
		if got := (CrashConfig{Window: w}).WindowDuration(); got != DefaultWindow {
			t.Errorf("WindowDuration(%q) = %v, want %v", w, got, DefaultWindow)
		}
	}
	if got := (CrashConfig{Window: "6h"}).WindowDuration(); got != 6*time.Hour {
		t.Errorf("WindowDuration(6h) = %v", got)
	}
}
