package config

import (
	"path/filepath"
	"strings"
	"time"
)

// Fixed file and directory names inside the data directory.
const (
	MarkerFileName  = "running.marker"
	LedgerFileName  = "crash-history.log"
	ArchiveDirName  = "crash-reports"
	AlertsFileName  = "alerts.db"
	BadgerDirName   = "crash-ledger"
	DefaultAppName  = "PeerBanHelper"
	DefaultWindow   = 24 * time.Hour
	LedgerBackendFS = "file"
	LedgerBackendKV = "badger"
)

// Config holds all application configuration.
type Config struct {
	App       AppConfig     `mapstructure:"app"`
	DataDir   string        `mapstructure:"data_dir"`
	ConfigDir string        `mapstructure:"config_dir"`
	Log       LogConfig     `mapstructure:"log"`
	Crash     CrashConfig   `mapstructure:"crash"`
	Archive   ArchiveConfig `mapstructure:"archive"`
	Alerts    AlertsConfig  `mapstructure:"alerts"`
	Runtime   RuntimeConfig `mapstructure:"runtime"`
	Server    ServerConfig  `mapstructure:"server"`
	Metrics   MetricsConfig `mapstructure:"metrics"`
}

// AppConfig identifies the monitored application.
type AppConfig struct {
	Name   string `mapstructure:"name"`
	Branch string `mapstructure:"branch"`
}

// LogConfig configures logging behavior.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CrashConfig configures the crash ledger and frequency check.
type CrashConfig struct {
	MaxHistory         int    `mapstructure:"max_history"`
	Window             string `mapstructure:"window"`
	FrequencyThreshold int    `mapstructure:"frequency_threshold"`
	LedgerBackend      string `mapstructure:"ledger_backend"`
	ReportHistoryLines int    `mapstructure:"report_history_lines"`
}

// ArchiveConfig configures crash dump retention.
type ArchiveConfig struct {
	MaxFiles int `mapstructure:"max_files"`
}

// AlertsConfig configures the alert store.
type AlertsConfig struct {
	Locale string `mapstructure:"locale"`
}

// RuntimeConfig overrides the detected runtime descriptor.
// Empty fields fall back to the Go runtime the binary was built with.
type RuntimeConfig struct {
	Name    string `mapstructure:"name"`
	Vendor  string `mapstructure:"vendor"`
	Version string `mapstructure:"version"`
}

// ServerConfig configures the optional HTTP status server.
type ServerConfig struct {
	Enabled     bool     `mapstructure:"enabled"`
	Host        string   `mapstructure:"host"`
	Port        int      `mapstructure:"port"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// MetricsConfig configures the Prometheus textfile export.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// WindowDuration returns the frequency window, falling back to 24h when unset or invalid.
func (c CrashConfig) WindowDuration() time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(c.Window))
	if err != nil || d <= 0 {
		return DefaultWindow
	}
	return d
}

// AppName returns the configured application name.
func (c *Config) AppName() string {
	if strings.TrimSpace(c.App.Name) == "" {
		return DefaultAppName
	}
	return c.App.Name
}

// MarkerPath is the running marker location.
func (c *Config) MarkerPath() string {
	return filepath.Join(c.DataDir, MarkerFileName)
}

// LedgerPath is the file-backed crash ledger location.
func (c *Config) LedgerPath() string {
	return filepath.Join(c.DataDir, LedgerFileName)
}

// BadgerDir is the key-value crash ledger directory.
func (c *Config) BadgerDir() string {
	return filepath.Join(c.DataDir, BadgerDirName)
}

// ArchiveDir is where crash dumps are preserved.
func (c *Config) ArchiveDir() string {
	return filepath.Join(c.DataDir, ArchiveDirName)
}

// AlertsPath is the alert database location.
func (c *Config) AlertsPath() string {
	return filepath.Join(c.DataDir, AlertsFileName)
}
