package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. CRASHGUARD_CRASH_WINDOW.
const EnvPrefix = "CRASHGUARD"

// configName is the base name searched for in the config paths.
const configName = "crashguard"

// defaults mirrors DefaultConfigYAML.
var defaults = map[string]any{
	"app.name":                   DefaultAppName,
	"app.branch":                 "",
	"data_dir":                   "data",
	"config_dir":                 filepath.Join("data", "config"),
	"log.level":                  "info",
	"log.format":                 "auto",
	"crash.max_history":          50,
	"crash.window":               "24h",
	"crash.frequency_threshold":  3,
	"crash.ledger_backend":       LedgerBackendFS,
	"crash.report_history_lines": 10,
	"archive.max_files":          10,
	"alerts.locale":              "en",
	"runtime.name":               "",
	"runtime.vendor":             "",
	"runtime.version":            "",
	"server.enabled":             false,
	"server.host":                "localhost",
	"server.port":                9898,
	"server.cors_origins":        []string{},
	"metrics.textfile":           "",
}

// Loader reads configuration from defaults, a YAML file, CRASHGUARD_*
// environment variables and bound flags, in increasing precedence.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader creates a loader with a private viper instance.
func NewLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

// NewLoaderWithViper creates a loader on v, which may carry CLI flag bindings.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// WithConfigFile pins an explicit config file instead of searching.
func (l *Loader) WithConfigFile(path string) *Loader {
	l.configFile = path
	return l
}

// Viper exposes the underlying instance for flag binding and watching.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// Load reads every source and decodes the result. Without an explicit file,
// crashguard.yaml is searched in the working directory and then in
// ~/.config/crashguard; a missing file is not an error.
func (l *Loader) Load() (*Config, error) {
	for key, value := range defaults {
		l.v.SetDefault(key, value)
	}

	l.v.SetEnvPrefix(EnvPrefix)
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.v.AutomaticEnv()

	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	} else {
		l.v.SetConfigName(configName)
		l.v.SetConfigType("yaml")
		l.v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			l.v.AddConfigPath(filepath.Join(home, ".config", configName))
		}
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	return l.Decode()
}

// Decode unmarshals the current viper state without re-reading files, e.g.
// after a change notification. Directories are made absolute.
func (l *Loader) Decode() (*Config, error) {
	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.DataDir = absOrSelf(cfg.DataDir)
	if cfg.ConfigDir != "" {
		cfg.ConfigDir = absOrSelf(cfg.ConfigDir)
	}
	return &cfg, nil
}

func absOrSelf(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// ConfigFile returns the config file actually read, if any.
func (l *Loader) ConfigFile() string {
	return l.v.ConfigFileUsed()
}
