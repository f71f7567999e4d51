package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/hugo-lorenzo-mato/crashguard/internal/app"
	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crashguard/internal/logging"
)

var timeNow = time.Now

// appOptions is overridden by tests to stub host probes and dump locations.
var appOptions = func() app.Options { return app.Options{} }

func newLoader() *config.Loader {
	loader := config.NewLoaderWithViper(viper.GetViper())
	if cfgFile != "" {
		loader.WithConfigFile(cfgFile)
	}
	return loader
}

// loadConfig loads and validates the configuration.
func loadConfig(loader *config.Loader) (*config.Config, error) {
	cfg, err := loader.Load()
	if err != nil {
		return nil, err
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func buildInfo() core.BuildInfo {
	return core.BuildInfo{
		Version: appVersion,
		Branch:  appBranch,
		Commit:  appCommit,
		Date:    appDate,
	}
}

func newLogger(cfg *config.Config, w io.Writer) *logging.Logger {
	return logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: w,
	})
}

// openApp loads configuration and wires every component. Logs go to stderr
// so listings on stdout stay machine readable.
func openApp(cmd *cobra.Command) (*app.App, error) {
	cfg, err := loadConfig(newLoader())
	if err != nil {
		return nil, err
	}
	return app.New(cfg, buildInfo(), newLogger(cfg, cmd.ErrOrStderr()), appOptions())
}

// writeStructured encodes v as JSON or YAML when --output asks for it.
// It reports false for table output.
func writeStructured(w io.Writer, v any) (bool, error) {
	switch output {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return true, enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		defer enc.Close()
		return true, enc.Encode(v)
	case "", "table":
		return false, nil
	default:
		return true, fmt.Errorf("unknown output format %q (want table, json or yaml)", output)
	}
}

func recommendationFor(a *app.App) string {
	return diagnostics.Recommend(a.Meta.Runtime().Vendor)
}
