package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Value   interface{}
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation: %s: %s (got: %v)", e.Field, e.Message, e.Value)
}

// ValidationErrors collects multiple validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	var msgs []string
	for _, err := range e {
		msgs = append(msgs, err.Error())
	}
	return strings.Join(msgs, "; ")
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validator validates configuration.
type Validator struct {
	errors ValidationErrors
}

// NewValidator creates a new validator.
func NewValidator() *Validator {
	return &Validator{
		errors: make(ValidationErrors, 0),
	}
}

// Validate validates the entire configuration.
func (v *Validator) Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.DataDir) == "" {
		v.addError("data_dir", cfg.DataDir, "must not be empty")
	}
	if strings.ContainsAny(cfg.App.Name, `/\:`) {
		v.addError("app.name", cfg.App.Name, "must not contain path separators")
	}
	v.validateLog(&cfg.Log)
	v.validateCrash(&cfg.Crash)
	v.validateArchive(&cfg.Archive)
	v.validateAlerts(&cfg.Alerts)
	v.validateServer(&cfg.Server)

	if len(v.errors) > 0 {
		return v.errors
	}
	return nil
}

// Errors returns the collected validation errors.
func (v *Validator) Errors() ValidationErrors {
	return v.errors
}

func (v *Validator) addError(field string, value interface{}, msg string) {
	v.errors = append(v.errors, ValidationError{
		Field:   field,
		Value:   value,
		Message: msg,
	})
}

func (v *Validator) validateLog(cfg *LogConfig) {
	switch cfg.Level {
	case "debug", "info", "warn", "error":
	default:
		v.addError("log.level", cfg.Level, "must be one of: debug, info, warn, error")
	}
	switch cfg.Format {
	case "auto", "text", "json":
	default:
		v.addError("log.format", cfg.Format, "must be one of: auto, text, json")
	}
}

func (v *Validator) validateCrash(cfg *CrashConfig) {
	if cfg.MaxHistory <= 0 {
		v.addError("crash.max_history", cfg.MaxHistory, "must be positive")
	}
	if d, err := time.ParseDuration(cfg.Window); err != nil || d <= 0 {
		v.addError("crash.window", cfg.Window, "must be a positive duration")
	}
	if cfg.FrequencyThreshold <= 0 {
		v.addError("crash.frequency_threshold", cfg.FrequencyThreshold, "must be positive")
	}
	switch cfg.LedgerBackend {
	case LedgerBackendFS, LedgerBackendKV:
	default:
		v.addError("crash.ledger_backend", cfg.LedgerBackend, "must be one of: file, badger")
	}
	if cfg.ReportHistoryLines < 0 {
		v.addError("crash.report_history_lines", cfg.ReportHistoryLines, "must not be negative")
	}
}

func (v *Validator) validateArchive(cfg *ArchiveConfig) {
	if cfg.MaxFiles <= 0 {
		v.addError("archive.max_files", cfg.MaxFiles, "must be positive")
	}
}

func (v *Validator) validateAlerts(cfg *AlertsConfig) {
	if _, err := language.Parse(cfg.Locale); err != nil {
		v.addError("alerts.locale", cfg.Locale, "must be a BCP 47 language tag")
	}
}

func (v *Validator) validateServer(cfg *ServerConfig) {
	if !cfg.Enabled {
		return
	}
	if cfg.Port <= 0 || cfg.Port > 65535 {
		v.addError("server.port", cfg.Port, "must be between 1 and 65535")
	}
}

// Validate is a convenience wrapper around Validator.
func Validate(cfg *Config) error {
	return NewValidator().Validate(cfg)
}
