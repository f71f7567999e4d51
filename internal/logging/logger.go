// Package logging wraps log/slog with secret and home-path redaction, a
// colored terminal handler and a level that can change after a config reload.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/term"
)

// Output formats accepted by Config.Format.
const (
	FormatAuto = "auto"
	FormatText = "text"
	FormatJSON = "json"
)

// Logger is a slog.Logger sharing a sanitizer and a mutable level with every
// logger derived from it.
type Logger struct {
	*slog.Logger
	sanitizer *Sanitizer
	level     *slog.LevelVar
}

// Config configures the logger.
type Config struct {
	Level     string
	Format    string
	Output    io.Writer
	AddSource bool
}

// DefaultConfig logs info and above to stderr, colored on terminals.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: FormatAuto,
		Output: os.Stderr,
	}
}

// New creates a logger. A nil Output means stderr.
func New(cfg Config) *Logger {
	if cfg.Output == nil {
		cfg.Output = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(parseLevel(cfg.Level))
	sanitizer := NewSanitizer()

	return &Logger{
		Logger:    slog.New(NewSanitizingHandler(newHandler(cfg, level), sanitizer)),
		sanitizer: sanitizer,
		level:     level,
	}
}

func newHandler(cfg Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level, AddSource: cfg.AddSource}
	switch cfg.Format {
	case FormatJSON:
		return slog.NewJSONHandler(cfg.Output, opts)
	case FormatText:
		return slog.NewTextHandler(cfg.Output, opts)
	}
	if isTerminal(cfg.Output) {
		return NewPrettyHandler(cfg.Output, level)
	}
	return slog.NewJSONHandler(cfg.Output, opts)
}

// NewNop returns a logger that discards everything.
func NewNop() *Logger {
	return &Logger{
		Logger:    slog.New(slog.DiscardHandler),
		sanitizer: NewSanitizer(),
		level:     new(slog.LevelVar),
	}
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func (l *Logger) derive(next *slog.Logger) *Logger {
	return &Logger{Logger: next, sanitizer: l.sanitizer, level: l.level}
}

// WithComponent tags records with the emitting component.
func (l *Logger) WithComponent(component string) *Logger {
	return l.derive(l.Logger.With(ComponentKey, component))
}

// WithPID tags records with the process id under investigation.
func (l *Logger) WithPID(pid string) *Logger {
	return l.derive(l.Logger.With("pid", pid))
}

// With returns a logger with custom fields.
func (l *Logger) With(args ...any) *Logger {
	return l.derive(l.Logger.With(args...))
}

// SetLevel changes the minimum level of this logger and all derived ones.
func (l *Logger) SetLevel(level string) {
	l.level.Set(parseLevel(level))
}

// Level returns the current minimum level.
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// Sanitizer returns the sanitizer used by this logger.
func (l *Logger) Sanitizer() *Sanitizer {
	return l.sanitizer
}

// Sanitize redacts input with the logger's sanitizer.
func (l *Logger) Sanitize(input string) string {
	return l.sanitizer.Sanitize(input)
}
