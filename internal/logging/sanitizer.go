package logging

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

// Sanitizer redacts credentials and the user's home directory from text that
// may end up in shared crash reports or issue trackers.
type Sanitizer struct {
	patterns []*regexp.Regexp
	redacted string
	home     string
}

// NewSanitizer creates a sanitizer with default patterns and the current
// user's home directory.
func NewSanitizer() *Sanitizer {
	home, _ := os.UserHomeDir()
	s := &Sanitizer{
		patterns: defaultPatterns(),
		redacted: "[REDACTED]",
	}
	s.SetHomeDir(home)
	return s
}

func defaultPatterns() []*regexp.Regexp {
	patterns := []string{
		// GitHub tokens (crash reports are often pasted into issues)
		`gh[pousr]_[A-Za-z0-9]{36}`,
		`AKIA[0-9A-Z]{16}`,
		`xox[baprs]-[0-9a-zA-Z-]{10,}`,
		`(?i)bearer\s+[a-zA-Z0-9._-]{20,}`,
		`(?i)api[_-]?key["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)secret["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		`(?i)password["'\s:=]+[^\s"']{8,}`,
		`(?i)token["'\s:=]+[a-zA-Z0-9_-]{20,}`,
		// Download client credentials embedded in URLs
		`(?i)://[^/\s:@]+:[^/\s@]+@`,
	}

	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// SetHomeDir sets the directory replaced by "~". Roots and empty values
// disable the replacement.
func (s *Sanitizer) SetHomeDir(home string) {
	home = filepath.Clean(home)
	if home == "." || home == string(filepath.Separator) || filepath.Dir(home) == home {
		s.home = ""
		return
	}
	s.home = home
}

// Sanitize redacts sensitive information from a string.
func (s *Sanitizer) Sanitize(input string) string {
	out := input
	for _, re := range s.patterns {
		out = re.ReplaceAllString(out, s.redacted)
	}
	if s.home != "" {
		out = strings.ReplaceAll(out, s.home, "~")
	}
	return out
}

// SanitizeMap redacts string values in m, descending into nested maps.
func (s *Sanitizer) SanitizeMap(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		switch val := v.(type) {
		case string:
			out[k] = s.Sanitize(val)
		case map[string]interface{}:
			out[k] = s.SanitizeMap(val)
		default:
			out[k] = v
		}
	}
	return out
}

// AddPattern adds a custom pattern.
func (s *Sanitizer) AddPattern(pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	s.patterns = append(s.patterns, re)
	return nil
}

// SetRedactedPlaceholder sets the placeholder text for redacted content.
func (s *Sanitizer) SetRedactedPlaceholder(placeholder string) {
	s.redacted = placeholder
}
