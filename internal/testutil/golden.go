package testutil

import (
	"regexp"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// NewGoldie returns a goldie instance reading fixtures from testdata/golden.
// Run tests with -update to rewrite fixtures.
func NewGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)
}

// Normalize normalizes output for comparison.
func Normalize(s string) string {
	// Normalize line endings
	s = strings.ReplaceAll(s, "\r\n", "\n")

	// Remove trailing whitespace from lines
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}

	// Remove trailing newlines
	return strings.TrimRight(strings.Join(lines, "\n"), "\n")
}

var (
	timestampPatterns = []*regexp.Regexp{
		regexp.MustCompile(`\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}[^\s]*`), // ISO format with timezone
		regexp.MustCompile(`\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}`),       // Ledger format
		regexp.MustCompile(`\d{8}_\d{6}`),                               // File stamp
	}
	uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

// ScrubTimestamps replaces timestamps with [TIMESTAMP].
func ScrubTimestamps(s string) string {
	result := s
	for _, re := range timestampPatterns {
		result = re.ReplaceAllString(result, "[TIMESTAMP]")
	}
	return result
}

// ScrubPaths replaces basePath with [DATADIR].
func ScrubPaths(s, basePath string) string {
	if basePath == "" {
		return s
	}
	return strings.ReplaceAll(s, basePath, "[DATADIR]")
}

// ScrubUUIDs replaces UUIDs with [UUID].
func ScrubUUIDs(s string) string {
	return uuidPattern.ReplaceAllString(s, "[UUID]")
}

// ScrubAll applies all scrubbing functions.
func ScrubAll(s, basePath string) string {
	result := s
	result = ScrubPaths(result, basePath)
	result = ScrubTimestamps(result)
	result = ScrubUUIDs(result)
	return Normalize(result)
}
