// Package ledger implements the bounded crash ledger.
//
// Each crash event is one line:
//
//	[2006-01-02 15:04:05] PID: <pid>, Type: <kind>, Runtime: <descriptor>
//
// Two backends share the format: a plain text file and an embedded
// badger database. Both keep at most MaxEntries records and evict the
// oldest first.
package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// DefaultMaxEntries is the ledger size cap.
const DefaultMaxEntries = 50

// FormatLine serializes an event as a single ledger line without a trailing newline.
func FormatLine(ev core.CrashEvent) string {
	pid := ev.PID
	if strings.TrimSpace(pid) == "" {
		pid = core.UnknownPID
	}
	return fmt.Sprintf("[%s] PID: %s, Type: %s, Runtime: %s",
		ev.Timestamp.Format(core.LedgerTimeLayout), pid, ev.Kind, ev.Runtime)
}

// ParseTimestamp extracts the leading [timestamp] of a line, read as local wall-clock time.
func ParseTimestamp(line string) (time.Time, error) {
	if !strings.HasPrefix(line, "[") {
		return time.Time{}, core.ErrParse(core.CodeBadTimestamp, "line does not start with '['")
	}
	end := strings.IndexByte(line, ']')
	if end < 0 {
		return time.Time{}, core.ErrParse(core.CodeBadTimestamp, "unterminated timestamp")
	}
	ts, err := time.ParseInLocation(core.LedgerTimeLayout, line[1:end], time.Local)
	if err != nil {
		return time.Time{}, core.ErrParse(core.CodeBadTimestamp, "invalid timestamp").WithCause(err)
	}
	return ts, nil
}

// ParseLine decodes a full ledger line.
func ParseLine(line string) (core.CrashEvent, error) {
	ts, err := ParseTimestamp(line)
	if err != nil {
		return core.CrashEvent{}, err
	}
	rest := strings.TrimSpace(line[strings.IndexByte(line, ']')+1:])

	pid, rest, ok := cutField(rest, "PID: ")
	if !ok {
		return core.CrashEvent{}, badLine(line, "missing PID")
	}
	kind, rest, ok := cutField(rest, "Type: ")
	if !ok {
		return core.CrashEvent{}, badLine(line, "missing Type")
	}
	runtime, ok := strings.CutPrefix(rest, "Runtime: ")
	if !ok {
		return core.CrashEvent{}, badLine(line, "missing Runtime")
	}

	return core.CrashEvent{
		Timestamp: ts,
		PID:       pid,
		Kind:      core.CrashKind(kind),
		Runtime:   runtime,
	}, nil
}

// cutField reads "<prefix><value>, " from s and returns value and the remainder.
func cutField(s, prefix string) (value, rest string, ok bool) {
	s, ok = strings.CutPrefix(s, prefix)
	if !ok {
		return "", "", false
	}
	value, rest, ok = strings.Cut(s, ", ")
	return value, rest, ok
}

func badLine(line, msg string) error {
	return core.ErrParse(core.CodeBadLedgerLine, msg).WithDetail("line", line)
}

// countSince counts lines whose timestamp is strictly after cutoff.
// Lines without a parsable timestamp are skipped.
func countSince(lines []string, cutoff time.Time) int {
	count := 0
	for _, line := range lines {
		ts, err := ParseTimestamp(line)
		if err != nil {
			continue
		}
		if ts.After(cutoff) {
			count++
		}
	}
	return count
}

// lastN returns up to the last n elements of lines.
func lastN(lines []string, n int) []string {
	if n <= 0 {
		return nil
	}
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	out := make([]string, len(lines))
	copy(out, lines)
	return out
}
