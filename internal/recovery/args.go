package recovery

import (
	"strings"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// ArgName is the startup argument name a launcher passes after a crash,
// as "crashRecovery:<pid>".
const ArgName = "crashRecovery"

// FormatRecoveryArg builds the argument a launcher passes for pid.
func FormatRecoveryArg(pid string) string {
	return ArgName + ":" + pid
}

// parseRecoveryArg inspects one argument. candidate is false for unrelated
// arguments; err is set for arguments that look like a recovery request but
// are malformed.
func parseRecoveryArg(arg string) (pid string, candidate bool, err error) {
	if !strings.HasPrefix(arg, ArgName) {
		return "", false, nil
	}
	parts := strings.Split(arg, ":")
	if len(parts) != 2 || parts[0] != ArgName {
		return "", true, core.ErrParse(core.CodeBadRecoveryArg, "expected crashRecovery:<pid>").WithDetail("arg", arg)
	}
	pid = strings.TrimSpace(parts[1])
	if pid == "" {
		return "", true, core.ErrParse(core.CodeBadRecoveryArg, "empty pid").WithDetail("arg", arg)
	}
	return pid, true, nil
}

// ParseRecoveryArg returns the pid of the first well-formed recovery
// argument. Malformed ones are skipped.
func ParseRecoveryArg(args []string) (pid string, ok bool) {
	for _, arg := range args {
		if pid, _, err := parseRecoveryArg(arg); err == nil && pid != "" {
			return pid, true
		}
	}
	return "", false
}
