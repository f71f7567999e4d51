// Package dumps finds externally produced crash dumps and keeps a capped
// archive of them.
package dumps

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hugo-lorenzo-mato/crashguard/internal/fsutil"
)

// DumpFileName returns the name the runtime gives a crash dump for pid.
func DumpFileName(pid string) string {
	return "hs_err_pid" + pid + ".log"
}

// Resolver names one candidate directory. Dir returns "" when the location
// is unavailable on this host.
type Resolver struct {
	Name string
	Dir  func() string
}

// Env holds the candidate directories searched for crash dumps.
type Env struct {
	DataDir      string
	LocalAppData string
	TempDir      string
	HomeDir      string
	WorkDir      string
}

// DefaultEnv resolves the candidate directories for the current host.
func DefaultEnv(dataDir, appName string) Env {
	env := Env{
		DataDir: dataDir,
		TempDir: os.TempDir(),
	}
	if base := localAppDataBase(); base != "" {
		env.LocalAppData = filepath.Join(base, appName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		env.HomeDir = home
	}
	if wd, err := os.Getwd(); err == nil {
		env.WorkDir = wd
	}
	return env
}

func localAppDataBase() string {
	if dir := os.Getenv("LOCALAPPDATA"); dir != "" {
		return dir
	}
	if dir, err := os.UserCacheDir(); err == nil {
		return dir
	}
	return ""
}

// Resolvers returns the search order. Earlier entries win:
//
//  1. data directory
//  2. local application data
//  3. system temp directory
//  4. user home directory
//  5. working directory
func (e Env) Resolvers() []Resolver {
	fixed := func(dir string) func() string {
		return func() string { return dir }
	}
	return []Resolver{
		{Name: "data", Dir: fixed(e.DataDir)},
		{Name: "local-app-data", Dir: fixed(e.LocalAppData)},
		{Name: "temp", Dir: fixed(e.TempDir)},
		{Name: "home", Dir: fixed(e.HomeDir)},
		{Name: "workdir", Dir: fixed(e.WorkDir)},
	}
}

// Locator searches an ordered list of directories for a crash dump.
type Locator struct {
	resolvers []Resolver
	logger    *slog.Logger
}

// NewLocator creates a locator over resolvers, searched in order.
func NewLocator(resolvers []Resolver, logger *slog.Logger) *Locator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Locator{resolvers: resolvers, logger: logger}
}

// Candidates lists every path Find would check for pid, in order.
func (l *Locator) Candidates(pid string) []string {
	if !validPID(pid) {
		return nil
	}
	name := DumpFileName(pid)
	var paths []string
	for _, r := range l.resolvers {
		dir := r.Dir()
		if dir == "" {
			continue
		}
		paths = append(paths, filepath.Join(dir, name))
	}
	return paths
}

// Find returns the first existing dump for pid. Absence is reported with
// found=false and is not an error.
func (l *Locator) Find(pid string) (path string, found bool) {
	for _, candidate := range l.Candidates(pid) {
		if fsutil.FileExists(candidate) {
			l.logger.Debug("crash dump found", "pid", pid, "path", candidate)
			return candidate, true
		}
	}
	l.logger.Debug("crash dump not found", "pid", pid)
	return "", false
}

// validPID rejects pids that would escape the candidate directory.
func validPID(pid string) bool {
	return pid != "" && !strings.ContainsAny(pid, `/\`) && !strings.Contains(pid, "..")
}
