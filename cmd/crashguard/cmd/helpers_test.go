package cmd

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/hugo-lorenzo-mato/crashguard/internal/app"
	"github.com/hugo-lorenzo-mato/crashguard/internal/clip"
	"github.com/hugo-lorenzo-mato/crashguard/internal/diagnostics"
	"github.com/hugo-lorenzo-mato/crashguard/internal/dumps"
)

// runCLI executes the root command against dataDir with a canceled context,
// so serve returns right after its startup work.
func runCLI(t *testing.T, dataDir string, args ...string) (string, error) {
	t.Helper()

	cfgFile = ""
	output = "table"
	historyLimit = 20
	alertsUnread = false
	alertsBody = false
	reportExport, reportRender, reportCopy, reportPlain = false, false, false, false
	metricsTextfile = ""
	initForce = false
	serveHTTP = false

	env := dumps.Env{DataDir: dataDir}
	appOptions = func() app.Options {
		return app.Options{Env: &env, Probes: &diagnostics.Probes{}}
	}
	t.Cleanup(func() { appOptions = func() app.Options { return app.Options{} } })

	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(append([]string{"--data-dir", dataDir, "--log-format", "text", "--log-level", "error"}, args...))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := rootCmd.ExecuteContext(ctx)
	return out.String(), err
}

func offlineCopier(dir string) func() *clip.Copier {
	return func() *clip.Copier {
		return &clip.Copier{
			Native:  func(string) error { return errors.New("no clipboard") },
			IsTTY:   func() bool { return false },
			TempDir: dir,
		}
	}
}
