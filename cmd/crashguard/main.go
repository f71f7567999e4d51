package main

import (
	"os"

	"github.com/hugo-lorenzo-mato/crashguard/cmd/crashguard/cmd"
)

// Version information - set by goreleaser at build time
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	branch  = ""
)

func main() {
	cmd.SetVersion(version, commit, date, branch)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
