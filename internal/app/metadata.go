package app

import (
	"runtime"
	"strings"

	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// Metadata implements core.MetadataProvider from configuration and build info.
type Metadata struct {
	cfg   *config.Config
	build core.BuildInfo
}

// NewMetadata creates a metadata provider. The branch falls back to app.branch.
func NewMetadata(cfg *config.Config, build core.BuildInfo) *Metadata {
	if strings.TrimSpace(build.Branch) == "" {
		build.Branch = cfg.App.Branch
	}
	return &Metadata{cfg: cfg, build: build}
}

func (m *Metadata) AppName() string { return m.cfg.AppName() }

func (m *Metadata) Build() core.BuildInfo { return m.build }

func (m *Metadata) DataDir() string { return m.cfg.DataDir }

func (m *Metadata) ConfigDir() string { return m.cfg.ConfigDir }

// Runtime returns the configured runtime descriptor. Unset fields describe
// the Go runtime this binary was built with.
func (m *Metadata) Runtime() core.RuntimeInfo {
	rt := core.RuntimeInfo{
		Name:    m.cfg.Runtime.Name,
		Vendor:  m.cfg.Runtime.Vendor,
		Version: m.cfg.Runtime.Version,
	}
	if strings.TrimSpace(rt.Name) == "" {
		rt.Name = "Go"
	}
	if strings.TrimSpace(rt.Vendor) == "" {
		rt.Vendor = runtime.Compiler
	}
	if strings.TrimSpace(rt.Version) == "" {
		rt.Version = runtime.Version()
	}
	return rt
}
