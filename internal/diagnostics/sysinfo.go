package diagnostics

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"sync"

	"github.com/jaypipes/ghw"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"golang.org/x/sync/errgroup"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// Unknown is shown for facts a probe could not determine.
const Unknown = "Unknown"

// GPUInfo describes one graphics adapter.
type GPUInfo struct {
	Name string `json:"name" yaml:"name"`
}

// SystemInfo is a snapshot of the host, runtime and application.
// Byte counts are -1 when unknown.
type SystemInfo struct {
	OS              string           `json:"os" yaml:"os"`
	Platform        string           `json:"platform" yaml:"platform"`
	PlatformVersion string           `json:"platform_version" yaml:"platform_version"`
	KernelVersion   string           `json:"kernel_version" yaml:"kernel_version"`
	Arch            string           `json:"arch" yaml:"arch"`
	Processors      int              `json:"processors" yaml:"processors"`
	CPUModel        string           `json:"cpu_model" yaml:"cpu_model"`
	MemTotal        int64            `json:"mem_total" yaml:"mem_total"`
	MemUsed         int64            `json:"mem_used" yaml:"mem_used"`
	DiskTotal       int64            `json:"disk_total" yaml:"disk_total"`
	DiskFree        int64            `json:"disk_free" yaml:"disk_free"`
	LoadAvg         []float64        `json:"load_avg,omitempty" yaml:"load_avg,omitempty"`
	GPUs            []GPUInfo        `json:"gpus,omitempty" yaml:"gpus,omitempty"`
	Runtime         core.RuntimeInfo `json:"runtime" yaml:"runtime"`
	HeapUsed        int64            `json:"heap_used" yaml:"heap_used"`
	HeapSys         int64            `json:"heap_sys" yaml:"heap_sys"`
	StackInUse      int64            `json:"stack_in_use" yaml:"stack_in_use"`
	Goroutines      int              `json:"goroutines" yaml:"goroutines"`
	AppName         string           `json:"app_name" yaml:"app_name"`
	Version         string           `json:"version" yaml:"version"`
	DataDir         string           `json:"data_dir" yaml:"data_dir"`
	ConfigDir       string           `json:"config_dir" yaml:"config_dir"`
}

// Probes are the data sources used by Collector. Tests replace them.
type Probes struct {
	Host    func(ctx context.Context) (*host.InfoStat, error)
	CPUInfo func(ctx context.Context) ([]cpu.InfoStat, error)
	Counts  func(ctx context.Context, logical bool) (int, error)
	Memory  func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	Disk    func(ctx context.Context, path string) (*disk.UsageStat, error)
	Load    func(ctx context.Context) (*load.AvgStat, error)
	GPU     func() ([]GPUInfo, error)
	Runtime func() runtime.MemStats
}

// DefaultProbes reads the real host through gopsutil and ghw.
func DefaultProbes() Probes {
	return Probes{
		Host:    host.InfoWithContext,
		CPUInfo: cpu.InfoWithContext,
		Counts:  cpu.CountsWithContext,
		Memory:  mem.VirtualMemoryWithContext,
		Disk:    disk.UsageWithContext,
		Load:    load.AvgWithContext,
		GPU:     ghwGPUs,
		Runtime: func() runtime.MemStats {
			var ms runtime.MemStats
			runtime.ReadMemStats(&ms)
			return ms
		},
	}
}

// Collector gathers a SystemInfo snapshot.
type Collector struct {
	meta   core.MetadataProvider
	probes Probes
}

// NewCollector creates a collector for the given application metadata.
func NewCollector(meta core.MetadataProvider, probes Probes) *Collector {
	return &Collector{meta: meta, probes: probes}
}

// Collect runs every probe concurrently. It never fails; probes that error
// leave their fields unknown.
func (c *Collector) Collect(ctx context.Context) SystemInfo {
	info := SystemInfo{
		OS:              runtime.GOOS,
		Platform:        Unknown,
		PlatformVersion: Unknown,
		KernelVersion:   Unknown,
		Arch:            runtime.GOARCH,
		Processors:      runtime.NumCPU(),
		CPUModel:        Unknown,
		MemTotal:        -1,
		MemUsed:         -1,
		DiskTotal:       -1,
		DiskFree:        -1,
		HeapUsed:        -1,
		HeapSys:         -1,
		StackInUse:      -1,
		Goroutines:      runtime.NumGoroutine(),
		Runtime:         c.meta.Runtime(),
		AppName:         c.meta.AppName(),
		Version:         c.meta.Build().Version,
		DataDir:         c.meta.DataDir(),
		ConfigDir:       c.meta.ConfigDir(),
	}

	var mu sync.Mutex
	set := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	g, gctx := errgroup.WithContext(ctx)

	if c.probes.Host != nil {
		g.Go(func() error {
			h, err := c.probes.Host(gctx)
			if err != nil || h == nil {
				return nil
			}
			set(func() {
				info.Platform = orUnknown(h.Platform)
				info.PlatformVersion = orUnknown(h.PlatformVersion)
				info.KernelVersion = orUnknown(h.KernelVersion)
			})
			return nil
		})
	}

	if c.probes.CPUInfo != nil {
		g.Go(func() error {
			infos, err := c.probes.CPUInfo(gctx)
			if err != nil || len(infos) == 0 {
				return nil
			}
			set(func() { info.CPUModel = orUnknown(infos[0].ModelName) })
			return nil
		})
	}

	if c.probes.Counts != nil {
		g.Go(func() error {
			n, err := c.probes.Counts(gctx, true)
			if err != nil || n <= 0 {
				return nil
			}
			set(func() { info.Processors = n })
			return nil
		})
	}

	if c.probes.Memory != nil {
		g.Go(func() error {
			vm, err := c.probes.Memory(gctx)
			if err != nil || vm == nil {
				return nil
			}
			set(func() {
				info.MemTotal = int64(vm.Total)
				info.MemUsed = int64(vm.Used)
			})
			return nil
		})
	}

	if c.probes.Disk != nil && info.DataDir != "" {
		g.Go(func() error {
			usage, err := c.probes.Disk(gctx, info.DataDir)
			if err != nil || usage == nil {
				return nil
			}
			set(func() {
				info.DiskTotal = int64(usage.Total)
				info.DiskFree = int64(usage.Free)
			})
			return nil
		})
	}

	if c.probes.Load != nil {
		g.Go(func() error {
			avg, err := c.probes.Load(gctx)
			if err != nil || avg == nil {
				return nil
			}
			set(func() { info.LoadAvg = []float64{avg.Load1, avg.Load5, avg.Load15} })
			return nil
		})
	}

	if c.probes.GPU != nil {
		g.Go(func() error {
			gpus, err := c.probes.GPU()
			if err != nil {
				return nil
			}
			set(func() { info.GPUs = gpus })
			return nil
		})
	}

	_ = g.Wait()

	if c.probes.Runtime != nil {
		ms := c.probes.Runtime()
		info.HeapUsed = int64(ms.HeapAlloc)
		info.HeapSys = int64(ms.HeapSys)
		info.StackInUse = int64(ms.StackInuse)
	}

	return info
}

func ghwGPUs() ([]GPUInfo, error) {
	info, err := ghw.GPU()
	if err != nil {
		return nil, err
	}
	if info == nil {
		return nil, nil
	}

	gpus := make([]GPUInfo, 0, len(info.GraphicsCards))
	for _, card := range info.GraphicsCards {
		name := ""
		if card.DeviceInfo != nil {
			switch {
			case card.DeviceInfo.Vendor != nil && card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name + " " + card.DeviceInfo.Product.Name)
			case card.DeviceInfo.Product != nil:
				name = strings.TrimSpace(card.DeviceInfo.Product.Name)
			case card.DeviceInfo.Vendor != nil:
				name = strings.TrimSpace(card.DeviceInfo.Vendor.Name)
			}
		}
		if name == "" {
			name = fmt.Sprintf("GPU %d", card.Index)
		}
		gpus = append(gpus, GPUInfo{Name: name})
	}
	return gpus, nil
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return Unknown
	}
	return strings.TrimSpace(s)
}

// Text renders the snapshot as the plain-text sections embedded in crash reports.
func (s SystemInfo) Text() string {
	var b strings.Builder

	b.WriteString("=== System Information ===\n")
	fmt.Fprintf(&b, "OS: %s %s %s\n", s.OS, s.Platform, s.PlatformVersion)
	fmt.Fprintf(&b, "Kernel: %s\n", s.KernelVersion)
	fmt.Fprintf(&b, "Architecture: %s\n", s.Arch)
	fmt.Fprintf(&b, "Available Processors: %d\n", s.Processors)
	fmt.Fprintf(&b, "CPU Model: %s\n", s.CPUModel)
	if len(s.LoadAvg) == 3 {
		fmt.Fprintf(&b, "Load Average: %.2f %.2f %.2f\n", s.LoadAvg[0], s.LoadAvg[1], s.LoadAvg[2])
	}
	for _, gpu := range s.GPUs {
		fmt.Fprintf(&b, "GPU: %s\n", gpu.Name)
	}
	b.WriteString("\n")

	b.WriteString("=== Runtime Information ===\n")
	fmt.Fprintf(&b, "Runtime Name: %s\n", orUnknown(s.Runtime.Name))
	fmt.Fprintf(&b, "Runtime Vendor: %s\n", orUnknown(s.Runtime.Vendor))
	fmt.Fprintf(&b, "Runtime Version: %s\n", orUnknown(s.Runtime.Version))
	b.WriteString("\n")

	b.WriteString("=== Memory Information ===\n")
	fmt.Fprintf(&b, "System Memory: %s / %s\n", FormatBytes(s.MemUsed), FormatBytes(s.MemTotal))
	fmt.Fprintf(&b, "Heap Memory: %s / %s\n", FormatBytes(s.HeapUsed), FormatBytes(s.HeapSys))
	fmt.Fprintf(&b, "Stack Memory: %s\n", FormatBytes(s.StackInUse))
	fmt.Fprintf(&b, "Disk Free (data directory): %s / %s\n", FormatBytes(s.DiskFree), FormatBytes(s.DiskTotal))
	fmt.Fprintf(&b, "Goroutines: %d\n", s.Goroutines)
	b.WriteString("\n")

	fmt.Fprintf(&b, "=== %s Information ===\n", s.AppName)
	fmt.Fprintf(&b, "Version: %s\n", orUnknown(s.Version))
	fmt.Fprintf(&b, "Data Directory: %s\n", orUnknown(s.DataDir))
	fmt.Fprintf(&b, "Config Directory: %s\n", orUnknown(s.ConfigDir))

	return b.String()
}

// FormatBytes renders a byte count with one decimal in KB, MB or GB.
// Negative values are Unknown.
func FormatBytes(n int64) string {
	const unit = 1024
	switch {
	case n < 0:
		return Unknown
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	case n < unit*unit*unit:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(unit*unit*unit))
	}
}
