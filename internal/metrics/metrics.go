// Package metrics exposes crash ledger, archive and alert state as
// Prometheus metrics.
//
// Values are read from the stores at scrape time, so the HTTP handler and
// the textfile export always reflect what is on disk.
package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/common/expfmt"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

const namespace = "crashguard"

// scrapeTimeout bounds the store reads of a single collection.
const scrapeTimeout = 5 * time.Second

// AlertLister lists stored alerts.
type AlertLister interface {
	List(ctx context.Context, unreadOnly bool) ([]core.Alert, error)
}

// ArchiveLister lists archived crash dumps.
type ArchiveLister interface {
	List() ([]core.ArchivedDump, error)
}

// Sources are the stores a Collector reads. Nil sources are skipped.
type Sources struct {
	Ledger     core.EventStore
	MaxEntries int
	Archive    ArchiveLister
	Alerts     AlertLister
	Window     time.Duration
	Clock      core.Clock
	Logger     *slog.Logger
}

// Collector is a prometheus.Collector over the crash stores.
type Collector struct {
	src Sources

	recentCrashes *prometheus.Desc
	ledgerEntries *prometheus.Desc
	archivedDumps *prometheus.Desc
	archiveBytes  *prometheus.Desc
	unreadAlerts  *prometheus.Desc
	sourceUp      *prometheus.Desc
	startupChecks *prometheus.CounterVec
	escalations   prometheus.Counter
}

// NewCollector creates a collector for src.
func NewCollector(src Sources) *Collector {
	if src.Window <= 0 {
		src.Window = 24 * time.Hour
	}
	if src.Clock == nil {
		src.Clock = time.Now
	}
	if src.MaxEntries <= 0 {
		src.MaxEntries = 50
	}
	return &Collector{
		src: src,
		recentCrashes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "", "recent_crashes"),
			"Crash events recorded within the frequency window.",
			nil, nil,
		),
		ledgerEntries: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "ledger", "entries"),
			"Records currently held in the crash ledger.",
			nil, nil,
		),
		archivedDumps: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "archive", "dumps"),
			"Crash dumps kept in the archive directory.",
			nil, nil,
		),
		archiveBytes: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "archive", "bytes"),
			"Total size of archived crash dumps.",
			nil, nil,
		),
		unreadAlerts: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "alerts", "unread"),
			"Stored alerts not yet marked read.",
			nil, nil,
		),
		sourceUp: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "source", "up"),
			"Whether the last read of a store succeeded.",
			[]string{"source"}, nil,
		),
		startupChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "startup_checks_total",
			Help:      "Startup checks by outcome mode.",
		}, []string{"mode"}),
		escalations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Frequent-crash alerts published by this process.",
		}),
	}
}

// ObserveStartup records the outcome of a startup check.
func (c *Collector) ObserveStartup(mode string, escalated bool) {
	c.startupChecks.WithLabelValues(mode).Inc()
	if escalated {
		c.escalations.Inc()
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.recentCrashes
	ch <- c.ledgerEntries
	ch <- c.archivedDumps
	ch <- c.archiveBytes
	ch <- c.unreadAlerts
	ch <- c.sourceUp
	c.startupChecks.Describe(ch)
	c.escalations.Describe(ch)
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), scrapeTimeout)
	defer cancel()

	if c.src.Ledger != nil {
		c.collectLedger(ctx, ch)
	}
	if c.src.Archive != nil {
		c.collectArchive(ch)
	}
	if c.src.Alerts != nil {
		c.collectAlerts(ctx, ch)
	}

	c.startupChecks.Collect(ch)
	c.escalations.Collect(ch)
}

func (c *Collector) collectLedger(ctx context.Context, ch chan<- prometheus.Metric) {
	recent, err := c.src.Ledger.RecentCount(ctx, c.src.Window, c.src.Clock())
	if err == nil {
		var lines []string
		lines, err = c.src.Ledger.Tail(ctx, c.src.MaxEntries)
		if err == nil {
			ch <- prometheus.MustNewConstMetric(c.recentCrashes, prometheus.GaugeValue, float64(recent))
			ch <- prometheus.MustNewConstMetric(c.ledgerEntries, prometheus.GaugeValue, float64(len(lines)))
		}
	}
	c.up(ch, "ledger", err)
}

func (c *Collector) collectArchive(ch chan<- prometheus.Metric) {
	dumps, err := c.src.Archive.List()
	if err == nil {
		var total int64
		for _, d := range dumps {
			total += d.Size
		}
		ch <- prometheus.MustNewConstMetric(c.archivedDumps, prometheus.GaugeValue, float64(len(dumps)))
		ch <- prometheus.MustNewConstMetric(c.archiveBytes, prometheus.GaugeValue, float64(total))
	}
	c.up(ch, "archive", err)
}

func (c *Collector) collectAlerts(ctx context.Context, ch chan<- prometheus.Metric) {
	unread, err := c.src.Alerts.List(ctx, true)
	if err == nil {
		ch <- prometheus.MustNewConstMetric(c.unreadAlerts, prometheus.GaugeValue, float64(len(unread)))
	}
	c.up(ch, "alerts", err)
}

func (c *Collector) up(ch chan<- prometheus.Metric, source string, err error) {
	v := 1.0
	if err != nil {
		v = 0
		if c.src.Logger != nil {
			c.src.Logger.Warn("metrics source read failed",
				slog.String("source", source),
				slog.String("error", err.Error()))
		}
	}
	ch <- prometheus.MustNewConstMetric(c.sourceUp, prometheus.GaugeValue, v, source)
}

// NewRegistry returns a registry holding c plus the Go and process collectors.
func NewRegistry(c *Collector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(c)
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler serves reg in the Prometheus exposition format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// WriteTextfile writes the current values of g for the node exporter
// textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return core.ErrIO(core.CodeExportWrite, "writing metrics textfile").WithCause(err)
	}
	return nil
}

// Expose writes the current values of g to w in the text exposition format.
func Expose(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
