package alerts

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
	"github.com/hugo-lorenzo-mato/crashguard/internal/i18n"
)

// DefaultThreshold is the crash count at which escalation fires.
const DefaultThreshold = 3

// FrequentCrashID returns the per-day suppression key for t.
func FrequentCrashID(t time.Time) string {
	return "frequent-crashes-" + t.Format(core.DayKeyLayout)
}

// Escalator publishes at most one "frequent crashes" alert per calendar day.
type Escalator struct {
	sink           core.AlertSink
	formatter      core.Formatter
	recommendation string
	threshold      int
	now            core.Clock
	logger         *slog.Logger
}

// EscalatorOption configures an Escalator.
type EscalatorOption func(*Escalator)

// WithThreshold overrides the escalation threshold.
func WithThreshold(n int) EscalatorOption {
	return func(e *Escalator) {
		if n > 0 {
			e.threshold = n
		}
	}
}

// WithClock overrides the clock used to compute the day key.
func WithClock(clock core.Clock) EscalatorOption {
	return func(e *Escalator) {
		if clock != nil {
			e.now = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) EscalatorOption {
	return func(e *Escalator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEscalator creates an escalator. recommendation is embedded in the alert body.
func NewEscalator(sink core.AlertSink, formatter core.Formatter, recommendation string, opts ...EscalatorOption) *Escalator {
	e := &Escalator{
		sink:           sink,
		formatter:      formatter,
		recommendation: recommendation,
		threshold:      DefaultThreshold,
		now:            time.Now,
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Threshold returns the configured threshold.
func (e *Escalator) Threshold() int {
	return e.threshold
}

// MaybeEscalate publishes the frequent-crash alert when count reaches the
// threshold and today's alert has not been published yet. It reports whether
// an alert was published.
func (e *Escalator) MaybeEscalate(ctx context.Context, count int) bool {
	if count < e.threshold {
		return false
	}

	now := e.now()
	id := FrequentCrashID(now)

	exists, err := e.sink.ExistsIncludingRead(ctx, id)
	if err != nil {
		e.logger.Warn("failed to check existing escalation alert", "id", id, "error", err)
	}
	if exists {
		e.logger.Debug("escalation already published today", "id", id)
		return false
	}

	alert := core.Alert{
		ID:         id,
		Level:      core.AlertFatal,
		Persistent: true,
		Title:      e.formatter.Format(i18n.KeyFrequentTitle),
		Body:       e.formatter.Format(i18n.KeyFrequentBody, count, e.recommendation),
		CreatedAt:  now,
	}
	if err := e.sink.Publish(ctx, alert); err != nil {
		e.logger.Error("failed to publish escalation alert", "id", id, "error", err)
		return false
	}

	e.logger.Warn("frequent crashes detected", "count", count, "id", id)
	return true
}
