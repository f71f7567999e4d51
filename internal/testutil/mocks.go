package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// MockCall records a call to a mock.
type MockCall struct {
	Method    string
	Args      interface{}
	Timestamp time.Time
}

// MockAlertSink implements core.AlertSink in memory.
type MockAlertSink struct {
	published  []core.Alert
	seen       map[string]bool
	calls      []MockCall
	publishErr error
	existsErr  error
	mu         sync.Mutex
}

// NewMockAlertSink creates an empty sink.
func NewMockAlertSink() *MockAlertSink {
	return &MockAlertSink{seen: make(map[string]bool)}
}

// WithPublishError makes every Publish fail with err.
func (m *MockAlertSink) WithPublishError(err error) *MockAlertSink {
	m.publishErr = err
	return m
}

// WithExistsError makes every ExistsIncludingRead fail with err.
func (m *MockAlertSink) WithExistsError(err error) *MockAlertSink {
	m.existsErr = err
	return m
}

// Seed marks id as previously published, as if it had been read.
func (m *MockAlertSink) Seed(id string) *MockAlertSink {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen[id] = true
	return m
}

// Publish records the alert. Duplicate ids are ignored.
func (m *MockAlertSink) Publish(_ context.Context, alert core.Alert) error {
	m.recordCall("Publish", alert)
	if m.publishErr != nil {
		return m.publishErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[alert.ID] {
		return nil
	}
	m.seen[alert.ID] = true
	m.published = append(m.published, alert)
	return nil
}

// ExistsIncludingRead reports whether id was published or seeded.
func (m *MockAlertSink) ExistsIncludingRead(_ context.Context, id string) (bool, error) {
	m.recordCall("ExistsIncludingRead", id)
	if m.existsErr != nil {
		return false, m.existsErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seen[id], nil
}

// Published returns a copy of the stored alerts.
func (m *MockAlertSink) Published() []core.Alert {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Alert, len(m.published))
	copy(out, m.published)
	return out
}

// PublishedWithPrefix returns stored alerts whose id starts with prefix.
func (m *MockAlertSink) PublishedWithPrefix(prefix string) []core.Alert {
	var out []core.Alert
	for _, a := range m.Published() {
		if strings.HasPrefix(a.ID, prefix) {
			out = append(out, a)
		}
	}
	return out
}

func (m *MockAlertSink) recordCall(method string, args interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, MockCall{
		Method:    method,
		Args:      args,
		Timestamp: time.Now(),
	})
}

// CallCount returns the number of calls to method.
func (m *MockAlertSink) CallCount(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, c := range m.calls {
		if c.Method == method {
			count++
		}
	}
	return count
}

// Calls returns all recorded calls.
func (m *MockAlertSink) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockCall, len(m.calls))
	copy(result, m.calls)
	return result
}

// Reset clears published alerts and recorded calls.
func (m *MockAlertSink) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.published = nil
	m.calls = nil
	m.seen = make(map[string]bool)
}

// MockFormatter implements core.Formatter by echoing the key and arguments
// as "key|arg1|arg2".
type MockFormatter struct{}

// Format renders key and args without localization.
func (MockFormatter) Format(key string, args ...any) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, key)
	for _, a := range args {
		parts = append(parts, fmt.Sprint(a))
	}
	return strings.Join(parts, "|")
}

// StubMetadata implements core.MetadataProvider with fixed values.
type StubMetadata struct {
	Name   string
	Info   core.BuildInfo
	Data   string
	Config string
	RT     core.RuntimeInfo
}

// AppName returns the stub application name.
func (s StubMetadata) AppName() string { return s.Name }

// Build returns the stub build info.
func (s StubMetadata) Build() core.BuildInfo { return s.Info }

// DataDir returns the stub data directory.
func (s StubMetadata) DataDir() string { return s.Data }

// ConfigDir returns the stub config directory.
func (s StubMetadata) ConfigDir() string { return s.Config }

// Runtime returns the stub runtime info.
func (s StubMetadata) Runtime() core.RuntimeInfo { return s.RT }
