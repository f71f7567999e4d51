// Package alerts stores operator alerts and decides when repeated crashes
// escalate.
package alerts

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

//go:embed migrations/001_alerts.sql
var migrationV1 string

// SQLiteSink implements core.AlertSink. Persistent alerts are stored in
// SQLite and survive restarts; the others live only in memory.
type SQLiteSink struct {
	path string
	db   *sql.DB
	now  core.Clock

	mu       sync.RWMutex
	volatile map[string]core.Alert
}

var _ core.AlertSink = (*SQLiteSink)(nil)

// SQLiteSinkOption configures the sink.
type SQLiteSinkOption func(*SQLiteSink)

// WithSinkClock sets the clock used to stamp alerts without a CreatedAt and read times.
func WithSinkClock(clock core.Clock) SQLiteSinkOption {
	return func(s *SQLiteSink) {
		if clock != nil {
			s.now = clock
		}
	}
}

// OpenSQLiteSink opens or creates the alert database at path.
func OpenSQLiteSink(path string, opts ...SQLiteSinkOption) (*SQLiteSink, error) {
	s := &SQLiteSink{
		path:     path,
		now:      time.Now,
		volatile: make(map[string]core.Alert),
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("creating alerts directory: %w", err)
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening alerts database: %w", err)
	}
	s.db = db

	if err := s.migrate(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("running migrations: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteSink) migrate() error {
	var version int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&version); err != nil {
		version = 0
	}
	if version < 1 {
		if _, err := s.db.Exec(migrationV1); err != nil {
			return fmt.Errorf("applying migration v1: %w", err)
		}
	}
	return nil
}

// Path returns the database file path.
func (s *SQLiteSink) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteSink) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Publish records an alert. An id that already exists is left untouched.
func (s *SQLiteSink) Publish(ctx context.Context, alert core.Alert) error {
	if alert.ID == "" {
		return core.ErrValidation(core.CodeAlertPublish, "alert id is required")
	}
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = s.now()
	}

	exists, err := s.ExistsIncludingRead(ctx, alert.ID)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	if !alert.Persistent {
		s.mu.Lock()
		if _, ok := s.volatile[alert.ID]; !ok {
			alert.Read = false
			s.volatile[alert.ID] = alert
		}
		s.mu.Unlock()
		return nil
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alerts (id, level, title, body, created_at, read_at)
		VALUES (?, ?, ?, ?, ?, NULL)
	`, alert.ID, string(alert.Level), alert.Title, alert.Body, alert.CreatedAt.UnixNano())
	if err != nil {
		return core.ErrIO(core.CodeAlertPublish, "inserting alert").WithCause(err)
	}
	return nil
}

// ExistsIncludingRead reports whether id was ever published, read or not.
func (s *SQLiteSink) ExistsIncludingRead(ctx context.Context, id string) (bool, error) {
	s.mu.RLock()
	_, ok := s.volatile[id]
	s.mu.RUnlock()
	if ok {
		return true, nil
	}

	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM alerts WHERE id = ?", id).Scan(&n); err != nil {
		return false, fmt.Errorf("querying alert %s: %w", id, err)
	}
	return n > 0, nil
}

// List returns alerts newest first. With unreadOnly, read alerts are omitted.
func (s *SQLiteSink) List(ctx context.Context, unreadOnly bool) ([]core.Alert, error) {
	query := "SELECT id, level, title, body, created_at, read_at FROM alerts"
	if unreadOnly {
		query += " WHERE read_at IS NULL"
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing alerts: %w", err)
	}
	defer rows.Close()

	var out []core.Alert
	for rows.Next() {
		var (
			a       core.Alert
			level   string
			created int64
			readAt  sql.NullInt64
		)
		if err := rows.Scan(&a.ID, &level, &a.Title, &a.Body, &created, &readAt); err != nil {
			return nil, fmt.Errorf("scanning alert: %w", err)
		}
		a.Level = core.AlertLevel(level)
		a.Persistent = true
		a.CreatedAt = time.Unix(0, created)
		a.Read = readAt.Valid
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating alerts: %w", err)
	}

	s.mu.RLock()
	for _, a := range s.volatile {
		if unreadOnly && a.Read {
			continue
		}
		out = append(out, a)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// MarkRead flags an alert as read. Read alerts still count for ExistsIncludingRead.
func (s *SQLiteSink) MarkRead(ctx context.Context, id string) error {
	s.mu.Lock()
	if a, ok := s.volatile[id]; ok {
		a.Read = true
		s.volatile[id] = a
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		"UPDATE alerts SET read_at = COALESCE(read_at, ?) WHERE id = ?",
		s.now().UnixNano(), id)
	if err != nil {
		return fmt.Errorf("marking alert %s read: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("marking alert %s read: %w", id, err)
	}
	if n == 0 {
		return core.ErrNotFound("alert", id)
	}
	return nil
}
