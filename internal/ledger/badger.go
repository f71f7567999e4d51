package ledger

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// eventPrefix namespaces ledger records. Keys are the prefix followed by a
// big-endian sequence number, so key order is insertion order.
var eventPrefix = []byte("crash/")

// BadgerConfig configures the badger-backed ledger.
type BadgerConfig struct {
	// Path is the database directory. Ignored when InMemory is true.
	Path string

	// InMemory keeps everything in RAM. Used by tests.
	InMemory bool

	// SyncWrites fsyncs every commit.
	SyncWrites bool

	// MaxEntries caps the number of stored events. Default: 50.
	MaxEntries int

	// Logger receives badger's internal log output. Nil disables it.
	Logger *slog.Logger
}

// DefaultBadgerConfig returns the on-disk configuration for path.
func DefaultBadgerConfig(path string) BadgerConfig {
	return BadgerConfig{
		Path:       path,
		SyncWrites: true,
		MaxEntries: DefaultMaxEntries,
	}
}

// InMemoryBadgerConfig returns a configuration for tests.
func InMemoryBadgerConfig() BadgerConfig {
	return BadgerConfig{
		InMemory:   true,
		MaxEntries: DefaultMaxEntries,
	}
}

// badgerLogger routes badger's printf-style logging into slog.
type badgerLogger struct {
	logger *slog.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}

// BadgerStore keeps the ledger in an embedded badger database.
type BadgerStore struct {
	db         *badger.DB
	maxEntries int
	logger     *slog.Logger

	mu      sync.Mutex
	nextSeq uint64
}

var _ core.EventStore = (*BadgerStore)(nil)

// OpenBadger opens or creates a badger-backed ledger.
func OpenBadger(cfg BadgerConfig) (*BadgerStore, error) {
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("path is required for persistent ledger")
	}

	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if err := os.MkdirAll(cfg.Path, 0o750); err != nil {
			return nil, fmt.Errorf("create ledger directory %s: %w", cfg.Path, err)
		}
		opts = badger.DefaultOptions(cfg.Path)
	}
	opts = opts.WithSyncWrites(cfg.SyncWrites).WithNumVersionsToKeep(1)

	logger := cfg.Logger
	if logger != nil {
		opts = opts.WithLogger(&badgerLogger{logger: logger})
	} else {
		opts = opts.WithLogger(nil)
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger ledger: %w", err)
	}

	maxEntries := cfg.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}

	s := &BadgerStore{db: db, maxEntries: maxEntries, logger: logger}
	last, err := s.lastSeq()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	s.nextSeq = last + 1
	return s, nil
}

func eventKey(seq uint64) []byte {
	key := make([]byte, len(eventPrefix)+8)
	copy(key, eventPrefix)
	binary.BigEndian.PutUint64(key[len(eventPrefix):], seq)
	return key
}

// lastSeq returns the highest stored sequence number, or 0 when empty.
func (s *BadgerStore) lastSeq() (uint64, error) {
	var last uint64
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.PrefetchValues = false
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte{}, eventPrefix...), 0xFF)
		it.Seek(seek)
		if it.ValidForPrefix(eventPrefix) {
			key := it.Item().Key()
			last = binary.BigEndian.Uint64(key[len(eventPrefix):])
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("scanning ledger keys: %w", err)
	}
	return last, nil
}

// Append stores the event and evicts the oldest records beyond maxEntries in the same transaction.
func (s *BadgerStore) Append(ctx context.Context, ev core.CrashEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.nextSeq
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(eventKey(seq), []byte(FormatLine(ev))); err != nil {
			return err
		}

		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		it.Close()

		for len(keys) > s.maxEntries {
			if err := txn.Delete(keys[0]); err != nil {
				return err
			}
			keys = keys[1:]
		}
		return nil
	})
	if err != nil {
		return core.ErrIO(core.CodeLedgerAppend, "writing ledger record").WithCause(err)
	}
	s.nextSeq++
	return nil
}

// lines returns every stored line in insertion order.
func (s *BadgerStore) lines() ([]string, error) {
	var lines []string
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = eventPrefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			lines = append(lines, string(val))
		}
		return nil
	})
	if err != nil {
		return nil, core.ErrIO(core.CodeLedgerRead, "reading ledger records").WithCause(err)
	}
	return lines, nil
}

// RecentCount counts events stamped strictly after now-window.
func (s *BadgerStore) RecentCount(ctx context.Context, window time.Duration, now time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	lines, err := s.lines()
	if err != nil {
		return 0, err
	}
	return countSince(lines, now.Add(-window)), nil
}

// Tail returns up to the last n lines in insertion order.
func (s *BadgerStore) Tail(ctx context.Context, n int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	lines, err := s.lines()
	if err != nil {
		return nil, err
	}
	return lastN(lines, n), nil
}

// Close closes the database.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}
