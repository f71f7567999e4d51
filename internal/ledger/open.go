package ledger

import (
	"log/slog"

	"github.com/hugo-lorenzo-mato/crashguard/internal/config"
	"github.com/hugo-lorenzo-mato/crashguard/internal/core"
)

// Open returns the ledger backend selected by crash.ledger_backend.
func Open(cfg *config.Config, logger *slog.Logger) (core.EventStore, error) {
	switch cfg.Crash.LedgerBackend {
	case "", config.LedgerBackendFS:
		return NewFileStore(cfg.LedgerPath(), cfg.Crash.MaxHistory, logger), nil
	case config.LedgerBackendKV:
		bc := DefaultBadgerConfig(cfg.BadgerDir())
		bc.MaxEntries = cfg.Crash.MaxHistory
		if logger != nil {
			bc.Logger = logger.With("component", "badger")
		}
		store, err := OpenBadger(bc)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, core.ErrValidation(core.CodeUnknownBackend, "unknown ledger backend").
			WithDetail("backend", cfg.Crash.LedgerBackend)
	}
}
