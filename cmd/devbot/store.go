package main

import (
	"context"

	"github.com/deusflow/devbot/internal/config"
	"github.com/deusflow/devbot/internal/ledger"
	"github.com/deusflow/devbot/internal/logger"
	"github.com/deusflow/devbot/internal/storage"
)

// openStore returns the configured topic store and a function releasing it.
func openStore(ctx context.Context, cfg *config.Config) (ledger.Store, func(), error) {
	switch cfg.LedgerBackend {
	case config.BackendPostgres:
		ps, err := storage.NewPostgresStore(ctx, cfg.DatabaseURL, logger.For("storage"))
		if err != nil {
			return nil, nil, err
		}
		return ps, func() { ps.Close() }, nil
	case config.BackendSQLite:
		s, err := storage.NewSQLiteStore(cfg.LedgerSQLitePath)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using SQLite topic store", "path", cfg.LedgerSQLitePath)
		return s, func() { s.Close() }, nil
	default:
		logger.Info("Using file topic store", "path", cfg.UsedTopicsFile)
		return storage.NewFileStore(cfg.UsedTopicsFile), func() {}, nil
	}
}
