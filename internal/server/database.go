package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/document-pipeline/internal/common"
	repo "github.com/joseph-ayodele/document-pipeline/internal/repository"
)

// ConnectJournal opens the journal database described by cfg and prepares the
// journal table. An empty DSN disables the journal: all return values are nil.
func ConnectJournal(ctx context.Context, cfg common.JournalConfig, logger *slog.Logger) (*repo.DB, repo.JournalRepository, error) {
	if cfg.DSN == "" {
		logger.Debug("journal disabled")
		return nil, nil, nil
	}

	logger.Info("connecting to journal database")
	db, err := repo.Open(ctx, repo.Config{
		DSN:             cfg.DSN,
		MaxConns:        cfg.MaxConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		DialTimeout:     cfg.DialTimeout,
	}, logger)
	if err != nil {
		logger.Error("failed to connect to journal database", "error", err)
		return nil, nil, common.NewAppError(common.CodeStorage, "open journal", err)
	}

	if err := PingDB(ctx, db, logger, 5*time.Second); err != nil {
		CloseDB(db, logger)
		return nil, nil, common.NewAppError(common.CodeStorage, "ping journal", err)
	}

	journal, err := repo.NewJournalRepository(ctx, db, logger)
	if err != nil {
		CloseDB(db, logger)
		return nil, nil, common.NewAppError(common.CodeStorage, "prepare journal", err)
	}
	logger.Info("journal ready", "dialect", db.Dialect)
	return db, journal, nil
}

// PingDB pings the database to ensure it's responsive
func PingDB(ctx context.Context, db *repo.DB, logger *slog.Logger, timeout time.Duration) error {
	logger.Debug("pinging database")
	if err := db.HealthCheck(ctx, timeout); err != nil {
		logger.Error("database ping failed", "error", err)
		return err
	}
	logger.Debug("database ping successful")
	return nil
}

// CloseDB closes the database connections gracefully
func CloseDB(db *repo.DB, logger *slog.Logger) {
	if db == nil {
		return
	}
	logger.Info("closing database connections")
	db.Close(logger)
}
