// Package storage owns all persisted state: obligations, fulfillment
// history, the undo log, monthly summaries and the lifecycle checkpoint.
// Services mutate it only through transaction-wrapped operations.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// UndoLogCapacity bounds the undo log; pushing past it evicts the oldest
// entry silently.
const UndoLogCapacity = 10

// LifecycleCheckpointKey is the app_settings key holding the last month
// boundary processed, formatted YYYY-MM.
const LifecycleCheckpointKey = "lifecycle_checkpoint"

type Store struct {
	db      *sql.DB
	queries *Queries
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Single writer; WAL keeps readers unblocked during mutations.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{
		db:      db,
		queries: New(db),
	}, nil
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Queries returns the read-side query handle outside any transaction.
func (s *Store) Queries() *Queries {
	return s.queries
}

// WithTx runs fn inside one transaction; the whole mutation commits or
// rolls back as a unit.
func (s *Store) WithTx(ctx context.Context, fn func(q *Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(New(tx)); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
