package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
	"github.com/nerrad567/neobridge/internal/infrastructure/database"
	"github.com/nerrad567/neobridge/migrations"
)

const insertReadingSQL = `INSERT INTO readings (thermoid, name, temperature, heating, frost, recorded_at)
VALUES (?, ?, ?, ?, ?, ?)`

// SQLite is a Sink writing to a local SQLite file.
type SQLite struct {
	db *database.DB
}

// OpenSQLite opens the database at cfg.Path and applies the embedded schema.
func OpenSQLite(ctx context.Context, cfg config.StorageConfig) (*SQLite, error) {
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Path,
		WALMode:     cfg.WALMode,
		BusyTimeout: cfg.BusyTimeout,
	})
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, migrations.FS); err != nil {
		db.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("migrating database: %w", err)
	}
	return NewSQLite(db), nil
}

// NewSQLite wraps an already migrated database.
func NewSQLite(db *database.DB) *SQLite {
	return &SQLite{db: db}
}

// Begin opens a transaction detached from ctx's cancellation.
func (s *SQLite) Begin(ctx context.Context) (Batch, error) {
	tx, err := s.db.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, err
	}
	return &sqliteBatch{tx: tx}, nil
}

// HealthCheck verifies the database answers queries.
func (s *SQLite) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

type sqliteBatch struct {
	tx *sql.Tx
}

func (b *sqliteBatch) Insert(ctx context.Context, row Row) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	_, err := b.tx.ExecContext(ctx, insertReadingSQL,
		row.ThermoID,
		row.Name,
		row.Temperature,
		row.Heating,
		row.Frost,
		row.RecordedAt.Format("2006-01-02T15:04:05.000Z07:00"),
	)
	if errors.Is(err, sql.ErrTxDone) {
		return ErrBatchClosed
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	return nil
}

func (b *sqliteBatch) Commit(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	err := b.tx.Commit()
	if errors.Is(err, sql.ErrTxDone) {
		return ErrBatchClosed
	}
	if err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}

func (b *sqliteBatch) Rollback() error {
	err := b.tx.Rollback()
	if err == nil || errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return fmt.Errorf("storage: rollback: %w", err)
}
