package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

func openTestSQLite(t *testing.T) *SQLite {
	t.Helper()
	s, err := OpenSQLite(context.Background(), config.StorageConfig{
		Driver:      config.StorageDriverSQLite,
		Path:        filepath.Join(t.TempDir(), "readings.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func countRows(t *testing.T, s *SQLite) int {
	t.Helper()
	var n int
	if err := s.db.QueryRowContext(context.Background(), "SELECT COUNT(*) FROM readings").Scan(&n); err != nil {
		t.Fatalf("count readings: %v", err)
	}
	return n
}

func testRows() []Row {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Row{
		{ThermoID: 1, Name: "Kitchen", Temperature: 19.5, Heating: true, RecordedAt: at},
		{ThermoID: 2, Name: "Lounge", Temperature: 21, Frost: true, RecordedAt: at},
	}
}

func TestSQLite_CommitPersistsRows(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	batch, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	for _, row := range testRows() {
		if err := batch.Insert(ctx, row); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}
	}
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}

	if n := countRows(t, s); n != 2 {
		t.Errorf("rows = %d, want 2", n)
	}

	var (
		name    string
		temp    float64
		heating bool
		frost   bool
	)
	err = s.db.QueryRowContext(ctx,
		"SELECT name, temperature, heating, frost FROM readings WHERE thermoid = 1").
		Scan(&name, &temp, &heating, &frost)
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if name != "Kitchen" || temp != 19.5 || !heating || frost {
		t.Errorf("row = %s %v %v %v, want Kitchen 19.5 true false", name, temp, heating, frost)
	}

	// Rollback after commit is a no-op.
	if err := batch.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit error = %v", err)
	}
}

func TestSQLite_RollbackDiscardsRows(t *testing.T) {
	s := openTestSQLite(t)
	ctx := context.Background()

	batch, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := batch.Insert(ctx, testRows()[0]); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := batch.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	if n := countRows(t, s); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestSQLite_CancelledContext(t *testing.T) {
	s := openTestSQLite(t)
	ctx, cancel := context.WithCancel(context.Background())

	batch, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := batch.Insert(ctx, testRows()[0]); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}

	cancel()

	if err := batch.Insert(ctx, testRows()[1]); !errors.Is(err, ErrInsertFailed) {
		t.Errorf("Insert() after cancel error = %v, want ErrInsertFailed", err)
	}
	if err := batch.Commit(ctx); !errors.Is(err, ErrCommitFailed) {
		t.Errorf("Commit() after cancel error = %v, want ErrCommitFailed", err)
	}
	// The transaction survived the cancellation and can still be rolled back.
	if err := batch.Rollback(); err != nil {
		t.Errorf("Rollback() error = %v", err)
	}
	if n := countRows(t, s); n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestSQLite_ReopenKeepsSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "readings.db")
	cfg := config.StorageConfig{Driver: config.StorageDriverSQLite, Path: path, BusyTimeout: 5}
	ctx := context.Background()

	first, err := OpenSQLite(ctx, cfg)
	if err != nil {
		t.Fatalf("OpenSQLite() error = %v", err)
	}
	batch, err := first.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if err := batch.Insert(ctx, testRows()[0]); err != nil {
		t.Fatalf("Insert() error = %v", err)
	}
	if err := batch.Commit(ctx); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
	first.Close()

	second, err := OpenSQLite(ctx, cfg)
	if err != nil {
		t.Fatalf("second OpenSQLite() error = %v", err)
	}
	defer second.Close()

	if n := countRows(t, second); n != 1 {
		t.Errorf("rows after reopen = %d, want 1", n)
	}
}

func TestSQLite_HealthCheck(t *testing.T) {
	s := openTestSQLite(t)

	if err := s.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := s.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close() should fail")
	}
}
