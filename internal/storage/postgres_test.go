package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestGorm(t *testing.T) *Gorm {
	t.Helper()
	dsn := "file:storage_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	g, err := NewGorm(db)
	if err != nil {
		t.Fatalf("NewGorm() error = %v", err)
	}
	t.Cleanup(func() { g.Close() })
	return g
}

func TestGorm_CommitPersistsRows(t *testing.T) {
	g := newTestGorm(t)
	ctx := context.Background()

	batch, err := g.Begin(ctx)
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

	var got []Reading
	if err := g.db.Order("thermoid").Find(&got).Error; err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0].ID == uuid.Nil {
		t.Error("ID was not assigned")
	}
	if got[0].Name != "Kitchen" || got[0].ThermoID != 1 || !got[0].Heating {
		t.Errorf("first row = %+v", got[0])
	}
	if !got[1].Frost {
		t.Errorf("second row frost = false, want true")
	}

	if err := batch.Rollback(); err != nil {
		t.Errorf("Rollback() after Commit error = %v", err)
	}
	if err := batch.Commit(ctx); !errors.Is(err, ErrBatchClosed) {
		t.Errorf("second Commit() error = %v, want ErrBatchClosed", err)
	}
}

func TestGorm_RollbackAfterCancel(t *testing.T) {
	g := newTestGorm(t)
	ctx, cancel := context.WithCancel(context.Background())

	batch, err := g.Begin(ctx)
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
	if err := batch.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var n int64
	if err := g.db.Model(&Reading{}).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rows = %d, want 0", n)
	}
}

func TestReading_BeforeCreateKeepsExistingID(t *testing.T) {
	id := uuid.New()
	r := &Reading{ID: id, RecordedAt: time.Now()}
	if err := r.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate() error = %v", err)
	}
	if r.ID != id {
		t.Errorf("ID = %v, want %v", r.ID, id)
	}
}

func TestGorm_HealthCheck(t *testing.T) {
	g := newTestGorm(t)

	if err := g.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := g.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context should fail")
	}
}
