package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

// Reading is the gorm model of the readings table.
type Reading struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	ThermoID    int       `gorm:"column:thermoid;not null;index:idx_readings_thermoid_recorded_at,priority:1"`
	Name        string    `gorm:"not null"`
	Temperature float64   `gorm:"not null"`
	Heating     bool      `gorm:"not null"`
	Frost       bool      `gorm:"not null"`
	RecordedAt  time.Time `gorm:"not null;index:idx_readings_thermoid_recorded_at,priority:2"`
}

// TableName pins the table name used by every sink.
func (Reading) TableName() string {
	return "readings"
}

// BeforeCreate assigns a random id to new rows.
func (r *Reading) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// Gorm is a Sink writing through gorm, used for PostgreSQL.
type Gorm struct {
	db *gorm.DB
}

// OpenPostgres connects to PostgreSQL and migrates the readings table.
func OpenPostgres(cfg config.StorageConfig) (*Gorm, error) {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.Host, cfg.User, cfg.Password, cfg.Name, strconv.Itoa(cfg.Port), sslMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	return NewGorm(db)
}

// NewGorm migrates the readings table on db and returns a sink using it.
func NewGorm(db *gorm.DB) (*Gorm, error) {
	if err := db.AutoMigrate(&Reading{}); err != nil {
		return nil, fmt.Errorf("migrating readings: %w", err)
	}
	return &Gorm{db: db}, nil
}

// Begin opens a transaction detached from ctx's cancellation.
func (g *Gorm) Begin(ctx context.Context) (Batch, error) {
	tx := g.db.WithContext(context.WithoutCancel(ctx)).Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("starting transaction: %w", tx.Error)
	}
	return &gormBatch{tx: tx}, nil
}

// HealthCheck pings the database.
func (g *Gorm) HealthCheck(ctx context.Context) error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (g *Gorm) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

type gormBatch struct {
	tx   *gorm.DB
	done bool
}

func (b *gormBatch) Insert(ctx context.Context, row Row) error {
	if b.done {
		return ErrBatchClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	rec := &Reading{
		ThermoID:    row.ThermoID,
		Name:        row.Name,
		Temperature: row.Temperature,
		Heating:     row.Heating,
		Frost:       row.Frost,
		RecordedAt:  row.RecordedAt,
	}
	if err := b.tx.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("%w: %w", ErrInsertFailed, err)
	}
	return nil
}

func (b *gormBatch) Commit(ctx context.Context) error {
	if b.done {
		return ErrBatchClosed
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	b.done = true
	if err := b.tx.Commit().Error; err != nil {
		return fmt.Errorf("%w: %w", ErrCommitFailed, err)
	}
	return nil
}

func (b *gormBatch) Rollback() error {
	if b.done {
		return nil
	}
	b.done = true
	if err := b.tx.Rollback().Error; err != nil && !errors.Is(err, gorm.ErrInvalidTransaction) {
		return fmt.Errorf("storage: rollback: %w", err)
	}
	return nil
}
