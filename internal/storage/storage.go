package storage

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
	"github.com/nerrad567/neobridge/internal/snapshot"
)

// Row is one line of the readings table.
type Row struct {
	ThermoID    int
	Name        string
	Temperature float64
	Heating     bool
	Frost       bool
	RecordedAt  time.Time
}

// RowFromReading converts a snapshot reading taken at the given time.
func RowFromReading(r snapshot.DeviceReading, at time.Time) Row {
	return Row{
		ThermoID:    r.ID,
		Name:        r.Name,
		Temperature: r.Temperature,
		Heating:     r.Heating,
		Frost:       r.Frost,
		RecordedAt:  at.UTC(),
	}
}

// Sink stores readings in batches, one batch per poll cycle.
type Sink interface {
	// Begin opens a batch. The batch outlives cancellation of ctx so a
	// commit that has started always completes or fails as a whole.
	Begin(ctx context.Context) (Batch, error)

	// HealthCheck reports whether the backing database answers.
	HealthCheck(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

// Batch collects the rows of one cycle.
//
// Insert observes ctx and fails once it is cancelled. Either Commit or
// Rollback ends the batch; calling Rollback after Commit is a no-op.
type Batch interface {
	Insert(ctx context.Context, row Row) error
	Commit(ctx context.Context) error
	Rollback() error
}

// Open creates the sink selected by cfg.Driver.
//
// Returns:
//   - Sink: Ready-to-use sink with its schema in place
//   - error: ErrUnsupportedDriver, or the driver's connection/migration error
func Open(ctx context.Context, cfg config.StorageConfig) (Sink, error) {
	switch cfg.Driver {
	case config.StorageDriverSQLite:
		s, err := OpenSQLite(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return s, nil
	case config.StorageDriverPostgres:
		g, err := OpenPostgres(cfg)
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}
}

// Describe returns a log-safe description of the configured sink.
func Describe(cfg config.StorageConfig) string {
	switch cfg.Driver {
	case config.StorageDriverSQLite:
		return "sqlite:" + cfg.Path
	case config.StorageDriverPostgres:
		return "postgres://" + cfg.User + "@" + cfg.Host + ":" + strconv.Itoa(cfg.Port) + "/" + cfg.Name
	default:
		return "none"
	}
}
