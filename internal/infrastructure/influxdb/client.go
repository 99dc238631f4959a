package influxdb

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
	"github.com/nerrad567/neobridge/internal/snapshot"
)

const (
	// measurement is the series every thermostat reading is written to.
	measurement = "thermostat"

	pingTimeout = 5 * time.Second

	defaultBatchSize     = 100
	defaultFlushInterval = 10 * time.Second
)

// Recorder mirrors poll-cycle readings into an InfluxDB v2 bucket.
//
// Points are queued on the library's batched write API and sent in the
// background, so a slow or failing server never delays a cycle. Failed
// batches are reported to the OnWriteError callback.
type Recorder struct {
	client influxdb2.Client
	writer api.WriteAPI
	bucket string

	mu      sync.RWMutex
	closed  bool
	onError func(err error)
}

// Connect pings the server and returns a Recorder writing to cfg.Bucket.
//
// Parameters:
//   - ctx: Bounds the initial ping
//   - cfg: URL, token, org, bucket and batching settings
//
// Returns:
//   - *Recorder: Ready to record
//   - error: ErrDisabled when cfg.Enabled is false, ErrUnavailable when the ping fails
func Connect(ctx context.Context, cfg config.InfluxDBConfig) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := influxdb2.DefaultOptions().
		SetBatchSize(batchSize(cfg)).
		SetFlushInterval(uint(flushInterval(cfg).Milliseconds())) // #nosec G115 -- positive by construction
	client := influxdb2.NewClientWithOptions(cfg.URL, cfg.Token, opts)

	if err := ping(ctx, client); err != nil {
		client.Close()
		return nil, err
	}

	r := &Recorder{
		client: client,
		writer: client.WriteAPI(cfg.Org, cfg.Bucket),
		bucket: cfg.Bucket,
	}
	go r.forwardErrors(r.writer.Errors())
	return r, nil
}

// RecordReading queues one reading as a point tagged with the device name
// and id. It never blocks on the network and does nothing after Close.
//
//	thermostat,name=Kitchen,thermoid=1 frost=false,heating=true,temperature=19.5 1700000000000000000
func (r *Recorder) RecordReading(reading snapshot.DeviceReading, at time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.writer.WritePoint(write.NewPoint(
		measurement,
		map[string]string{
			"name":     reading.Name,
			"thermoid": strconv.Itoa(reading.ID),
		},
		map[string]any{
			"temperature": reading.Temperature,
			"heating":     reading.Heating,
			"frost":       reading.Frost,
		},
		at,
	))
}

// OnWriteError registers the callback for batches the server rejected.
func (r *Recorder) OnWriteError(fn func(err error)) {
	r.mu.Lock()
	r.onError = fn
	r.mu.Unlock()
}

// HealthCheck pings the server; it backs the "influxdb" entry of the
// status endpoint.
func (r *Recorder) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed {
		return ErrClosed
	}
	return ping(ctx, r.client)
}

// Bucket returns the bucket readings are written to.
func (r *Recorder) Bucket() string {
	return r.bucket
}

// Close sends any queued points and releases the client. It is safe to
// call more than once.
func (r *Recorder) Close() error {
	r.mu.Lock()
	if r.closed || r.client == nil {
		r.closed = true
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	r.mu.Unlock()

	r.writer.Flush()
	r.client.Close()
	return nil
}

func (r *Recorder) forwardErrors(errs <-chan error) {
	for err := range errs {
		r.mu.RLock()
		fn := r.onError
		r.mu.RUnlock()
		if fn != nil {
			fn(err)
		}
	}
}

func ping(ctx context.Context, client influxdb2.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if !healthy {
		return fmt.Errorf("%w: ping not ok", ErrUnavailable)
	}
	return nil
}

func batchSize(cfg config.InfluxDBConfig) uint {
	if cfg.BatchSize <= 0 {
		return defaultBatchSize
	}
	return uint(cfg.BatchSize) // #nosec G115 -- checked above
}

func flushInterval(cfg config.InfluxDBConfig) time.Duration {
	if cfg.FlushInterval <= 0 {
		return defaultFlushInterval
	}
	return time.Duration(cfg.FlushInterval) * time.Second
}
