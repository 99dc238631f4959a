package poller

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/neobridge/internal/hub"
	"github.com/nerrad567/neobridge/internal/snapshot"
	"github.com/nerrad567/neobridge/internal/storage"
)

// defaultCommitTimeout bounds a commit once it has started.
const defaultCommitTimeout = 10 * time.Second

// DeviceSource fetches the current device map from the hub.
type DeviceSource interface {
	Devices(ctx context.Context) (map[string]hub.Device, error)
}

// Publisher sends a payload to the message bus.
type Publisher interface {
	PublishDefault(topic string, payload []byte) error
}

// Recorder receives every reading of a cycle, best effort.
type Recorder interface {
	RecordReading(r snapshot.DeviceReading, at time.Time)
}

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configures an Engine. Hub and Publisher are required.
type Options struct {
	Hub       DeviceSource
	Publisher Publisher

	// Sink is optional; without one readings are only published.
	Sink storage.Sink

	Recorders []Recorder

	// Topic defaults to heating/state.
	Topic string

	// Policy defaults to a fixed 60s wait.
	Policy *Policy

	// CommitTimeout bounds a sink commit after it has started.
	CommitTimeout time.Duration

	Logger  Logger
	Metrics *Metrics
}

// Engine runs the poll loop: fetch, build, publish, persist, wait.
type Engine struct {
	hub           DeviceSource
	pub           Publisher
	sink          storage.Sink
	recorders     []Recorder
	topic         string
	policy        *Policy
	commitTimeout time.Duration
	logger        Logger
	metrics       *Metrics
	now           func() time.Time

	running atomic.Bool

	mu   sync.RWMutex
	last *CycleReport
}

// New validates opts and returns an idle Engine.
func New(opts Options) (*Engine, error) {
	if opts.Hub == nil {
		return nil, fmt.Errorf("%w: hub", ErrMissingDependency)
	}
	if opts.Publisher == nil {
		return nil, fmt.Errorf("%w: publisher", ErrMissingDependency)
	}

	e := &Engine{
		hub:           opts.Hub,
		pub:           opts.Publisher,
		sink:          opts.Sink,
		recorders:     opts.Recorders,
		topic:         opts.Topic,
		policy:        opts.Policy,
		commitTimeout: opts.CommitTimeout,
		logger:        opts.Logger,
		metrics:       opts.Metrics,
		now:           time.Now,
	}
	if e.topic == "" {
		e.topic = "heating/state"
	}
	if e.policy == nil {
		e.policy = FixedPolicy(time.Minute)
	}
	if e.commitTimeout <= 0 {
		e.commitTimeout = defaultCommitTimeout
	}
	if e.logger == nil {
		e.logger = noopLogger{}
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e, nil
}

// Run polls until ctx is cancelled. The first cycle starts immediately
// and cycles never overlap. Cancellation is a clean stop and returns nil.
//
// Returns:
//   - error: ErrAlreadyRunning if another Run is active, nil otherwise
func (e *Engine) Run(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer e.running.Store(false)

	e.logger.Info("poll loop started", "topic", e.topic, "interval", e.policy.Interval())
	for {
		if ctx.Err() != nil {
			e.logger.Info("poll loop stopped")
			return nil
		}

		report := e.RunCycle(ctx)
		if ctx.Err() != nil {
			e.logger.Info("poll loop stopped")
			return nil
		}

		wait := e.policy.Next(report.Failed(StageFetch) || report.Failed(StagePublish))
		e.logger.Debug("waiting for next cycle", "wait", wait)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.logger.Info("poll loop stopped")
			return nil
		case <-timer.C:
		}
	}
}

// RunCycle performs one fetch, build, publish and persist pass.
// Step failures are recorded in the report and logged; they never panic
// or abort the caller's loop.
func (e *Engine) RunCycle(ctx context.Context) CycleReport {
	report := CycleReport{ID: uuid.NewString(), StartedAt: e.now()}
	defer func() {
		report.Duration = e.now().Sub(report.StartedAt)
		e.metrics.observe(report)
		e.setLast(report)
	}()

	devices, err := e.hub.Devices(ctx)
	if err != nil {
		report.fail(StageFetch, err)
		e.logger.Warn("fetching devices failed", "cycle", report.ID, "error", err)
		return report
	}

	snap := snapshot.Build(devices)
	report.Devices = len(snap)

	// A payload that cannot be encoded only skips the publish; the
	// readings still go to the sink and the recorders.
	payload, err := snapshot.Marshal(snap)
	if err != nil {
		report.fail(StageMarshal, err)
		e.logger.Error("encoding snapshot failed", "cycle", report.ID, "error", err)
	} else {
		report.Payload = payload
		e.logger.Info("snapshot", "cycle", report.ID, "devices", report.Devices, "payload", string(payload))
		e.publish(&report, payload)
	}

	readings := snap.Readings()
	if e.sink != nil {
		if err := e.persist(ctx, readings, report.StartedAt); err != nil {
			report.fail(StagePersist, err)
			e.logger.Error("persisting readings failed", "cycle", report.ID, "error", err)
		} else {
			report.Persisted = true
		}
	}

	for _, rec := range e.recorders {
		for _, r := range readings {
			rec.RecordReading(r, report.StartedAt)
		}
	}

	return report
}

func (e *Engine) publish(report *CycleReport, payload []byte) {
	if err := e.pub.PublishDefault(e.topic, payload); err != nil {
		report.fail(StagePublish, err)
		e.logger.Warn("publishing snapshot failed", "cycle", report.ID, "topic", e.topic, "error", err)
		return
	}
	report.Published = true
}

// persist writes readings in one batch. A cancellation seen before the
// commit rolls the batch back; a commit that has started runs to the end
// under its own timeout.
func (e *Engine) persist(ctx context.Context, readings []snapshot.DeviceReading, at time.Time) error {
	batch, err := e.sink.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning batch: %w", err)
	}

	for _, r := range readings {
		if err := ctx.Err(); err != nil {
			e.rollback(batch)
			return fmt.Errorf("%w: %w", ErrInterrupted, err)
		}
		if err := batch.Insert(ctx, storage.RowFromReading(r, at)); err != nil {
			e.rollback(batch)
			if ctx.Err() != nil {
				return fmt.Errorf("%w: %w", ErrInterrupted, err)
			}
			return err
		}
	}
	if err := ctx.Err(); err != nil {
		e.rollback(batch)
		return fmt.Errorf("%w: %w", ErrInterrupted, err)
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.commitTimeout)
	defer cancel()
	if err := batch.Commit(commitCtx); err != nil {
		e.rollback(batch)
		return err
	}
	return nil
}

func (e *Engine) rollback(batch storage.Batch) {
	if err := batch.Rollback(); err != nil {
		e.logger.Warn("rolling back batch failed", "error", err)
	}
}

// LastReport returns the most recent cycle report, if any cycle has run.
func (e *Engine) LastReport() (CycleReport, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.last == nil {
		return CycleReport{}, false
	}
	return *e.last, true
}

func (e *Engine) setLast(r CycleReport) {
	e.mu.Lock()
	e.last = &r
	e.mu.Unlock()
}
