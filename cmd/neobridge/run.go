package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/nerrad567/neobridge/internal/api"
	"github.com/nerrad567/neobridge/internal/command"
	"github.com/nerrad567/neobridge/internal/hub"
	"github.com/nerrad567/neobridge/internal/infrastructure/config"
	"github.com/nerrad567/neobridge/internal/infrastructure/influxdb"
	"github.com/nerrad567/neobridge/internal/infrastructure/logging"
	"github.com/nerrad567/neobridge/internal/infrastructure/mqtt"
	"github.com/nerrad567/neobridge/internal/poller"
	"github.com/nerrad567/neobridge/internal/storage"
)

// runCommand executes one hub operation and returns its exit code.
// Logs go to stderr so stdout carries only the command's output.
func runCommand(ctx context.Context, cfg *config.Config, args []string, stdout io.Writer) int {
	if cfg.Logging.Output == "stdout" {
		cfg.Logging.Output = "stderr"
	}
	log, err := logging.New(cfg.Logging, version)
	if err != nil {
		log = logging.Default()
		log.Warn("falling back to default logger", "error", err)
	}
	defer log.Close()

	hubClient, err := hub.New(cfg.Hub, log)
	if err != nil {
		log.Error("creating hub client", "error", err)
		return command.ExitFailure
	}

	policy := command.Explicit
	if cfg.Command.LegacyTruthiness {
		policy = command.Legacy
	}

	d := command.New(command.Options{
		Hub:    hubClient,
		Policy: policy,
		Out:    stdout,
		Logger: log,
	})
	return d.Run(ctx, args[0], args[1:])
}

// runPoll is the continuous bridge: it connects the bus and optional sinks,
// then polls until ctx is cancelled.
//
// Parameters:
//   - ctx: Context for cancellation and shutdown signals
//   - cfg: Validated configuration
//
// Returns:
//   - error: nil on clean shutdown, or error describing a startup failure
func runPoll(ctx context.Context, cfg *config.Config) error {
	log, err := logging.New(cfg.Logging, version)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close()

	log.Info("starting neobridge",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	hubClient, err := hub.New(cfg.Hub, log.With("component", "hub"))
	if err != nil {
		return fmt.Errorf("creating hub client: %w", err)
	}
	log.Info("hub configured", "address", hubClient.Address())

	// Connect to MQTT broker
	mqttClient, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	mqttClient.SetLogger(log.With("component", "mqtt"))
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := mqttClient.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	log.Info("MQTT connected",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
	)

	checks := make(map[string]api.HealthChecker)

	var sink storage.Sink
	if cfg.Storage.Enabled() {
		sink, err = storage.Open(ctx, cfg.Storage)
		if err != nil {
			return fmt.Errorf("opening storage: %w", err)
		}
		defer func() {
			log.Info("closing storage")
			if closeErr := sink.Close(); closeErr != nil {
				log.Error("error closing storage", "error", closeErr)
			}
		}()
		log.Info("storage connected", "sink", storage.Describe(cfg.Storage))
		checks["storage"] = sink
	}

	var recorders []poller.Recorder
	if influx := connectInflux(ctx, cfg.InfluxDB, log); influx != nil {
		defer func() {
			log.Info("closing InfluxDB")
			if closeErr := influx.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		recorders = append(recorders, influx)
		checks["influxdb"] = influx
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := poller.New(poller.Options{
		Hub:           hubClient,
		Publisher:     mqttClient,
		Sink:          sink,
		Recorders:     recorders,
		Topic:         cfg.Poll.Topic,
		Policy:        poller.NewPolicy(cfg.Poll),
		CommitTimeout: cfg.Storage.CommitTimeout,
		Logger:        log.With("component", "poller"),
		Metrics:       poller.NewMetrics(reg),
	})
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}

	if cfg.API.Enabled {
		srv, err := api.New(api.Deps{
			Logger:   log.With("component", "api"),
			Config:   cfg.API,
			Bus:      mqttClient,
			Cycles:   engine,
			Checks:   checks,
			Gatherer: reg,
			Version:  version,
		})
		if err != nil {
			return fmt.Errorf("creating API server: %w", err)
		}
		if err := srv.Start(ctx); err != nil {
			return fmt.Errorf("starting API server: %w", err)
		}
		defer func() {
			if closeErr := srv.Close(); closeErr != nil {
				log.Error("error closing API server", "error", closeErr)
			}
		}()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return engine.Run(gctx)
	})
	g.Go(func() error {
		watchBus(gctx, mqttClient, log)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// connectInflux returns the InfluxDB recorder, or nil when it is disabled
// or unreachable. An unreachable server is logged and polling continues
// without it.
func connectInflux(ctx context.Context, cfg config.InfluxDBConfig, log *logging.Logger) *influxdb.Recorder {
	rec, err := influxdb.Connect(ctx, cfg)
	if errors.Is(err, influxdb.ErrDisabled) {
		return nil
	}
	if err != nil {
		log.Warn("InfluxDB unavailable, continuing without it", "error", err)
		return nil
	}

	rec.OnWriteError(func(err error) {
		log.Warn("InfluxDB write failed", "bucket", rec.Bucket(), "error", err)
	})
	log.Info("InfluxDB connected", "url", cfg.URL, "bucket", rec.Bucket())
	return rec
}

// watchBus logs bus connection transitions until ctx is done.
func watchBus(ctx context.Context, bus *mqtt.Client, log *logging.Logger) {
	changes := bus.StateChanges()
	for {
		select {
		case <-ctx.Done():
			return
		case state, ok := <-changes:
			if !ok {
				return
			}
			if state == mqtt.StateConnected {
				log.Info("MQTT connection state", "state", state.String())
			} else {
				log.Warn("MQTT connection state", "state", state.String())
			}
		}
	}
}
