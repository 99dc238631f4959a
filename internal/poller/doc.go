// Package poller runs the bridge's poll loop.
//
// Each cycle fetches the device map from the hub, builds a fresh
// snapshot, publishes it as one JSON payload, and, when a storage sink is
// configured, appends one row per reading in a single batch. Optional
// recorders (InfluxDB) receive the same readings.
//
// A step failure is logged, counted in the Prometheus collectors and
// recorded in the cycle report; the loop keeps going. Publishing and
// persisting do not depend on each other.
//
// The wait between cycles comes from a Policy: a fixed interval, or an
// exponential backoff after failed cycles that resets on success.
//
// Usage:
//
//	engine, err := poller.New(poller.Options{
//	    Hub:       hubClient,
//	    Publisher: mqttClient,
//	    Sink:      sink,
//	    Policy:    poller.NewPolicy(cfg.Poll),
//	    Logger:    log,
//	})
//	if err != nil {
//	    return err
//	}
//	return engine.Run(ctx) // nil after ctx is cancelled
package poller
