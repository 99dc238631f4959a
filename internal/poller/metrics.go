package poller

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	cycles        *prometheus.CounterVec
	failures      *prometheus.CounterVec
	duration      prometheus.Histogram
	devices       prometheus.Gauge
	lastSuccess   prometheus.Gauge
	rowsCommitted prometheus.Counter
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neobridge_poll_cycles_total",
				Help: "Poll cycles run, by result",
			},
			[]string{"result"}, // ok or failed
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "neobridge_poll_failures_total",
				Help: "Poll cycle step failures, by stage",
			},
			[]string{"stage"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "neobridge_poll_cycle_duration_seconds",
				Help:    "Time taken by one poll cycle",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
		),
		devices: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neobridge_poll_devices",
				Help: "Number of devices in the last snapshot",
			},
		),
		lastSuccess: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "neobridge_poll_last_success_timestamp_seconds",
				Help: "Unix time of the last cycle that fetched and published",
			},
		),
		rowsCommitted: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "neobridge_storage_rows_committed_total",
				Help: "Readings committed to the storage sink",
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Collectors()...)
	}
	return m
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.cycles,
		m.failures,
		m.duration,
		m.devices,
		m.lastSuccess,
		m.rowsCommitted,
	}
}

func (m *Metrics) observe(r CycleReport) {
	result := "ok"
	if !r.OK() {
		result = "failed"
	}
	m.cycles.WithLabelValues(result).Inc()
	for _, e := range r.Errors {
		m.failures.WithLabelValues(string(e.Stage)).Inc()
	}
	m.duration.Observe(r.Duration.Seconds())
	m.devices.Set(float64(r.Devices))
	if !r.Failed(StageFetch) && r.Published {
		m.lastSuccess.Set(float64(r.StartedAt.Unix()))
	}
	if r.Persisted {
		m.rowsCommitted.Add(float64(r.Devices))
	}
}
