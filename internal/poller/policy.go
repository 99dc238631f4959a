package poller

import (
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/nerrad567/neobridge/internal/infrastructure/config"
)

// Policy decides how long the engine idles between cycles.
//
// With the fixed strategy every wait is the base interval. With the
// exponential strategy each failed cycle doubles the wait up to the
// configured maximum, and a successful cycle drops it back to the interval.
type Policy struct {
	interval time.Duration
	max      time.Duration
	exp      *backoff.ExponentialBackOff
}

// NewPolicy builds the wait policy described by the poll section.
func NewPolicy(cfg config.PollConfig) *Policy {
	p := &Policy{interval: cfg.Interval, max: cfg.MaxInterval}
	if p.max < p.interval {
		p.max = p.interval
	}
	if cfg.Backoff == config.BackoffExponential {
		p.exp = &backoff.ExponentialBackOff{
			InitialInterval:     p.interval,
			RandomizationFactor: 0,
			Multiplier:          2,
			MaxInterval:         p.max,
		}
		p.reset()
	}
	return p
}

// FixedPolicy waits the same interval after every cycle.
func FixedPolicy(interval time.Duration) *Policy {
	return &Policy{interval: interval, max: interval}
}

// Next returns the wait after a cycle. failed reports whether the cycle
// could not fetch or publish.
func (p *Policy) Next(failed bool) time.Duration {
	if p.exp == nil {
		return p.interval
	}
	if !failed {
		p.reset()
		return p.interval
	}
	return p.clamp(p.exp.NextBackOff())
}

// Interval returns the base wait.
func (p *Policy) Interval() time.Duration {
	return p.interval
}

// reset restarts the sequence; the first value equals the base interval,
// so it is consumed here and the first failure waits twice as long.
func (p *Policy) reset() {
	p.exp.Reset()
	p.exp.NextBackOff()
}

func (p *Policy) clamp(d time.Duration) time.Duration {
	if d < p.interval {
		return p.interval
	}
	if d > p.max {
		return p.max
	}
	return d
}
