package poller

import "time"

// Stage names a step of a poll cycle.
type Stage string

// Cycle stages that can fail.
const (
	StageFetch   Stage = "fetch"
	StageMarshal Stage = "marshal"
	StagePublish Stage = "publish"
	StagePersist Stage = "persist"
)

// StageError is a failure recorded against one stage.
type StageError struct {
	Stage   Stage  `json:"stage"`
	Message string `json:"message"`
	err     error
}

// Unwrap returns the underlying error.
func (e StageError) Unwrap() error { return e.err }

func (e StageError) Error() string {
	return string(e.Stage) + ": " + e.Message
}

// CycleReport describes the outcome of one cycle.
type CycleReport struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
	Devices   int           `json:"devices"`
	Published bool          `json:"published"`
	Persisted bool          `json:"persisted"`
	Errors    []StageError  `json:"errors,omitempty"`

	// Payload is the JSON sent to the bus, nil if fetching or encoding failed.
	Payload []byte `json:"-"`
}

// OK reports whether no stage failed.
func (r CycleReport) OK() bool {
	return len(r.Errors) == 0
}

// Failed reports whether the given stage failed.
func (r CycleReport) Failed(s Stage) bool {
	for _, e := range r.Errors {
		if e.Stage == s {
			return true
		}
	}
	return false
}

// Err returns the error recorded for a stage, or nil.
func (r CycleReport) Err(s Stage) error {
	for _, e := range r.Errors {
		if e.Stage == s {
			return e
		}
	}
	return nil
}

func (r *CycleReport) fail(s Stage, err error) {
	r.Errors = append(r.Errors, StageError{Stage: s, Message: err.Error(), err: err})
}
