package snapshot

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Device is the read-only view of a thermostat that a reading is built from.
type Device interface {
	DeviceID() int
	CurrentTemperature() float64
	CurrentlyHeating() bool
	IsFrosted() bool
}

// DeviceReading is one device's state at fetch time.
// Name is carried for persistence; on the wire it is the map key.
type DeviceReading struct {
	ID          int     `json:"id"`
	Name        string  `json:"-"`
	Temperature float64 `json:"temperature"`
	Heating     bool    `json:"heating"`
	Frost       bool    `json:"frost"`
}

// Snapshot maps a device name to a one-element slice with its reading.
type Snapshot map[string][]DeviceReading

// Build creates a fresh Snapshot with exactly one entry per device name.
func Build[D Device](devices map[string]D) Snapshot {
	snap := make(Snapshot, len(devices))
	for name, d := range devices {
		snap[name] = []DeviceReading{{
			ID:          d.DeviceID(),
			Name:        name,
			Temperature: d.CurrentTemperature(),
			Heating:     d.CurrentlyHeating(),
			Frost:       d.IsFrosted(),
		}}
	}
	return snap
}

// Names returns the device names in ascending order.
func (s Snapshot) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Readings returns every reading ordered by device name.
func (s Snapshot) Readings() []DeviceReading {
	readings := make([]DeviceReading, 0, len(s))
	for _, name := range s.Names() {
		for _, r := range s[name] {
			r.Name = name
			readings = append(readings, r)
		}
	}
	return readings
}

// Marshal encodes the snapshot as the heating/state payload.
// Object keys are sorted, so equal snapshots encode to identical bytes.
func Marshal(s Snapshot) ([]byte, error) {
	if s == nil {
		s = Snapshot{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("snapshot: marshal: %w", err)
	}
	return data, nil
}
