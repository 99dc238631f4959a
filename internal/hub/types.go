package hub

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// deviceTypePlug is the DEVICE_TYPE the hub reports for a smart plug.
const deviceTypePlug = 6

// Temperature decodes the hub's CURRENT_TEMPERATURE, which newer firmware
// sends as a quoted string and older firmware as a number.
type Temperature float64

// UnmarshalJSON accepts "19.5", 19.5 or "" (treated as zero). NaN and
// infinities are rejected with ErrInvalidTemperature.
func (t *Temperature) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		if s == "" {
			*t = 0
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("temperature %q: %w", s, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %q", ErrInvalidTemperature, s)
		}
		*t = Temperature(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*t = Temperature(v)
	return nil
}

// record is one entry of the INFO "devices" array.
type record struct {
	Name        string      `json:"device"`
	ID          int         `json:"DEVICE_ID"`
	Type        int         `json:"DEVICE_TYPE"`
	Temperature Temperature `json:"CURRENT_TEMPERATURE"`
	Heating     bool        `json:"HEATING"`
	Standby     bool        `json:"STANDBY"`
	Timer       bool        `json:"TIMER"`
	Offline     bool        `json:"OFFLINE"`
}

// infoResponse is the reply to an INFO request.
type infoResponse struct {
	Devices []json.RawMessage `json:"devices"`
}

// Device is a thermostat as reported by the hub.
type Device struct {
	Name        string
	ID          int
	Temperature float64
	Heating     bool
	Frost       bool
	Offline     bool
}

// DeviceID returns the hub's identifier for the thermostat.
func (d Device) DeviceID() int { return d.ID }

// CurrentTemperature returns the measured temperature.
func (d Device) CurrentTemperature() float64 { return d.Temperature }

// CurrentlyHeating reports whether the thermostat is calling for heat.
func (d Device) CurrentlyHeating() bool { return d.Heating }

// IsFrosted reports whether frost protection (standby) is engaged.
func (d Device) IsFrosted() bool { return d.Frost }

func (d Device) String() string {
	return fmt.Sprintf("Device(name=%q, id=%d, temperature=%.1f, heating=%t, frost=%t, offline=%t)",
		d.Name, d.ID, d.Temperature, d.Heating, d.Frost, d.Offline)
}

// Plug is a switchable smart outlet.
type Plug struct {
	Name    string
	ID      int
	On      bool
	Offline bool
}

func (p Plug) String() string {
	return fmt.Sprintf("Plug(name=%q, id=%d, on=%t, offline=%t)", p.Name, p.ID, p.On, p.Offline)
}

// Accepted reports whether a decoded hub response signals success.
// A null or false reply is a rejection, as is an object carrying an
// "error" key. Any other reply, including an empty object, is accepted.
func Accepted(response any) bool {
	switch v := response.(type) {
	case nil:
		return false
	case bool:
		return v
	case map[string]any:
		_, failed := v["error"]
		return !failed
	default:
		return true
	}
}
