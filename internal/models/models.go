package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"
)

// StatusDefinition is one entry of the configured status list.
type StatusDefinition struct {
	ID          int    `json:"id" yaml:"id" toml:"id"`
	Name        string `json:"name" yaml:"name" toml:"name"`
	Color       string `json:"color" yaml:"color" toml:"color"`
	Icon        string `json:"icon" yaml:"icon" toml:"icon"`
	Description string `json:"description" yaml:"description" toml:"description"`
}

// UnknownStatus is returned when a selector no longer points into the
// configured list.
func UnknownStatus(id int) StatusDefinition {
	return StatusDefinition{
		ID:          -1,
		Name:        "[unknown]",
		Color:       "error",
		Icon:        "?",
		Description: fmt.Sprintf("unknown status id %d, check configuration", id),
	}
}

// BatteryStatus is the charging state reported by a device.
type BatteryStatus string

const (
	BatteryCharging    BatteryStatus = "charging"
	BatteryDischarging BatteryStatus = "discharging"
	BatteryUnknown     BatteryStatus = "unknown"
)

// Valid reports whether s is one of the known states. The empty value is
// accepted and treated as unknown.
func (s BatteryStatus) Valid() bool {
	switch s {
	case "", BatteryCharging, BatteryDischarging, BatteryUnknown:
		return true
	}
	return false
}

// AppInfo describes the foreground application of a device.
type AppInfo struct {
	Name  string `json:"name"`
	Title string `json:"title,omitempty"`
	PID   *int   `json:"pid,omitempty"`
}

// DeviceRecord is the last reported state of one device.
type DeviceRecord struct {
	ID             string         `json:"id"`
	ShowName       string         `json:"show_name"`
	Using          bool           `json:"using"`
	Status         string         `json:"status"`
	LastSeen       Timestamp      `json:"last_seen"`
	BatteryPercent *int           `json:"battery_percent,omitempty"`
	BatteryStatus  BatteryStatus  `json:"battery_status"`
	ActiveApp      *AppInfo       `json:"active_app,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`
}

// Clone returns a deep copy so callers never alias table internals.
func (d DeviceRecord) Clone() DeviceRecord {
	out := d
	if d.BatteryPercent != nil {
		v := *d.BatteryPercent
		out.BatteryPercent = &v
	}
	if d.ActiveApp != nil {
		app := *d.ActiveApp
		if app.PID != nil {
			pid := *app.PID
			app.PID = &pid
		}
		out.ActiveApp = &app
	}
	out.Fields = CloneFields(d.Fields)
	return out
}

// CloneFields deep-copies a decoded JSON object.
func CloneFields(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return CloneFields(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneValue(t[i])
		}
		return s
	default:
		return v
	}
}

// Timestamp marshals as fractional Unix seconds, the format dashboards
// already consume.
type Timestamp time.Time

// NewTimestamp wraps t.
func NewTimestamp(t time.Time) Timestamp { return Timestamp(t) }

func (t Timestamp) Time() time.Time { return time.Time(t) }

func (t Timestamp) IsZero() bool { return time.Time(t).IsZero() }

func (t Timestamp) MarshalJSON() ([]byte, error) {
	tt := time.Time(t)
	if tt.IsZero() {
		return []byte("0"), nil
	}
	return strconv.AppendFloat(nil, float64(tt.UnixMilli())/1000, 'f', 3, 64), nil
}

func (t *Timestamp) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return fmt.Errorf("timestamp: %w", err)
	}
	if f == 0 {
		*t = Timestamp{}
		return nil
	}
	sec, frac := math.Modf(f)
	*t = Timestamp(time.Unix(int64(sec), int64(math.Round(frac*1000))*int64(time.Millisecond)))
	return nil
}
