package models

import (
	"fmt"
	"time"
)

const maxDeviceIDLen = 128

// DeviceReport is the body a client posts to report its state.
type DeviceReport struct {
	ID             string         `json:"id"`
	ShowName       string         `json:"show_name,omitempty"`
	Using          bool           `json:"using"`
	Status         string         `json:"status"`
	BatteryPercent *int           `json:"battery_percent,omitempty"`
	BatteryStatus  BatteryStatus  `json:"battery_status,omitempty"`
	ActiveApp      *AppInfo       `json:"active_app,omitempty"`
	Fields         map[string]any `json:"fields,omitempty"`

	// AppName is the pre-"status" spelling still sent by old clients.
	AppName string `json:"app_name,omitempty"`
	// Secret is the in-body credential of old clients. Never stored.
	Secret string `json:"secret,omitempty"`
}

// ValidationError describes a rejected field of a request.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validate checks the report before it may touch any state.
func (r DeviceReport) Validate() error {
	if r.ID == "" {
		return &ValidationError{Field: "id", Reason: "missing device id"}
	}
	if len(r.ID) > maxDeviceIDLen {
		return &ValidationError{Field: "id", Reason: fmt.Sprintf("longer than %d bytes", maxDeviceIDLen)}
	}
	if r.BatteryPercent != nil && (*r.BatteryPercent < 0 || *r.BatteryPercent > 100) {
		return &ValidationError{Field: "battery_percent", Reason: fmt.Sprintf("%d not in 0..100", *r.BatteryPercent)}
	}
	if !r.BatteryStatus.Valid() {
		return &ValidationError{Field: "battery_status", Reason: fmt.Sprintf("unknown value %q", r.BatteryStatus)}
	}
	if r.ActiveApp != nil && r.ActiveApp.Name == "" {
		return &ValidationError{Field: "active_app.name", Reason: "missing application name"}
	}
	return nil
}

// Record converts the report into the stored form, stamped with seen.
func (r DeviceReport) Record(seen time.Time) DeviceRecord {
	rec := DeviceRecord{
		ID:             r.ID,
		ShowName:       r.ShowName,
		Using:          r.Using,
		Status:         r.Status,
		LastSeen:       Timestamp(seen),
		BatteryPercent: r.BatteryPercent,
		BatteryStatus:  r.BatteryStatus,
		ActiveApp:      r.ActiveApp,
		Fields:         r.Fields,
	}
	if rec.ShowName == "" {
		rec.ShowName = r.ID
	}
	if rec.Status == "" {
		rec.Status = r.AppName
	}
	if rec.BatteryStatus == "" {
		rec.BatteryStatus = BatteryUnknown
	}
	return rec.Clone()
}
