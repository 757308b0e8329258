package models

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"
)

func intPtr(v int) *int { return &v }

func TestDeviceReportValidate(t *testing.T) {
	tests := []struct {
		name   string
		report DeviceReport
		field  string
	}{
		{"ok", DeviceReport{ID: "dev-a"}, ""},
		{"missing id", DeviceReport{}, "id"},
		{"long id", DeviceReport{ID: strings.Repeat("x", 129)}, "id"},
		{"battery too high", DeviceReport{ID: "a", BatteryPercent: intPtr(101)}, "battery_percent"},
		{"battery negative", DeviceReport{ID: "a", BatteryPercent: intPtr(-1)}, "battery_percent"},
		{"battery bounds", DeviceReport{ID: "a", BatteryPercent: intPtr(100)}, ""},
		{"battery status", DeviceReport{ID: "a", BatteryStatus: "full"}, "battery_status"},
		{"app without name", DeviceReport{ID: "a", ActiveApp: &AppInfo{Title: "x"}}, "active_app.name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.report.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Validate() = %v, want *ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field = %q, want %q", verr.Field, tt.field)
			}
		})
	}
}

func TestReportRecordDefaults(t *testing.T) {
	seen := time.Unix(1700000000, 0)
	rec := DeviceReport{ID: "dev-a", AppName: "editor"}.Record(seen)

	if rec.ShowName != "dev-a" {
		t.Errorf("ShowName = %q, want id", rec.ShowName)
	}
	if rec.Status != "editor" {
		t.Errorf("Status = %q, want legacy app_name", rec.Status)
	}
	if rec.BatteryStatus != BatteryUnknown {
		t.Errorf("BatteryStatus = %q, want %q", rec.BatteryStatus, BatteryUnknown)
	}
	if !rec.LastSeen.Time().Equal(seen) {
		t.Errorf("LastSeen = %v, want %v", rec.LastSeen.Time(), seen)
	}
}

func TestRecordDoesNotAliasReport(t *testing.T) {
	report := DeviceReport{
		ID:             "dev-a",
		BatteryPercent: intPtr(80),
		ActiveApp:      &AppInfo{Name: "term", PID: intPtr(42)},
		Fields:         map[string]any{"nested": map[string]any{"k": "v"}, "list": []any{"a"}},
	}
	rec := report.Record(time.Now())

	*report.BatteryPercent = 1
	*report.ActiveApp.PID = 1
	report.Fields["nested"].(map[string]any)["k"] = "changed"
	report.Fields["list"].([]any)[0] = "changed"

	if *rec.BatteryPercent != 80 {
		t.Errorf("BatteryPercent = %d, want 80", *rec.BatteryPercent)
	}
	if *rec.ActiveApp.PID != 42 {
		t.Errorf("PID = %d, want 42", *rec.ActiveApp.PID)
	}
	if got := rec.Fields["nested"].(map[string]any)["k"]; got != "v" {
		t.Errorf("nested field = %v, want v", got)
	}
	if got := rec.Fields["list"].([]any)[0]; got != "a" {
		t.Errorf("list field = %v, want a", got)
	}
}

func TestTimestampJSON(t *testing.T) {
	ts := Timestamp(time.UnixMilli(1700000000123))
	b, err := json.Marshal(ts)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(b) != "1700000000.123" {
		t.Fatalf("Marshal = %s, want 1700000000.123", b)
	}

	var back Timestamp
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Time().Equal(ts.Time()) {
		t.Errorf("round trip = %v, want %v", back.Time(), ts.Time())
	}

	zero, _ := json.Marshal(Timestamp{})
	if string(zero) != "0" {
		t.Errorf("zero = %s, want 0", zero)
	}
}

func TestEncodeViewEmptyDevices(t *testing.T) {
	b, err := EncodeView(FullView{Success: true, Status: UnknownStatus(3), Generation: 9})
	if err != nil {
		t.Fatalf("EncodeView: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if devices, ok := out["device"].([]any); !ok || len(devices) != 0 {
		t.Errorf("device = %v, want []", out["device"])
	}
	if _, ok := out["generation"]; ok {
		t.Error("generation leaked into the view")
	}
	if _, ok := out["meta"]; ok {
		t.Error("meta present without being requested")
	}
	if status := out["status"].(map[string]any); status["id"] != float64(-1) || status["name"] != "[unknown]" {
		t.Errorf("status = %v, want unknown sentinel", status)
	}
}
