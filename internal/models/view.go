package models

import "encoding/json"

// Snapshot is the lightweight change notification handed to subscribers.
type Snapshot struct {
	StatusID    int       `json:"status_id"`
	LastUpdated Timestamp `json:"last_updated"`
	DeviceCount int       `json:"device_count"`
	// Generation increases by one on every visible mutation.
	Generation uint64 `json:"generation"`
}

// FullView is the aggregate served by polling reads and stream updates.
type FullView struct {
	Success     bool             `json:"success"`
	Time        Timestamp        `json:"time"`
	Status      StatusDefinition `json:"status"`
	Device      []DeviceRecord   `json:"device"`
	LastUpdated Timestamp        `json:"last_updated"`
	Meta        *Meta            `json:"meta,omitempty"`
	Metrics     *MetricsReport   `json:"metrics,omitempty"`

	Generation uint64 `json:"-"`
}

// Meta is the site metadata block.
type Meta struct {
	Version  string     `json:"version"`
	Timezone string     `json:"timezone"`
	Page     PageMeta   `json:"page"`
	Status   StatusMeta `json:"status"`
	Metrics  bool       `json:"metrics"`
}

type PageMeta struct {
	Name       string `json:"name"`
	Title      string `json:"title"`
	Desc       string `json:"desc"`
	Favicon    string `json:"favicon"`
	Background string `json:"background"`
	Theme      string `json:"theme"`
}

type StatusMeta struct {
	RefreshInterval int    `json:"refresh_interval"`
	NotUsing        string `json:"not_using"`
	Sorted          bool   `json:"sorted"`
	UsingFirst      bool   `json:"using_first"`
}

// MetricsReport holds the simple access counters.
type MetricsReport struct {
	SwitchCount int64            `json:"switch_count"`
	Requests    map[string]int64 `json:"requests"`
	Since       Timestamp        `json:"since"`
}

// EncodeView is the only serializer for FullView, shared by the polling
// handler and the stream writers.
func EncodeView(v FullView) ([]byte, error) {
	if v.Device == nil {
		v.Device = []DeviceRecord{}
	}
	return json.Marshal(v)
}
