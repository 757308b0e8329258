package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sleepy_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sleepy_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	StreamSessionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sleepy_stream_sessions_active",
			Help: "Number of connected event stream sessions",
		},
		[]string{"transport"},
	)

	StreamEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sleepy_stream_events_total",
			Help: "Events written to stream sessions",
		},
		[]string{"event"},
	)

	StreamCoalescedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sleepy_stream_coalesced_total",
			Help: "Snapshots replaced in a subscriber mailbox before delivery",
		},
	)

	DevicesReported = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sleepy_devices",
			Help: "Number of devices in the device table",
		},
	)

	DeviceReportsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sleepy_device_reports_total",
			Help: "Accepted device reports",
		},
	)

	StatusSwitchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "sleepy_status_switches_total",
			Help: "Successful status changes",
		},
	)
)

// ObserveDevices records the current device table size.
func ObserveDevices(n int) {
	DevicesReported.Set(float64(n))
}
