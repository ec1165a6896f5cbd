package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	DownloadEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunebridge",
			Name:      "download_events_total",
			Help:      "Count of download events processed by the reconciler.",
		},
		[]string{"type"},
	)

	Launches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunebridge",
			Name:      "launches_total",
			Help:      "Download process launches by result.",
		},
		[]string{"result"},
	)

	ActiveProcesses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "tunebridge",
			Name:      "active_processes",
			Help:      "Number of download processes currently running.",
		},
	)

	OutputLines = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "tunebridge",
			Name:      "output_lines_total",
			Help:      "Downloader output lines by parsed kind.",
		},
		[]string{"kind"},
	)

	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunebridge",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of item listing queries.",
		},
		[]string{"type"},
	)
)

// Launch results.
const (
	LaunchOK       = "ok"
	LaunchNotFound = "not_found"
	LaunchError    = "error"
)

var registerOnce sync.Once

// Register registers the tunebridge metrics into the default registry. Later
// calls are no-ops.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(DownloadEvents, Launches, ActiveProcesses, OutputLines, FetchLatency)
	})
}
