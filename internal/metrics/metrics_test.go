package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCountersAndGauge(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(DownloadEvents, Launches, ActiveProcesses, OutputLines, FetchLatency)

	DownloadEvents.WithLabelValues("trackstart").Inc()
	Launches.WithLabelValues(LaunchNotFound).Add(2)
	ActiveProcesses.Set(3)

	expectedEvents := `# HELP tunebridge_download_events_total Count of download events processed by the reconciler.
# TYPE tunebridge_download_events_total counter
tunebridge_download_events_total{type="trackstart"} 1
`
	if err := testutil.CollectAndCompare(DownloadEvents, strings.NewReader(expectedEvents)); err != nil {
		t.Fatalf("unexpected events metric: %v", err)
	}

	expectedLaunches := `# HELP tunebridge_launches_total Download process launches by result.
# TYPE tunebridge_launches_total counter
tunebridge_launches_total{result="not_found"} 2
`
	if err := testutil.CollectAndCompare(Launches, strings.NewReader(expectedLaunches)); err != nil {
		t.Fatalf("unexpected launches metric: %v", err)
	}

	expectedGauge := `# HELP tunebridge_active_processes Number of download processes currently running.
# TYPE tunebridge_active_processes gauge
tunebridge_active_processes 3
`
	if err := testutil.CollectAndCompare(ActiveProcesses, strings.NewReader(expectedGauge)); err != nil {
		t.Fatalf("unexpected active processes gauge: %v", err)
	}
}

func TestFetchLatencyHistogram(t *testing.T) {
	// fresh histogram to avoid cross-test contamination
	FetchLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "tunebridge",
			Name:      "fetch_latency_seconds",
			Help:      "Latency of item listing queries.",
		},
		[]string{"type"},
	)

	FetchLatency.WithLabelValues("album").Observe(0.03)
	FetchLatency.WithLabelValues("album").Observe(0.6)

	expected := `# HELP tunebridge_fetch_latency_seconds Latency of item listing queries.
# TYPE tunebridge_fetch_latency_seconds histogram
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.005"} 0
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.01"} 0
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.025"} 0
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.05"} 1
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.1"} 1
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.25"} 1
tunebridge_fetch_latency_seconds_bucket{type="album",le="0.5"} 1
tunebridge_fetch_latency_seconds_bucket{type="album",le="1"} 2
tunebridge_fetch_latency_seconds_bucket{type="album",le="2.5"} 2
tunebridge_fetch_latency_seconds_bucket{type="album",le="5"} 2
tunebridge_fetch_latency_seconds_bucket{type="album",le="10"} 2
tunebridge_fetch_latency_seconds_bucket{type="album",le="+Inf"} 2
tunebridge_fetch_latency_seconds_sum{type="album"} 0.63
tunebridge_fetch_latency_seconds_count{type="album"} 2
`
	if err := testutil.CollectAndCompare(FetchLatency, strings.NewReader(expected)); err != nil {
		t.Fatalf("unexpected histogram: %v", err)
	}
}
