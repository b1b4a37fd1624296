package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "matchcast",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 30},
	}, []string{"method", "path"})

	ActiveStreams = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "matchcast",
		Name:      "active_streams",
		Help:      "Number of currently running transcode jobs.",
	})

	StreamsStarted = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "streams_started_total",
		Help:      "Total number of transcode jobs started.",
	})

	StreamsFailed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "streams_failed_total",
		Help:      "Total number of transcode jobs that exited with an error.",
	})

	StreamsKilled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "streams_killed_total",
		Help:      "Total number of transcode jobs killed on request.",
	})

	PlaylistsPruned = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "playlists_pruned_total",
		Help:      "Total number of expired locator playlists removed by the pruner.",
	})

	SegmentBytesServed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "segment_bytes_served_total",
		Help:      "Total bytes of media segments served to clients.",
	})

	FileRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "matchcast",
		Name:      "file_refreshes_total",
		Help:      "Total download URL refresh attempts by outcome.",
	}, []string{"outcome"})

	ServerPingSeconds = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "matchcast",
		Name:      "file_server_ping_seconds",
		Help:      "Last measured round-trip time to each file server.",
	}, []string{"server"})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ActiveStreams,
		StreamsStarted,
		StreamsFailed,
		StreamsKilled,
		PlaylistsPruned,
		SegmentBytesServed,
		FileRefreshes,
		ServerPingSeconds,
	)
}
