package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "canvas_bridge"

var (
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "handler_errors_total", Help: "HTTP handler errors answered with 4xx/5xx",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})

	LMSRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "lms_requests_total", Help: "LMS API requests by method and status code",
	}, []string{"method", "status"})
	LMSDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace, Name: "lms_request_duration_seconds", Help: "LMS API request latency",
		Buckets: prometheus.DefBuckets,
	})
	LMSRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace, Name: "lms_retries_total", Help: "LMS requests retried after a rate limit",
	})

	SyncRuns = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "sync_runs_total", Help: "Sync flow runs",
	}, []string{"flow"})
	SyncRows = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace, Name: "sync_rows_total", Help: "Rows processed by sync flows",
	}, []string{"flow", "outcome"})
	SyncDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace, Name: "sync_run_duration_seconds", Help: "Sync flow run duration",
		Buckets: prometheus.DefBuckets,
	}, []string{"flow"})
)

func init() {
	prometheus.MustRegister(
		HandlerErrors, DBPing,
		LMSRequests, LMSDuration, LMSRetries,
		SyncRuns, SyncRows, SyncDuration,
	)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveLMS records one LMS round trip. status 0 means a transport error.
func ObserveLMS(method string, status int, d time.Duration) {
	LMSRequests.WithLabelValues(method, strconv.Itoa(status)).Inc()
	LMSDuration.Observe(d.Seconds())
}

func ObserveSyncRun(flow string, d time.Duration) {
	SyncRuns.WithLabelValues(flow).Inc()
	SyncDuration.WithLabelValues(flow).Observe(d.Seconds())
}

func CountSyncRow(flow, outcome string) { SyncRows.WithLabelValues(flow, outcome).Inc() }
