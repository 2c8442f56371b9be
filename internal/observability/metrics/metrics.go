package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailseat_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailseat_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	userOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailseat_user_operations_total",
		Help: "Count of directory operations by operation and result",
	}, []string{"operation", "result"})

	userCreateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "mailseat_user_create_duration_seconds",
		Help:    "Duration of addUser calls including validation",
		Buckets: prometheus.DefBuckets,
	}, []string{"result"})

	directoryUsers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "mailseat_directory_users",
		Help: "Number of users currently in the directory across all domains",
	})

	snapshotOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "mailseat_snapshot_operations_total",
		Help: "Count of snapshot persist/load operations by source and result",
	}, []string{"source", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveUserOperation increments the operation counter for the given
// operation (create, update, rename, delete) and result label.
func ObserveUserOperation(operation, result string) {
	userOperations.WithLabelValues(operation, result).Inc()
}

// ObserveUserCreate records the duration of an addUser call with a result
// label.
func ObserveUserCreate(result string, duration time.Duration) {
	userCreateDuration.WithLabelValues(result).Observe(duration.Seconds())
	ObserveUserOperation("create", result)
}

// SetDirectorySize sets the directory size gauge.
func SetDirectorySize(count int) {
	if count < 0 {
		count = 0
	}
	directoryUsers.Set(float64(count))
}

// ObserveSnapshot increments the snapshot counter for the given source and
// result.
func ObserveSnapshot(source, result string) {
	snapshotOperations.WithLabelValues(source, result).Inc()
}
