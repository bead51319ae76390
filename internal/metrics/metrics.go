// Package metrics holds the Prometheus collectors for laplog.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	mutationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laplog",
		Subsystem: "store",
		Name:      "mutations_total",
		Help:      "Record store mutations by operation and outcome.",
	}, []string{"op", "outcome"})

	recordsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "laplog",
		Subsystem: "store",
		Name:      "records",
		Help:      "Number of records currently held by the store.",
	})

	persistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "laplog",
		Subsystem: "store",
		Name:      "last_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful write to the blob adapter.",
	})

	seriesDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "laplog",
		Subsystem: "series",
		Name:      "aggregate_duration_seconds",
		Help:      "Time spent building a monthly series.",
		Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 8),
	})

	replicationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laplog",
		Subsystem: "worker",
		Name:      "replications_total",
		Help:      "Replica syncs by outcome.",
	}, []string{"outcome"})

	httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "laplog",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "code"})

	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "laplog",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method"})

	rateLimitedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laplog",
		Subsystem: "http",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter.",
	})

	suspiciousTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "laplog",
		Subsystem: "http",
		Name:      "suspicious_requests_total",
		Help:      "Requests matching a known probe pattern.",
	})
)

func init() {
	prometheus.MustRegister(
		mutationsTotal, recordsGauge, persistGauge, seriesDuration, replicationsTotal,
		httpRequestsTotal, httpDuration, rateLimitedTotal, suspiciousTotal,
	)
}

// Outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeIOError = "io_error"
	OutcomeError   = "error"
	OutcomeSkipped = "skipped"
)

// RecordMutation counts one store mutation.
func RecordMutation(op, outcome string) {
	mutationsTotal.WithLabelValues(op, outcome).Inc()
}

// SetRecords reports the store size.
func SetRecords(n int) {
	recordsGauge.Set(float64(n))
}

// RecordPersisted updates the persistence watermark.
func RecordPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	persistGauge.Set(float64(ts.Unix()))
}

// ObserveAggregate records how long a series took to build.
func ObserveAggregate(d time.Duration) {
	seriesDuration.Observe(d.Seconds())
}

// RecordReplication counts one replica sync.
func RecordReplication(outcome string) {
	replicationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveHTTPRequest records one served request.
func ObserveHTTPRequest(method string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(method).Observe(d.Seconds())
}

func RecordRateLimited() {
	rateLimitedTotal.Inc()
}

func RecordSuspicious() {
	suspiciousTotal.Inc()
}
