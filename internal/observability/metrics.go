package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OpParse  = "parse"
	OpEncode = "encode"
)

var (
	registerOnce sync.Once

	codecOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binstruct",
			Subsystem: "codec",
			Name:      "operations_total",
			Help:      "Top-level parse and encode calls.",
		},
		[]string{"schema", "op", "result"},
	)
	codecBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binstruct",
			Subsystem: "codec",
			Name:      "bytes_total",
			Help:      "Bytes consumed by parse or produced by encode.",
		},
		[]string{"schema", "op"},
	)
	codecDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "binstruct",
			Subsystem: "codec",
			Name:      "operation_duration_seconds",
			Help:      "Top-level parse and encode duration in seconds.",
			Buckets:   []float64{1e-6, 1e-5, 1e-4, 1e-3, 1e-2, 1e-1},
		},
		[]string{"schema", "op"},
	)
	trailingBytes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "binstruct",
			Subsystem: "codec",
			Name:      "trailing_bytes_total",
			Help:      "Unconsumed bytes tolerated by a lenient trailing-data policy.",
		},
		[]string{"schema"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(codecOperations, codecBytes, codecDuration, trailingBytes)
	})
}

// Collectors exposes the codec metrics for callers that use their own
// registry.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{codecOperations, codecBytes, codecDuration, trailingBytes}
}

func RecordCodec(schema, op string, n int, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	codecOperations.WithLabelValues(schema, op, result).Inc()
	if err == nil {
		codecBytes.WithLabelValues(schema, op).Add(float64(n))
	}
	codecDuration.WithLabelValues(schema, op).Observe(duration.Seconds())
}

func RecordTrailing(schema string, n int) {
	trailingBytes.WithLabelValues(schema).Add(float64(n))
}
