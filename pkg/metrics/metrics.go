package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "appcenter", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "appcenter", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	StorageOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "appcenter", Name: "storage_operations_total", Help: "Document storage operations by operation and result kind."},
		[]string{"operation", "result"},
	)
	StorageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Namespace: "appcenter", Name: "storage_operation_duration_seconds", Help: "Latency of document storage operations.", Buckets: prometheus.DefBuckets},
		[]string{"operation"},
	)
	CacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "appcenter", Name: "cache_lookups_total", Help: "Document cache lookups by result (hit, miss, error)."},
		[]string{"result"},
	)
	MirrorFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "appcenter", Name: "mirror_failures_total", Help: "Failed object-store mirror writes by operation."},
		[]string{"operation"},
	)
	StoreUp = prometheus.NewGauge(
		prometheus.GaugeOpts{Namespace: "appcenter", Name: "store_up", Help: "1 when the last health check reached the document store."},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(StorageOperations)
	reg.MustRegister(StorageDuration)
	reg.MustRegister(CacheLookups)
	reg.MustRegister(MirrorFailures)
	reg.MustRegister(StoreUp)
}
