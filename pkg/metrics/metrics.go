package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// DetectionsEmitted counts suspicious sequences emitted per detector
var DetectionsEmitted = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradewatch_detections_emitted_total",
		Help: "Total number of suspicious sequences emitted by each detector",
	},
	[]string{"detector"},
)

// DetectionLatency records latency distribution for detector runs
var DetectionLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tradewatch_detection_latency_seconds",
		Help:    "Latency in seconds for a single detector run over one batch",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"detector"},
)

// DetectorRetries counts retry attempts per detector
var DetectorRetries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradewatch_detector_retries_total",
		Help: "Total number of retried detector calls",
	},
	[]string{"detector"},
)

// DetectorFailures counts exhausted detector calls by failure class
var DetectorFailures = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tradewatch_detector_failures_total",
		Help: "Total number of detector calls that exhausted their retry budget",
	},
	[]string{"detector", "class"},
)

// Idempotency cache metrics
var (
	CacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewatch_idempotency_cache_hits_total",
			Help: "Number of detector calls served from the idempotency cache",
		},
	)

	CacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewatch_idempotency_cache_misses_total",
			Help: "Number of detector calls not found in the idempotency cache",
		},
	)

	CacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tradewatch_idempotency_cache_evictions_total",
			Help: "Number of idempotency cache entries evicted by the LRU policy",
		},
	)
)

func init() {
	prometheus.MustRegister(DetectionsEmitted, DetectionLatency)
	prometheus.MustRegister(DetectorRetries, DetectorFailures)
	prometheus.MustRegister(CacheHits, CacheMisses, CacheEvictions)
}
