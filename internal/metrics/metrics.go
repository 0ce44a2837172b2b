package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	AuditWrites = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "davesrecords_audit_writes_total",
		Help: "Audit events written to the primary store, by class and outcome",
	}, []string{"class", "outcome"})

	AuditExportDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "davesrecords_audit_export_dropped_total",
		Help: "Audit events dropped because the export queue was full or the file write failed",
	})

	CollectionReads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "davesrecords_collection_reads_total",
		Help: "Collection page reads, by outcome",
	}, []string{"outcome"})

	CollectionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "davesrecords_collection_cache_total",
		Help: "Collection cache lookups, by result (hit, miss, bypass)",
	}, []string{"result"})

	CollectionInvalidatedKeys = promauto.NewCounter(prometheus.CounterOpts{
		Name: "davesrecords_collection_invalidated_keys_total",
		Help: "Cached collection pages removed by invalidation",
	})

	UpstreamRequests = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "davesrecords_discogs_request_duration_seconds",
		Help:    "Latency of Discogs API requests, by endpoint and status class",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "status"})

	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "davesrecords_ratelimit_denied_total",
		Help: "Requests denied by the public rate limiter",
	})
)
