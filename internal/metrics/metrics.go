// Package metrics exposes Prometheus collectors shared by the API and
// worker services.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsProcessed counts finished verification jobs by terminal status.
	JobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "docverify",
		Name:      "jobs_processed_total",
		Help:      "Number of verification jobs processed, partitioned by terminal status.",
	}, []string{"status"})

	// JobsInFlight tracks jobs currently being processed by this instance.
	JobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "docverify",
		Name:      "jobs_in_flight",
		Help:      "Number of verification jobs currently being processed.",
	})

	// StageDuration observes wall-clock time per pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docverify",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each verification pipeline stage.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"stage"})

	// ExtractionFallbacks counts extraction calls served by a fallback model.
	ExtractionFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "docverify",
		Name:      "extraction_fallbacks_total",
		Help:      "Number of extractions that fell through to a fallback model.",
	})

	// RequestDuration observes HTTP request latency on the API service.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "docverify",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests handled by the API service.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
