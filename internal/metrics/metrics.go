package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	BatchesCreated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screening_batches_created_total",
			Help: "Total number of screening batches accepted",
		},
	)

	ResumesSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_resumes_skipped_total",
			Help: "Total number of uploaded files rejected during ingestion",
		},
		[]string{"reason"},
	)

	TasksCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_tasks_completed_total",
			Help: "Total number of resume tasks finished, by outcome",
		},
		[]string{"outcome"},
	)

	TaskRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "screening_task_retries_total",
			Help: "Total number of resume tasks re-queued after a failure",
		},
	)

	TaskDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_task_duration_seconds",
			Help:    "Duration of resume task processing in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	TasksActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "screening_tasks_active",
			Help: "Number of resume tasks currently being processed",
		},
	)

	AnalysisRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_analysis_total",
			Help: "Total number of recommendation analyses, by source",
		},
		[]string{"source"},
	)

	LLMDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "screening_llm_request_duration_seconds",
			Help:    "Duration of LLM generation calls in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 45, 90},
		},
	)

	AnalyticsCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "screening_analytics_cache_lookups_total",
			Help: "Analytics cache lookups, by result",
		},
		[]string{"result"},
	)
)
