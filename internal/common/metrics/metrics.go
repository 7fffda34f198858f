// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	WorkerJobsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_completed_total",
			Help: "Total number of jobs completed by worker",
		},
		[]string{"task_type"},
	)

	WorkerJobsFailed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "worker_jobs_failed_total",
			Help: "Total number of jobs failed by worker",
		},
		[]string{"task_type", "error_code"},
	)

	WorkerJobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "worker_job_duration_seconds",
			Help: "Duration of job processing in seconds",
		},
		[]string{"task_type"},
	)

	AssistantTurns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_turns_total",
			Help: "Conversation turns handled, by resolved intent and reply source",
		},
		[]string{"intent", "source"},
	)

	AssistantTurnDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assistant_turn_duration_seconds",
			Help:    "End-to-end duration of a conversation turn",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 4, 8, 16},
		},
		[]string{"intent"},
	)

	LLMAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_attempts_total",
			Help: "Model calls made by the generation cascade",
		},
		[]string{"model", "outcome"},
	)

	LLMFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_llm_fallbacks_total",
			Help: "Turns or stages served by a deterministic fallback after the cascade was exhausted",
		},
		[]string{"stage"},
	)

	KnowledgeCacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_knowledge_cache_lookups_total",
			Help: "Tenant cache lookups in the knowledge base",
		},
		[]string{"result"},
	)

	EscalationsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assistant_escalations_total",
			Help: "Human handoff notices published",
		},
		[]string{"channel", "status"},
	)
)
