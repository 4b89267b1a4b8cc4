package chat

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	gateDecisionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partdeck",
			Name:      "gate_decisions_total",
			Help:      "Total content gate decisions",
		},
		[]string{"decision"}, // "allowed", "rejected"
	)

	searchQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partdeck",
			Name:      "search_queries_total",
			Help:      "Total retrieval tool calls",
		},
		[]string{"tool"},
	)

	validationOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partdeck",
			Name:      "validation_outcomes_total",
			Help:      "Total response validation outcomes",
		},
		[]string{"outcome"}, // "passed", "failed"
	)

	validationRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "partdeck",
			Name:      "validation_retries_total",
			Help:      "Total response rewrites triggered by failed validation",
		},
	)

	llmCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "partdeck",
			Name:      "llm_calls_total",
			Help:      "Total LLM API calls",
		},
		[]string{"status"}, // "success", "error"
	)

	llmDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "partdeck",
			Name:      "llm_duration_seconds",
			Help:      "Duration of LLM API calls in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10), // 100ms to ~50s
		},
	)

	conversationsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "partdeck",
			Name:      "conversations_active",
			Help:      "Number of chat requests currently being processed",
		},
	)
)
