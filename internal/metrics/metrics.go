// Package metrics declares the Prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// InferenceAttempts counts generation attempts by outcome
	// (ok, rate_limited, bad_request, unexpected, fatal).
	InferenceAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personaquiz_inference_attempts_total",
		Help: "Text generation attempts by outcome",
	}, []string{"outcome"})

	// InferenceDuration tracks the full retry sequence of one Generate call.
	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "personaquiz_inference_duration_seconds",
		Help:    "Duration of a Generate call including backoff",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~200s
	}, []string{"result"})

	// PromptTruncations counts prompts cut to the maximum length.
	PromptTruncations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "personaquiz_prompt_truncations_total",
		Help: "Prompts truncated before sending",
	})

	// AnalysisOutcomes counts analyze calls by outcome
	// (cached, computed, raced, insufficient, failed).
	AnalysisOutcomes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personaquiz_analysis_outcomes_total",
		Help: "Conversation analysis requests by outcome",
	}, []string{"outcome"})

	// Classifications counts quiz results by standard and code.
	Classifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personaquiz_classifications_total",
		Help: "Quiz classifications by standard and personality code",
	}, []string{"standard", "code"})

	// ChatSessions tracks session lifecycle events (created, deleted, rejected).
	ChatSessions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "personaquiz_chat_sessions_total",
		Help: "Chat session lifecycle events",
	}, []string{"event"})
)
