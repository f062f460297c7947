// Package metrics содержит Prometheus метрики интервью-агента.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InterviewsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_calls_started_total",
		Help: "Total number of voice interview calls that reached the active state.",
	})

	InterviewsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_calls_completed_total",
		Help: "Total number of voice interview calls that reached the finished state.",
	})

	StartFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_call_start_failures_total",
		Help: "Total number of failed call starts, by error kind.",
	}, []string{"kind"})

	ActiveCalls = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "interview_calls_active",
		Help: "Current number of open call sessions.",
	})

	TranscriptEntries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_transcript_entries_total",
		Help: "Total number of final transcript entries, by speaker.",
	}, []string{"speaker"})

	QuestionsGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_questions_generated_total",
		Help: "Total number of interview questions produced by the generator.",
	})

	APICalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_llm_api_calls_total",
		Help: "Total number of LLM API calls, by provider and outcome.",
	}, []string{"provider", "outcome"})

	Persisted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_persist_total",
		Help: "Total number of interview persistence attempts, by outcome (saved/failed/skipped).",
	}, []string{"outcome"})
)

// IncrementAPICall учитывает вызов LLM API
func IncrementAPICall(provider string, success bool) {
	outcome := "error"
	if success {
		outcome = "success"
	}
	APICalls.WithLabelValues(provider, outcome).Inc()
}

// RecordPersist учитывает результат сохранения интервью
func RecordPersist(outcome string) {
	Persisted.WithLabelValues(outcome).Inc()
}

// RecordStartFailure учитывает неудачный старт звонка
func RecordStartFailure(kind string) {
	StartFailures.WithLabelValues(kind).Inc()
}
