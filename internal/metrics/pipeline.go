package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Recommendation pipeline Prometheus metrics.
var (
	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yescity",
			Name:      "pipeline_runs_total",
			Help:      "Total recommendation runs by category and outcome",
		},
		[]string{"category", "status"},
	)

	PipelineStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yescity",
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Duration of each recommendation stage in seconds",
			Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"stage"},
	)

	ClassificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yescity",
			Name:      "classifications_total",
			Help:      "Query classifications by source",
		},
		[]string{"source", "category"},
	)

	ExtractionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yescity",
			Name:      "extractions_total",
			Help:      "Recommendation extractions by winning strategy",
		},
		[]string{"strategy"}, // "none" when nothing parsed
	)

	LLMRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yescity",
			Name:      "llm_requests_total",
			Help:      "Total text generation requests",
		},
		[]string{"model", "status"},
	)

	LLMRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "yescity",
			Name:      "llm_request_duration_seconds",
			Help:      "Text generation request duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"model"},
	)

	HydrationMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yescity",
			Name:      "hydration_misses_total",
			Help:      "Recommended items that could not be hydrated",
		},
		[]string{"category", "reason"}, // "not_found" / "error"
	)
)

var registerOnce sync.Once

// RegisterPipelineMetrics registers the pipeline metrics. Safe to call more than once.
func RegisterPipelineMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(PipelineRunsTotal)
		prometheus.MustRegister(PipelineStageDuration)
		prometheus.MustRegister(ClassificationsTotal)
		prometheus.MustRegister(ExtractionsTotal)
		prometheus.MustRegister(LLMRequestsTotal)
		prometheus.MustRegister(LLMRequestDuration)
		prometheus.MustRegister(HydrationMissesTotal)
	})
}
