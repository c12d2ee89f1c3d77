// Package metrics holds the Prometheus collectors for provider calls,
// judge outcomes and evaluation runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeError     = "error"
	OutcomeFailed    = "failed"
	OutcomeComplete  = "complete"
	OutcomeCancelled = "cancelled"
)

// Metrics groups the collectors. A nil *Metrics is valid and records nothing,
// so components can be built without a registry in tests.
type Metrics struct {
	providerCalls   *prometheus.CounterVec
	providerLatency *prometheus.HistogramVec
	judgeScores     *prometheus.CounterVec
	runsStarted     prometheus.Counter
	runsFinished    *prometheus.CounterVec
	runsInFlight    prometheus.Gauge
}

// New registers the collectors on reg.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		providerCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_compare_provider_calls_total",
				Help: "Total number of model provider calls",
			},
			[]string{"provider", "model", "outcome"},
		),
		providerLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "llm_compare_provider_call_duration_seconds",
				Help:    "Latency of model provider calls",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 80, 120},
			},
			[]string{"provider", "model"},
		),
		judgeScores: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_compare_judge_scores_total",
				Help: "Total number of judge scorings by outcome",
			},
			[]string{"outcome"},
		),
		runsStarted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "llm_compare_runs_started_total",
				Help: "Total number of evaluation runs started",
			},
		),
		runsFinished: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "llm_compare_runs_finished_total",
				Help: "Total number of evaluation runs finished by outcome",
			},
			[]string{"outcome"},
		),
		runsInFlight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "llm_compare_runs_in_flight",
				Help: "Number of evaluation runs currently executing",
			},
		),
	}
}

// ObserveProviderCall records one provider round trip.
func (m *Metrics) ObserveProviderCall(provider, model, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.providerCalls.WithLabelValues(provider, model, outcome).Inc()
	m.providerLatency.WithLabelValues(provider, model).Observe(d.Seconds())
}

// ObserveJudgeScore records whether a judge scoring succeeded or fell back to minimum scores.
func (m *Metrics) ObserveJudgeScore(outcome string) {
	if m == nil {
		return
	}
	m.judgeScores.WithLabelValues(outcome).Inc()
}

// RunStarted marks a run as executing.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.runsStarted.Inc()
	m.runsInFlight.Inc()
}

// RunFinished marks a run as done with the given outcome.
func (m *Metrics) RunFinished(outcome string) {
	if m == nil {
		return
	}
	m.runsFinished.WithLabelValues(outcome).Inc()
	m.runsInFlight.Dec()
}
