// Package metrics exposes the wizard's Prometheus collectors. A nil *Metrics
// is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "intake"

type Metrics struct {
	transitions        *prometheus.CounterVec
	validationFailures *prometheus.CounterVec
	aiFallbacks        *prometheus.CounterVec
	aiLatency          *prometheus.HistogramVec
	storageFailures    *prometheus.CounterVec
	completions        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "wizard_transitions_total",
			Help:      "Wizard state transitions by kind.",
		}, []string{"kind"}),
		validationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "validation_failures_total",
			Help:      "Answers rejected by mechanical validation, by validation type.",
		}, []string{"validation"}),
		aiFallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ai_fallbacks_total",
			Help:      "Times a component failed open because the text generator was unavailable.",
		}, []string{"component"}),
		aiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ai_generate_seconds",
			Help:      "Latency of text generation calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"provider", "outcome"}),
		storageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "storage_failures_total",
			Help:      "Session or application storage errors by operation.",
		}, []string{"op"}),
		completions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "applications_completed_total",
			Help:      "Completed applications by path.",
		}, []string{"path"}),
	}
	reg.MustRegister(m.transitions, m.validationFailures, m.aiFallbacks, m.aiLatency, m.storageFailures, m.completions)
	return m
}

func (m *Metrics) Transition(kind string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(kind).Inc()
}

func (m *Metrics) ValidationFailure(validation string) {
	if m == nil {
		return
	}
	m.validationFailures.WithLabelValues(validation).Inc()
}

func (m *Metrics) AIFallback(component string) {
	if m == nil {
		return
	}
	m.aiFallbacks.WithLabelValues(component).Inc()
}

func (m *Metrics) ObserveGenerate(provider string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.aiLatency.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

func (m *Metrics) StorageFailure(op string) {
	if m == nil {
		return
	}
	m.storageFailures.WithLabelValues(op).Inc()
}

func (m *Metrics) Completed(path string) {
	if m == nil {
		return
	}
	m.completions.WithLabelValues(path).Inc()
}
