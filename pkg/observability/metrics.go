package observability

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/anamnesis/pkg/domain"
)

// Metrics holds the consultation collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	started     prometheus.Counter
	answers     *prometheus.CounterVec
	diagnoses   *prometheus.CounterVec
	transitions *prometheus.CounterVec
	failures    *prometheus.CounterVec
	depth       prometheus.Histogram
}

// NewMetrics creates and registers the collectors. Process and Go runtime
// collectors are registered as well so /metrics is useful on its own.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "anamnesis_consultations_started_total",
			Help: "Total number of consultations started",
		}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anamnesis_answers_total",
			Help: "Total number of recorded answers",
		}, []string{"answer"}),
		diagnoses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anamnesis_diagnoses_reached_total",
			Help: "Total number of times traversal reached a diagnosis node",
		}, []string{"node_id"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anamnesis_status_transitions_total",
			Help: "Total number of lifecycle transitions",
		}, []string{"from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "anamnesis_operation_failures_total",
			Help: "Total number of rejected or failed operations",
		}, []string{"op", "kind"}),
		depth: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "anamnesis_questions_to_diagnosis",
			Help:    "Number of answers given before a diagnosis was reached",
			Buckets: prometheus.LinearBuckets(1, 1, 15),
		}),
	}
	m.registry.MustRegister(
		m.started, m.answers, m.diagnoses, m.transitions, m.failures, m.depth,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the registry for tests and custom exporters.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnConsultationStarted: func(ctx context.Context, e *domain.ConsultationEvent) {
			m.started.Inc()
		},
		OnAnswerRecorded: func(ctx context.Context, e *domain.AnswerEvent) {
			m.answers.WithLabelValues(string(e.Answer)).Inc()
		},
		OnDiagnosisReached: func(ctx context.Context, e *domain.DiagnosisEvent) {
			m.diagnoses.WithLabelValues(e.NodeID).Inc()
			m.depth.Observe(float64(e.Depth))
		},
		OnStatusChanged: func(ctx context.Context, e *domain.StatusEvent) {
			m.transitions.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnOperationFailed: func(ctx context.Context, e *domain.FailureEvent) {
			m.failures.WithLabelValues(e.Op, string(e.Kind)).Inc()
		},
	}
}
