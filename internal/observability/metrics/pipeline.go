package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kirillkom/estate-intake/internal/core/domain"
)

// PipelineMetrics counts classification decisions and terminal outcomes.
// It satisfies ports.CategoryObserver and ports.OutcomeObserver.
type PipelineMetrics struct {
	service string

	categoriesTotal *prometheus.CounterVec
	outcomesTotal   *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	cost            *prometheus.CounterVec
	gateScore       *prometheus.HistogramVec
	rowsWritten     *prometheus.CounterVec
	retriesTotal    *prometheus.CounterVec
	breakerState    *prometheus.GaugeVec
}

func NewPipelineMetrics(registerer prometheus.Registerer, service string) *PipelineMetrics {
	m := &PipelineMetrics{
		service: service,
		categoriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "classifications_total",
				Help:      "Validated classification decisions by category and strictness.",
			},
			[]string{"service", "category", "strictness"},
		),
		outcomesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "documents_total",
				Help:      "Documents that reached a terminal state.",
			},
			[]string{"service", "state", "category"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "document_duration_seconds",
				Help:      "Wall time per document by terminal state.",
				Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
			},
			[]string{"service", "state"},
		),
		cost: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "estimated_cost_total",
				Help:      "Accumulated estimated processing cost.",
			},
			[]string{"service"},
		),
		gateScore: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "confidence_score",
				Help:      "Quality gate confidence scores.",
				Buckets:   []float64{0, 0.2, 0.4, 0.6, 0.8, 1},
			},
			[]string{"service", "category"},
		),
		rowsWritten: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intake",
				Subsystem: "pipeline",
				Name:      "rows_written_total",
				Help:      "Table rows written by the router.",
			},
			[]string{"service", "table"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "intake",
				Subsystem: "resilience",
				Name:      "retries_total",
				Help:      "Retried calls to external dependencies by operation.",
			},
			[]string{"service", "operation"},
		),
		breakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "intake",
				Subsystem: "resilience",
				Name:      "circuit_state",
				Help:      "Circuit breaker state by operation (0 closed, 1 half-open, 2 open).",
			},
			[]string{"service", "operation"},
		),
	}

	registerer.MustRegister(
		m.categoriesTotal,
		m.outcomesTotal,
		m.duration,
		m.cost,
		m.gateScore,
		m.rowsWritten,
		m.retriesTotal,
		m.breakerState,
	)
	return m
}

func (m *PipelineMetrics) ObserveCategory(category domain.Category, strictness domain.Strictness) {
	m.categoriesTotal.WithLabelValues(m.service, string(category), string(strictness)).Inc()
}

func (m *PipelineMetrics) ObserveOutcome(outcome domain.Outcome) {
	category := string(outcome.Category)
	if category == "" {
		category = "unknown"
	}
	m.outcomesTotal.WithLabelValues(m.service, string(outcome.State), category).Inc()
	m.duration.WithLabelValues(m.service, string(outcome.State)).Observe(outcome.Duration.Seconds())
	m.cost.WithLabelValues(m.service).Add(outcome.Cost)

	if outcome.Gate != nil && !outcome.Gate.Skipped {
		m.gateScore.WithLabelValues(m.service, category).Observe(outcome.Gate.Score)
	}
	if outcome.Persisted != nil {
		m.rowsWritten.WithLabelValues(m.service, string(outcome.Persisted.Primary.Table)).Inc()
		for _, d := range outcome.Persisted.Derived {
			m.rowsWritten.WithLabelValues(m.service, string(d.Table)).Inc()
		}
	}
}

// ObserveRetry is wired as the resilience executor retry hook.
func (m *PipelineMetrics) ObserveRetry(operation string, _ int, _ error) {
	m.retriesTotal.WithLabelValues(m.service, operation).Inc()
}

// ObserveBreakerState is wired as the resilience executor state hook.
func (m *PipelineMetrics) ObserveBreakerState(operation, _, to string) {
	var v float64
	switch to {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(v)
}
