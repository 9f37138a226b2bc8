package analysis

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/specialistvlad/rulegraph/internal/report"
	"github.com/specialistvlad/rulegraph/internal/rule"
)

// Metrics records rule executions. A nil *Metrics records nothing.
type Metrics struct {
	// executions counts executed rules.
	// Labels: kind (concept, constraint), status (success, failure, error)
	executions *prometheus.CounterVec

	// duration measures rule execution time.
	// Labels: kind
	duration *prometheus.HistogramVec

	// violations counts rows returned by constraints.
	// Labels: constraint
	violations *prometheus.CounterVec

	// labelsAdded counts labels newly attached by concepts.
	labelsAdded prometheus.Counter
}

// NewMetrics creates the analysis metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		executions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegraph",
			Subsystem: "analysis",
			Name:      "rule_executions_total",
			Help:      "Total rule executions by kind and status",
		}, []string{"kind", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "rulegraph",
			Subsystem: "analysis",
			Name:      "rule_duration_seconds",
			Help:      "Rule execution time in seconds",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"kind"}),
		violations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rulegraph",
			Subsystem: "analysis",
			Name:      "constraint_violations_total",
			Help:      "Total rows reported by constraints",
		}, []string{"constraint"}),
		labelsAdded: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rulegraph",
			Subsystem: "analysis",
			Name:      "labels_added_total",
			Help:      "Total labels newly attached by concepts",
		}),
	}
}

func (m *Metrics) observe(res *report.Result) {
	if m == nil {
		return
	}

	kind := res.Kind().String()
	status := strings.ToLower(string(res.Status))
	if res.Err != nil {
		status = "error"
	}
	m.executions.WithLabelValues(kind, status).Inc()
	m.duration.WithLabelValues(kind).Observe(res.Duration.Seconds())

	if res.Err == nil {
		if n := res.RowCount(); n > 0 && res.Kind() == rule.KindConstraint {
			m.violations.WithLabelValues(res.Name()).Add(float64(n))
		}
		m.labelsAdded.Add(float64(res.LabelsAdded))
	}
}
