package bulk

import "github.com/prometheus/client_golang/prometheus"

const (
	pathSet      = "set"
	pathFallback = "fallback"
	pathError    = "error"
)

// Metrics are the writer's collectors. A nil *Metrics records nothing.
type Metrics struct {
	batches *prometheus.CounterVec
	rows    *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		batches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "bulk",
			Name:      "batches_total",
			Help:      "Batches written, by path taken.",
		}, []string{"path"}),
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "bulk",
			Name:      "fallback_rows_total",
			Help:      "Rows inserted individually after a duplicate-key batch failure, by result.",
		}, []string{"result"}),
	}
	if reg != nil {
		reg.MustRegister(m.batches, m.rows)
	}
	return m
}

func (m *Metrics) batch(path string) {
	if m == nil {
		return
	}
	m.batches.WithLabelValues(path).Inc()
}

func (m *Metrics) fallbackRows(ok, failed int) {
	if m == nil {
		return
	}
	m.rows.WithLabelValues("ok").Add(float64(ok))
	m.rows.WithLabelValues("failed").Add(float64(failed))
}
