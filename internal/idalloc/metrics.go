package idalloc

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the allocator's prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	refills   *prometheus.CounterVec
	allocIDs  prometheus.Counter
	refillDur prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		refills: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "idalloc",
			Name:      "refills_total",
			Help:      "Counter store reservations, by result.",
		}, []string{"result"}),
		allocIDs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "filings",
			Subsystem: "idalloc",
			Name:      "allocated_ids_total",
			Help:      "Ids handed out to callers.",
		}),
		refillDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "filings",
			Subsystem: "idalloc",
			Name:      "refill_seconds",
			Help:      "Latency of counter store reservations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}),
	}
	if reg != nil {
		reg.MustRegister(m.refills, m.allocIDs, m.refillDur)
	}
	return m
}

func (m *Metrics) allocated(n uint64) {
	if m == nil {
		return
	}
	m.allocIDs.Add(float64(n))
}

func (m *Metrics) refilled(took time.Duration, err error) {
	if m == nil {
		return
	}
	m.refillDur.Observe(took.Seconds())
	if err != nil {
		m.refills.WithLabelValues("error").Inc()
		return
	}
	m.refills.WithLabelValues("ok").Inc()
}
