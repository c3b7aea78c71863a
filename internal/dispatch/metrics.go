package dispatch

import (
	"time"

	"github.com/cockroachdb/errors"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the dispatcher's collectors. A nil *Metrics records nothing.
type Metrics struct {
	queueDepth prometheus.Gauge
	inflight   prometheus.Gauge
	resolvedBy *prometheus.CounterVec
	rejectedBy *prometheus.CounterVec
	heartbeats prometheus.Counter
	queueWait  prometheus.Histogram
	runTime    *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	const ns, sub = "filings", "dispatch"
	m := &Metrics{
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "queue_depth",
			Help: "Envelopes waiting to be dequeued.",
		}),
		inflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns, Subsystem: sub, Name: "inflight",
			Help: "Handlers currently running.",
		}),
		resolvedBy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "resolved_total",
			Help: "Envelopes resolved, by terminal state.",
		}, []string{"state"}),
		rejectedBy: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "rejected_total",
			Help: "Submissions refused, by reason.",
		}, []string{"reason"}),
		heartbeats: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "heartbeats_total",
			Help: "Liveness heartbeats emitted by the dispatcher.",
		}),
		queueWait: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "queue_wait_seconds",
			Help:    "Time between Submit and dequeue.",
			Buckets: prometheus.ExponentialBuckets(0.0001, 4, 10),
		}),
		runTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "handler_seconds",
			Help:    "Handler run time, by command.",
			Buckets: prometheus.DefBuckets,
		}, []string{"command"}),
	}
	if reg != nil {
		reg.MustRegister(m.queueDepth, m.inflight, m.resolvedBy, m.rejectedBy, m.heartbeats, m.queueWait, m.runTime)
	}
	return m
}

func (m *Metrics) setQueued(n int) {
	if m == nil {
		return
	}
	m.queueDepth.Set(float64(n))
}

func (m *Metrics) setInflight(n int64) {
	if m == nil {
		return
	}
	m.inflight.Set(float64(n))
}

func (m *Metrics) resolved(s State) {
	if m == nil || !s.Terminal() {
		return
	}
	m.resolvedBy.WithLabelValues(s.String()).Inc()
}

func (m *Metrics) rejected(err error) {
	if m == nil {
		return
	}
	reason := "other"
	switch {
	case errors.Is(err, ErrQueueFull):
		reason = "queue_full"
	case errors.Is(err, ErrStopped):
		reason = "stopped"
	}
	m.rejectedBy.WithLabelValues(reason).Inc()
}

func (m *Metrics) heartbeat() {
	if m == nil {
		return
	}
	m.heartbeats.Inc()
}

func (m *Metrics) observeWait(d time.Duration) {
	if m == nil {
		return
	}
	m.queueWait.Observe(d.Seconds())
}

func (m *Metrics) observeRun(command string, d time.Duration) {
	if m == nil {
		return
	}
	m.runTime.WithLabelValues(command).Observe(d.Seconds())
}
