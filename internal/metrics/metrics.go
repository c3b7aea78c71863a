// Package metrics owns the process's prometheus registry and the collectors
// that are not tied to a single package.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	pebblestore "github.com/rzbill/filings/internal/storage/pebble"
)

// NewRegistry returns a registry carrying the Go runtime and process
// collectors. Each runtime gets its own so tests never collide on the global
// default registry.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

// Handler serves reg in the prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}

// Storage implements pebblestore.MetricsHook.
type Storage struct {
	reads       prometheus.Histogram
	readBytes   prometheus.Counter
	commits     prometheus.Histogram
	commitOps   prometheus.Counter
	commitBytes prometheus.Counter
}

var _ pebblestore.MetricsHook = (*Storage)(nil)

// NewStorage creates the storage collectors and registers them on reg.
func NewStorage(reg prometheus.Registerer) *Storage {
	const ns, sub = "filings", "storage"
	s := &Storage{
		reads: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "read_seconds",
			Help:    "Latency of point reads.",
			Buckets: prometheus.ExponentialBuckets(0.00001, 4, 10),
		}),
		readBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "read_bytes_total",
			Help: "Bytes returned by point reads.",
		}),
		commits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: ns, Subsystem: sub, Name: "batch_commit_seconds",
			Help:    "Latency of batch commits.",
			Buckets: prometheus.ExponentialBuckets(0.00005, 4, 10),
		}),
		commitOps: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "batch_ops_total",
			Help: "Operations committed in batches.",
		}),
		commitBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns, Subsystem: sub, Name: "batch_bytes_total",
			Help: "Bytes committed in batches.",
		}),
	}
	if reg != nil {
		reg.MustRegister(s.reads, s.readBytes, s.commits, s.commitOps, s.commitBytes)
	}
	return s
}

func (s *Storage) ObserveRead(elapsed time.Duration, bytes int) {
	s.reads.Observe(elapsed.Seconds())
	s.readBytes.Add(float64(bytes))
}

func (s *Storage) ObserveBatchCommit(elapsed time.Duration, numOps int, bytes int) {
	s.commits.Observe(elapsed.Seconds())
	s.commitOps.Add(float64(numOps))
	s.commitBytes.Add(float64(bytes))
}
