package db

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's counters. They are created unregistered so
// multiple engines can coexist in one process; Register attaches them to
// a registry when the process exports metrics.
type Metrics struct {
	Commits           prometheus.Counter
	Compactions       prometheus.Counter
	Checkpoints       prometheus.Counter
	IntegrityFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Commits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdb_commits_total",
			Help: "Commits recorded in the timeline.",
		}),
		Compactions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdb_compactions_total",
			Help: "Commit tree reorganizations performed.",
		}),
		Checkpoints: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdb_checkpoints_total",
			Help: "Checkpoints written to the blob store.",
		}),
		IntegrityFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "ledgerdb_integrity_failures_total",
			Help: "Integrity checks that found a hash or root mismatch.",
		}),
	}
}

// Register attaches the counters to a prometheus registry.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{m.Commits, m.Compactions, m.Checkpoints, m.IntegrityFailures} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
