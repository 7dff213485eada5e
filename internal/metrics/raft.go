package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Raft-related Prometheus metrics. These are defined in a standalone package to avoid
// import cycles between cluster (Raft) and HTTP packages.

var (
	RaftApplyLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "raft_apply_latency_ms",
		Help:    "Latencia de raft.Apply en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	})

	RaftLeadershipChanges = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raft_leadership_changes_total",
		Help: "Cambios de rol a leader",
	})

	RaftRejectedWrites = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "raft_rejected_writes_total",
		Help: "Escrituras rechazadas por llegar a un follower",
	})

	RaftLogSizeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "raft_log_size_bytes",
		Help: "Tamaño en bytes del archivo de log/stable (BoltDB)",
	})
)

// RegisterRaft registers the raft metrics on the given registry (or default if nil).
func RegisterRaft(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{RaftApplyLatency, RaftLeadershipChanges, RaftRejectedWrites, RaftLogSizeBytes} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
