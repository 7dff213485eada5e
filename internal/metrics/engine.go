package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Engine-related Prometheus metrics. Standalone package to avoid import
// cycles between the engine, HTTP and cluster packages.

var (
	EngineOps = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "boot_engine_ops_total",
		Help: "Operaciones del engine por tipo y resultado",
	}, []string{"op", "result"})

	EngineOpLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "boot_engine_op_latency_ms",
		Help:    "Latencia de operaciones del engine en milisegundos",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 14),
	}, []string{"op"})

	AssignedHosts = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boot_assigned_hosts",
		Help: "Hosts con asignación de boot vigente",
	})

	ConfigGroups = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "boot_config_groups",
		Help: "Config groups vigentes",
	})
)

// RegisterEngine registers the engine metrics on the given registry (or default if nil).
func RegisterEngine(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{EngineOps, EngineOpLatency, AssignedHosts, ConfigGroups} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
