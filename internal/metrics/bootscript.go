package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	BootscriptRenders = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "bootscript_renders_total",
		Help: "Bootscripts servidos por resultado (ok, cache_hit, retry_only, error)",
	}, []string{"result"})

	BootscriptRenderLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "bootscript_render_latency_ms",
		Help:    "Latencia de render del bootscript en milisegundos",
		Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
	})

	BootscriptRateLimited = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "bootscript_rate_limited_total",
		Help: "Requests de bootscript rechazados por rate limit",
	})
)

// RegisterBootscript registers the bootscript metrics on the given registry (or default if nil).
func RegisterBootscript(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{BootscriptRenders, BootscriptRenderLatency, BootscriptRateLimited} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
