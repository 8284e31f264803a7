package scheduler

import "github.com/prometheus/client_golang/prometheus"

// metrics mirrors prometheus/prometheus.go's Init pattern: a small bundle
// of gauges/counters created once per Scheduler. Each Scheduler owns its
// own registry, rather than registering against the global default
// registry, so that more than one Scheduler can exist in the same
// process (eg. in tests) without MustRegister panicking on a duplicate
// metric name.
type metrics struct {
	registry     *prometheus.Registry
	tickDuration prometheus.Histogram
	catchUpTotal prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	m := &metrics{
		registry: registry,
		tickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "being_tick_duration_seconds",
			Help:    "Time spent executing one single_cycle, including CAN backend flush.",
			Buckets: prometheus.DefBuckets,
		}),
		catchUpTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "being_tick_catchup_total",
			Help: "Number of ticks that ran with zero sleep because the scheduler had fallen behind deadline.",
		}),
	}
	registry.MustRegister(m.tickDuration, m.catchUpTotal)
	return m
}
