package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics mirrors prometheus/prometheus.go's Init/Start pattern: a small
// bundle of gauges/counters created once, registered against Broker's
// own registry, and served over a dedicated promhttp.Handler.
type metrics struct {
	registry       *prometheus.Registry
	droppedTotal   prometheus.Counter
	connectedGauge prometheus.Gauge
	rejectedTotal  prometheus.Counter
}

func newMetrics() *metrics {
	registry := prometheus.NewRegistry()
	m := &metrics{
		registry: registry,
		droppedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "being_telemetry_dropped_total",
			Help: "Number of telemetry records evicted from the bounded backfill ring.",
		}),
		connectedGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "being_telemetry_clients",
			Help: "Number of websocket clients currently connected to the telemetry broker.",
		}),
		rejectedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "being_telemetry_rejected_total",
			Help: "Number of websocket connection attempts rejected because the client limit was reached.",
		}),
	}
	registry.MustRegister(m.droppedTotal, m.connectedGauge, m.rejectedTotal)
	return m
}

// MetricsHandler serves b's prometheus registry (telemetry's own gauges)
// as an http.Handler suitable for mounting at "/metrics".
func (b *Broker) MetricsHandler() http.Handler {
	return promhttp.HandlerFor(b.metrics.registry, promhttp.HandlerOpts{})
}
