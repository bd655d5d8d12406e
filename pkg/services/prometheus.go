package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusExporter mirrors a Metrics service's counters onto
// Prometheus gauges. It is wired only by cmd/simulator, but it lives in
// package services with no build tag, so every build that imports
// services (pkg/environment included) links the prometheus client.
type PrometheusExporter struct {
	source *Metrics

	sent          prometheus.Gauge
	processed     prometheus.Gauge
	maxQueueDepth prometheus.Gauge
	maxProcTimeUs prometheus.Gauge
	total         prometheus.Gauge
}

// NewPrometheusExporter registers a family of gauges under namespace
// "actorcore" in reg and returns an exporter that refreshes them from
// source on demand.
func NewPrometheusExporter(reg prometheus.Registerer, source *Metrics) *PrometheusExporter {
	factory := promauto.With(reg)
	return &PrometheusExporter{
		source: source,
		sent: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorcore",
			Name:      "messages_sent_total",
			Help:      "Total messages sent across all agents.",
		}),
		processed: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorcore",
			Name:      "messages_processed_total",
			Help:      "Total messages processed across all agents.",
		}),
		maxQueueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorcore",
			Name:      "max_queue_depth",
			Help:      "High-water mark of any single mailbox's queue depth.",
		}),
		maxProcTimeUs: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorcore",
			Name:      "max_processing_time_microseconds",
			Help:      "Worst single message processing time observed.",
		}),
		total: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "actorcore",
			Name:      "messages_total",
			Help:      "Running total of messages seen by the metrics service.",
		}),
	}
}

// Refresh pulls the latest snapshot from the backing Metrics service
// and updates every gauge. The simulator calls this on its reporting
// interval, not on every tick.
func (e *PrometheusExporter) Refresh() {
	snap := e.source.Snapshot()
	e.sent.Set(float64(snap.MessagesSent))
	e.processed.Set(float64(snap.MessagesProcessed))
	e.maxQueueDepth.Set(float64(snap.MaxQueueDepth))
	e.maxProcTimeUs.Set(float64(snap.MaxProcessingTimeUs))
	e.total.Set(float64(snap.TotalMessages))
}
