package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Registry struct {
	reg *prometheus.Registry

	EventsAccepted  prometheus.Counter
	EventsRejected  prometheus.Counter
	OrdersUpserted  prometheus.Counter
	OutboxPublished prometheus.Counter
	OutboxFailed    prometheus.Counter
	IngestLatency   prometheus.Histogram
}

func NewRegistry() *Registry {
	r := prometheus.NewRegistry()
	accepted := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_events_accepted_total"})
	rejected := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_events_rejected_total"})
	upserted := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_orders_upserted_total"})
	published := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_outbox_published_total"})
	failed := prometheus.NewCounter(prometheus.CounterOpts{Name: "ordersync_outbox_failed_total"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ordersync_ingest_latency_seconds",
		Buckets: prometheus.DefBuckets,
	})

	r.MustRegister(accepted, rejected, upserted, published, failed, latency)
	return &Registry{
		reg:             r,
		EventsAccepted:  accepted,
		EventsRejected:  rejected,
		OrdersUpserted:  upserted,
		OutboxPublished: published,
		OutboxFailed:    failed,
		IngestLatency:   latency,
	}
}

func (r *Registry) Handler() http.Handler { return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{}) }
