// Package metrics exposes the service's Prometheus instrumentation:
// audit counters by outcome and a fetch-latency histogram.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors on their own registry so multiple
// instances (one per test, one per process) never collide.
type Metrics struct {
	registry *prometheus.Registry

	Audits        *prometheus.CounterVec
	FetchDuration prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		Audits: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seo_audit",
			Name:      "audits_total",
			Help:      "Finished audits by outcome.",
		}, []string{"outcome"}),
		FetchDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seo_audit",
			Name:      "audit_duration_seconds",
			Help:      "Wall time of the full audit, fetch included.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
