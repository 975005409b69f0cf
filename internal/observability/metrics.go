package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	registry          *prometheus.Registry
	Turns             *prometheus.CounterVec
	StoreUnavailable  *prometheus.CounterVec
	CompletionErrors  prometheus.Counter
	CompletionLatency prometheus.Histogram
	WebhookUpdates    *prometheus.CounterVec
}

// NewMetrics registers instruments on a private registry so tests can build
// as many instances as they like.
func NewMetrics(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processed turns by paywall decision and result.",
		}, []string{"decision", "result"}),
		StoreUnavailable: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_unavailable_total",
			Help:      "Lookups that degraded to defaults because the data store failed.",
		}, []string{"table"}),
		CompletionErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "completion_errors_total",
			Help:      "Failed calls to the text-generation service.",
		}),
		CompletionLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "completion_latency_seconds",
			Help:      "Latency of calls to the text-generation service.",
			Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 16, 32},
		}),
		WebhookUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhook_updates_total",
			Help:      "Inbound webhook updates by kind.",
		}, []string{"kind"}),
	}
}

func (m *Metrics) ObserveCompletion(d time.Duration, err error) {
	m.CompletionLatency.Observe(d.Seconds())
	if err != nil {
		m.CompletionErrors.Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
