package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors wired into the engine and worker
// pool (SPEC_FULL.md section 4). It is optional: when no metrics address is
// configured, callers simply never start ServeMetrics and the counters are
// never scraped.
type Metrics struct {
	registry     *prometheus.Registry
	OpsTotal     *prometheus.CounterVec
	Compactions  prometheus.Counter
	Uncompacted  prometheus.Gauge
	PoolActive   prometheus.Gauge
	PoolReplaced prometheus.Counter
}

// NewMetrics builds a fresh, independent registry so multiple engines in
// the same process (as in tests) don't collide on collector names.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		OpsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "kvs_ops_total",
			Help: "Number of engine operations processed, by kind and outcome.",
		}, []string{"op", "outcome"}),
		Compactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "kvs_compactions_total",
			Help: "Number of compaction runs completed.",
		}),
		Uncompacted: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kvs_uncompacted_records",
			Help: "Current value of the engine's uncompacted counter.",
		}),
		PoolActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "kvs_pool_active_workers",
			Help: "Number of worker-pool goroutines currently running a task.",
		}),
		PoolReplaced: factory.NewCounter(prometheus.CounterOpts{
			Name: "kvs_pool_workers_replaced_total",
			Help: "Number of worker goroutines replaced after a panic.",
		}),
	}
}

// ServeMetrics serves the registry's /metrics endpoint on addr until the
// HTTP server fails; it takes no context and never returns otherwise.
// Callers run it in its own goroutine.
func (m *Metrics) ServeMetrics(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return http.ListenAndServe(addr, mux)
}
