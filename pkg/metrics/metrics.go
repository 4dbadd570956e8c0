package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// OrderMetrics collects counters around the order placement workflow.
type OrderMetrics struct {
	Placements       *prometheus.CounterVec
	PlacementSeconds prometheus.Histogram
	StockSkips       prometheus.Counter
}

// NewOrderMetrics registers and returns the order metrics. It must be called
// at most once per process.
func NewOrderMetrics() *OrderMetrics {
	placements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "boutique",
		Subsystem: "orders",
		Name:      "placements_total",
		Help:      "Total number of order placement attempts by outcome.",
	}, []string{"outcome"})
	latency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "boutique",
		Subsystem: "orders",
		Name:      "placement_duration_seconds",
		Help:      "Order placement latency in seconds.",
		Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	skips := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "boutique",
		Subsystem: "orders",
		Name:      "stock_skips_total",
		Help:      "Units skipped by the best-effort stock reservation.",
	})

	prometheus.MustRegister(placements, latency, skips)
	return &OrderMetrics{Placements: placements, PlacementSeconds: latency, StockSkips: skips}
}

// Handler exposes the registered metrics for scraping.
func Handler() http.Handler {
	return promhttp.Handler()
}
