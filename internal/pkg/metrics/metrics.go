// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StoreMetrics holds counters for the storefront's business operations
type StoreMetrics struct {
	OrdersCreated   prometheus.Counter
	OrdersCancelled prometheus.Counter
	CartOperations  *prometheus.CounterVec
}

// NewStoreMetrics registers and returns the storefront metric set
func NewStoreMetrics() *StoreMetrics {
	ordersCreated := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "solara",
		Subsystem: "orders",
		Name:      "created_total",
		Help:      "Total number of orders created.",
	})
	ordersCancelled := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "solara",
		Subsystem: "orders",
		Name:      "cancelled_total",
		Help:      "Total number of orders cancelled.",
	})
	cartOperations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "solara",
		Subsystem: "cart",
		Name:      "operations_total",
		Help:      "Total number of cart mutations by operation.",
	}, []string{"operation"})

	prometheus.MustRegister(ordersCreated, ordersCancelled, cartOperations)
	return &StoreMetrics{
		OrdersCreated:   ordersCreated,
		OrdersCancelled: ordersCancelled,
		CartOperations:  cartOperations,
	}
}

// Handler exposes the prometheus scrape endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
