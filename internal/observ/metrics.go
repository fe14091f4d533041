// Package observ holds the process-wide Prometheus collectors.
package observ

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_ms",
			Help:    "Duration of HTTP requests in ms",
			Buckets: []float64{5, 10, 25, 50, 100, 200, 400, 800, 1600},
		},
		[]string{"method", "path"},
	)

	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_total",
			Help: "Checkout attempts by outcome",
		},
		[]string{"result"},
	)

	partialFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_checkout_partial_failures_total",
			Help: "Checkouts that wrote an order but failed a later step",
		},
		[]string{"step"},
	)

	transitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storefront_order_status_transitions_total",
			Help: "Order status changes applied by admins",
		},
		[]string{"from", "to"},
	)

	wsClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "storefront_ws_clients",
		Help: "Connected live-feed subscribers",
	})
)

func CheckoutResult(result string) { checkouts.WithLabelValues(result).Inc() }

func PartialFailure(step string) { partialFailures.WithLabelValues(step).Inc() }

func StatusTransition(from, to string) { transitions.WithLabelValues(from, to).Inc() }

func WSClients(delta float64) { wsClients.Add(delta) }

func ObserveHTTP(method, path string, status int, ms float64) {
	HTTPRequests.WithLabelValues(method, path, http.StatusText(status)).Inc()
	HTTPDuration.WithLabelValues(method, path).Observe(ms)
}
