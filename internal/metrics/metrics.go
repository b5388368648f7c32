// Package metrics provides the Prometheus instrumentation wired into the
// Listener Worker and Bundle Serve Handler.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	connectionsAcceptedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "federationd_connections_accepted_total",
		Help: "Total number of TLS connections accepted per endpoint.",
	}, []string{"base_url", "port"})

	acceptErrorsCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "federationd_accept_errors_total",
		Help: "Total number of transient Accept() errors per endpoint.",
	}, []string{"base_url", "port"})

	requestsServedCounter = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "federationd_requests_served_total",
		Help: "Total number of requests served, by response status.",
	}, []string{"status"})

	activeWorkersGauge = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "federationd_active_workers",
		Help: "Number of listener workers currently accepting connections, per endpoint.",
	}, []string{"base_url"})
)

// RecordConnectionAccepted increments the accepted-connection counter for
// the given endpoint/port.
func RecordConnectionAccepted(baseURL string, port uint16) {
	connectionsAcceptedCounter.WithLabelValues(baseURL, strconv.Itoa(int(port))).Inc()
}

// RecordAcceptError increments the transient accept-error counter for the
// given endpoint/port.
func RecordAcceptError(baseURL string, port uint16) {
	acceptErrorsCounter.WithLabelValues(baseURL, strconv.Itoa(int(port))).Inc()
}

// RecordRequestServed increments the requests-served counter for the given
// response status line.
func RecordRequestServed(status string) {
	requestsServedCounter.WithLabelValues(status).Inc()
}

// WorkerStarted increments the active-worker gauge for baseURL.
func WorkerStarted(baseURL string) {
	activeWorkersGauge.WithLabelValues(baseURL).Inc()
}

// WorkerStopped decrements the active-worker gauge for baseURL.
func WorkerStopped(baseURL string) {
	activeWorkersGauge.WithLabelValues(baseURL).Dec()
}
