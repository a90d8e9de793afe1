// Package metrics defines the process-wide Prometheus registry the
// dispatcher reports into: request/byte/
// status counters, an active-request gauge, and request and
// backend-response duration histograms.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// durationBuckets is the bucket set shared by the request and
// backend-response histograms.
var durationBuckets = []float64{0.025, 0.05, 0.1, 0.5, 1, 2.5, 5, 10}

var (
	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lb_requests_total",
			Help: "Total requests handled by the dispatcher, by method and status code",
		},
		[]string{"method", "status"},
	)
	errorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "lb_errors_total",
			Help: "Total responses with a 5xx status code",
		},
	)
	activeRequests = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "lb_active_requests",
			Help: "Requests currently being dispatched (incremented on entry, decremented on every exit path)",
		},
	)
	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lb_request_duration_seconds",
			Help:    "End-to-end request duration as observed by the dispatcher",
			Buckets: durationBuckets,
		},
		[]string{"method"},
	)
	backendResponseDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lb_backend_response_duration_seconds",
			Help:    "Upstream response duration, labelled by the backend address that served it",
			Buckets: durationBuckets,
		},
		[]string{"backend", "method"},
	)
	backendInflight = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lb_backend_inflight",
			Help: "Requests currently in flight to a given backend address",
		},
		[]string{"backend"},
	)
	backendFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lb_backend_failures_total",
			Help: "Responses with a 5xx status for requests routed to a backend (transport failures and upstream 5xx responses alike), labelled by backend address",
		},
		[]string{"backend"},
	)
	bytesTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lb_bytes_transferred_total",
			Help: "Bytes transferred, labelled by direction (inbound/outbound)",
		},
		[]string{"direction"},
	)
)

func init() {
	prometheus.MustRegister(
		requestsTotal,
		errorsTotal,
		activeRequests,
		requestDuration,
		backendResponseDuration,
		backendInflight,
		backendFailures,
		bytesTransferred,
	)
}

// IncActive/DecActive track the active-request gauge around a dispatch,
// incremented on entry and decremented on every exit path per the
// MainService contract.
func IncActive() { activeRequests.Inc() }
func DecActive() { activeRequests.Dec() }

// IncBackendInflight/DecBackendInflight bracket a single forwarded request
// to a backend address.
func IncBackendInflight(backend string) { backendInflight.WithLabelValues(backend).Inc() }
func DecBackendInflight(backend string) { backendInflight.WithLabelValues(backend).Dec() }

// ObserveRequest records one dispatcher-level response: the total and
// status-code-breakdown counters, the 5xx counter, and the request
// duration histogram. backend is the address that served it, or "" when
// the request never reached a backend (404/502 short-circuit).
func ObserveRequest(method string, status int, backend string, dur time.Duration) {
	statusLabel := strconv.Itoa(status)
	requestsTotal.WithLabelValues(method, statusLabel).Inc()
	requestDuration.WithLabelValues(method).Observe(dur.Seconds())
	if status >= 500 {
		errorsTotal.Inc()
		if backend != "" {
			backendFailures.WithLabelValues(backend).Inc()
		}
	}
}

// ObserveBackendResponse records a single upstream round trip's latency,
// labelled by the backend address that answered and the request method.
// The status argument is not recorded.
func ObserveBackendResponse(backend, method string, status int, dur time.Duration) {
	backendResponseDuration.WithLabelValues(backend, method).Observe(dur.Seconds())
}

// ObserveBytes adds n bytes transferred in the given direction ("inbound"
// or "outbound") to the running total.
func ObserveBytes(direction string, n int64) {
	if n <= 0 {
		return
	}
	bytesTransferred.WithLabelValues(direction).Add(float64(n))
}

// Handler serves the Prometheus text exposition format for the registered
// metrics, mounted at /metrics on the dedicated metrics listener.
func Handler() http.Handler {
	return promhttp.Handler()
}
