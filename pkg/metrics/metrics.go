// Package metrics registers the Prometheus collectors of the catalog service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Fetch outcomes
const (
	FetchOK      = "ok"
	FetchHTTP    = "http_error"
	FetchTimeout = "timeout"
	FetchNetwork = "network_error"
	FetchInvalid = "invalid_payload"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_catalog_http_requests_total",
		Help: "HTTP requests by route template, method and status",
	}, []string{"route", "method", "status"})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "service_catalog_http_request_duration_seconds",
		Help:    "HTTP request latency by route template",
		Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
	}, []string{"route", "method"})

	indexBuilds = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_catalog_index_builds_total",
		Help: "Graph index builds by dataset",
	}, []string{"source"})

	indexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "service_catalog_index_build_duration_seconds",
		Help:    "Duration of graph index builds",
		Buckets: []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1},
	})

	metadataFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "service_catalog_metadata_fetches_total",
		Help: "Remote metadata fetches by outcome",
	}, []string{"result"})

	datasetSize = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "service_catalog_services",
		Help: "Number of services per dataset",
	}, []string{"source"})
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveRequest records one finished HTTP request.
func ObserveRequest(route, method string, status int, elapsed time.Duration) {
	httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route, method).Observe(elapsed.Seconds())
}

// ObserveIndexBuild records a graph index build for a dataset.
func ObserveIndexBuild(source string, elapsed time.Duration) {
	indexBuilds.WithLabelValues(source).Inc()
	indexDuration.Observe(elapsed.Seconds())
}

// ObserveFetch records a remote metadata fetch outcome.
func ObserveFetch(result string) {
	metadataFetches.WithLabelValues(result).Inc()
}

// SetDatasetSize updates the service count gauge for a dataset.
func SetDatasetSize(source string, n int) {
	datasetSize.WithLabelValues(source).Set(float64(n))
}
