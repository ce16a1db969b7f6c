// Package metrics exposes Prometheus collectors for the scanner service.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal                 *prometheus.CounterVec
	targetsTotal               *prometheus.CounterVec
	seoScore                   prometheus.Histogram
	fetchDurationSeconds       *prometheus.HistogramVec
	fetchBytesTotal            prometheus.Counter
	registryPagesTotal         *prometheus.CounterVec
	activeScans                prometheus.Gauge
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec

	once sync.Once
)

// Init initializes the Prometheus metrics collectors.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		scansTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoscan_scans_total",
				Help: "Total number of scan sessions finished, labeled by status.",
			},
			[]string{"status"},
		)

		targetsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoscan_targets_total",
				Help: "Total number of targets analyzed, labeled by outcome.",
			},
			[]string{"outcome"},
		)

		seoScore = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "seoscan_seo_score",
				Help:    "Distribution of SEO scores of accessible targets.",
				Buckets: prometheus.LinearBuckets(10, 10, 10),
			},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "seoscan_fetch_duration_seconds",
				Help:    "Histogram of page fetch latencies, labeled by outcome.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
			},
			[]string{"outcome"},
		)

		fetchBytesTotal = promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "seoscan_fetch_bytes_total",
				Help: "Total number of page bytes fetched.",
			},
		)

		registryPagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seoscan_registry_pages_total",
				Help: "Total number of registry pages requested, labeled by status.",
			},
			[]string{"status"},
		)

		activeScans = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "seoscan_active_scans",
				Help: "Number of scan sessions currently running.",
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// ObserveScan counts a finished scan session.
func ObserveScan(status string) {
	Init()
	scansTotal.WithLabelValues(status).Inc()
}

// ObserveTarget counts an analyzed target. Accessible targets also feed the
// score histogram.
func ObserveTarget(outcome string, accessible bool, score int) {
	Init()
	targetsTotal.WithLabelValues(outcome).Inc()
	if accessible {
		seoScore.Observe(float64(score))
	}
}

// ObserveFetch records a page fetch.
func ObserveFetch(outcome string, duration time.Duration, bytesFetched int) {
	Init()
	fetchDurationSeconds.WithLabelValues(outcome).Observe(duration.Seconds())
	if bytesFetched > 0 {
		fetchBytesTotal.Add(float64(bytesFetched))
	}
}

// ObserveRegistryPage counts a registry page request.
func ObserveRegistryPage(status string) {
	Init()
	registryPagesTotal.WithLabelValues(status).Inc()
}

// IncActiveScans increments the running scans gauge.
func IncActiveScans() {
	Init()
	activeScans.Inc()
}

// DecActiveScans decrements the running scans gauge.
func DecActiveScans() {
	Init()
	activeScans.Dec()
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	Init()
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
