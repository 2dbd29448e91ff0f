package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type HTTPServerMetrics struct {
	registry *prometheus.Registry

	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	requestInFlight prometheus.Gauge
	rateLimited     *prometheus.CounterVec

	comparisonsTotal   *prometheus.CounterVec
	comparisonDuration *prometheus.HistogramVec
	comparedItems      *prometheus.HistogramVec
}

func NewHTTPServerMetrics(service string) *HTTPServerMetrics {
	registry := prometheus.NewRegistry()

	requestTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total HTTP requests processed.",
		},
		[]string{"service", "method", "path", "status"},
	)
	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anncmp",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "method", "path"},
	)
	requestInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "anncmp",
			Subsystem: "http",
			Name:      "in_flight_requests",
			Help:      "Number of in-flight HTTP requests.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	rateLimited := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the rate limiter.",
		},
		[]string{"service", "path"},
	)
	comparisonsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "compare",
			Name:      "sync_comparisons_total",
			Help:      "Synchronous comparisons served by status.",
		},
		[]string{"service", "status"},
	)
	comparisonDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anncmp",
			Subsystem: "compare",
			Name:      "sync_duration_seconds",
			Help:      "Synchronous comparison duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service"},
	)
	comparedItems := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anncmp",
			Subsystem: "compare",
			Name:      "sync_items",
			Help:      "Distribution of item results per synchronous comparison.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
		[]string{"service"},
	)

	registry.MustRegister(
		requestTotal,
		requestDuration,
		requestInFlight,
		rateLimited,
		comparisonsTotal,
		comparisonDuration,
		comparedItems,
	)

	return &HTTPServerMetrics{
		registry:           registry,
		requestTotal:       requestTotal,
		requestDuration:    requestDuration,
		requestInFlight:    requestInFlight,
		rateLimited:        rateLimited,
		comparisonsTotal:   comparisonsTotal,
		comparisonDuration: comparisonDuration,
		comparedItems:      comparedItems,
	}
}

func (m *HTTPServerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *HTTPServerMetrics) Middleware(service string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		path := normalizePath(r.URL.Path)
		recorder := &statusRecorder{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		m.requestInFlight.Inc()
		defer m.requestInFlight.Dec()

		next.ServeHTTP(recorder, r)

		m.requestTotal.WithLabelValues(
			service,
			r.Method,
			path,
			strconv.Itoa(recorder.statusCode),
		).Inc()
		m.requestDuration.WithLabelValues(service, r.Method, path).Observe(time.Since(start).Seconds())
	})
}

func normalizePath(path string) string {
	switch {
	case strings.HasPrefix(path, "/v1/runs/"):
		return "/v1/runs/{run_id}"
	default:
		return path
	}
}

func (m *HTTPServerMetrics) RecordRateLimited(service, path string) {
	m.rateLimited.WithLabelValues(service, normalizePath(path)).Inc()
}

func (m *HTTPServerMetrics) RecordComparison(service string, items int, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	m.comparisonsTotal.WithLabelValues(service, status).Inc()
	if err != nil {
		return
	}
	m.comparisonDuration.WithLabelValues(service).Observe(duration.Seconds())
	m.comparedItems.WithLabelValues(service).Observe(float64(items))
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusRecorder) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
