package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
)

// ComparisonMetrics observes asynchronous comparison runs in the worker.
type ComparisonMetrics struct {
	service  string
	registry *prometheus.Registry

	runsTotal     *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	runsInFlight  prometheus.Gauge
	matchedPairs  *prometheus.CounterVec
	unmatched     *prometheus.CounterVec
	findingsTotal *prometheus.CounterVec
	queueLag      *prometheus.HistogramVec
}

func NewComparisonMetrics(service string) *ComparisonMetrics {
	registry := prometheus.NewRegistry()

	runsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "comparison_runs_total",
			Help:      "Total comparison runs by status.",
		},
		[]string{"service", "status"},
	)
	runDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "comparison_run_duration_seconds",
			Help:      "Comparison run duration in seconds by status.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)
	runsInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "comparison_runs_in_flight",
			Help:      "Number of in-flight comparison runs.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	matchedPairs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "matched_pairs_total",
			Help:      "Matched annotation pairs by annotation type.",
		},
		[]string{"service", "type"},
	)
	unmatched := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "unmatched_annotations_total",
			Help:      "Unmatched annotations by side.",
		},
		[]string{"service", "side"},
	)
	findingsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "validation_findings_total",
			Help:      "Validation findings by kind.",
		},
		[]string{"service", "kind"},
	)
	queueLag := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "anncmp",
			Subsystem: "worker",
			Name:      "queue_lag_seconds",
			Help:      "Delay between run submission and processing start.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service"},
	)

	registry.MustRegister(runsTotal, runDuration, runsInFlight, matchedPairs, unmatched, findingsTotal, queueLag)

	return &ComparisonMetrics{
		service:       service,
		registry:      registry,
		runsTotal:     runsTotal,
		runDuration:   runDuration,
		runsInFlight:  runsInFlight,
		matchedPairs:  matchedPairs,
		unmatched:     unmatched,
		findingsTotal: findingsTotal,
		queueLag:      queueLag,
	}
}

func (m *ComparisonMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *ComparisonMetrics) Registry() *prometheus.Registry { return m.registry }

// StartRun counts the run in flight and records how long it waited queued.
// A non-positive lag is not observed.
func (m *ComparisonMetrics) StartRun(queueLag time.Duration) {
	m.runsInFlight.Inc()
	if queueLag > 0 {
		m.queueLag.WithLabelValues(m.service).Observe(queueLag.Seconds())
	}
}

func (m *ComparisonMetrics) FinishRun(duration time.Duration, report *domain.ComparisonReport, err error) {
	m.runsInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}
	m.runsTotal.WithLabelValues(m.service, status).Inc()
	m.runDuration.WithLabelValues(m.service, status).Observe(duration.Seconds())
	if report == nil {
		return
	}

	for t, s := range report.Summary.ByType {
		if s.Matched > 0 {
			m.matchedPairs.WithLabelValues(m.service, string(t)).Add(float64(s.Matched))
		}
	}
	m.unmatched.WithLabelValues(m.service, "a").Add(float64(report.Summary.UnmatchedA))
	m.unmatched.WithLabelValues(m.service, "b").Add(float64(report.Summary.UnmatchedB))
	for _, v := range []*domain.ValidationReport{report.ValidationA, report.ValidationB} {
		if v == nil {
			continue
		}
		for kind, n := range v.ByKind {
			m.findingsTotal.WithLabelValues(m.service, string(kind)).Add(float64(n))
		}
	}
}
