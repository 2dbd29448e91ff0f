package httpadapter

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/kirillkom/annotation-compare/internal/config"
	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/core/ports"
	"github.com/kirillkom/annotation-compare/internal/observability/metrics"
)

const serviceName = "api"

// Services are the use cases the HTTP API exposes. Runs, Submitter and
// Datasets may be nil; their routes then answer 503.
type Services struct {
	Comparator ports.DatasetComparator
	Statistics ports.StatisticsCalculator
	Validator  ports.DatasetValidator
	Submitter  ports.ComparisonSubmitter
	Runs       ports.RunReader
	Source     ports.DatasetSource
	Datasets   DatasetStore
}

type Router struct {
	cfg      config.Config
	defaults domain.CompareOptions
	svc      Services
	metrics  *metrics.HTTPServerMetrics
	logger   *slog.Logger
}

func NewRouter(cfg config.Config, defaults domain.CompareOptions, svc Services, m *metrics.HTTPServerMetrics, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		cfg:      cfg,
		defaults: defaults,
		svc:      svc,
		metrics:  m,
		logger:   logger,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/comparisons", rt.compare)
	mux.HandleFunc("POST /v1/runs", rt.submitRun)
	mux.HandleFunc("GET /v1/runs/{run_id}", rt.getRun)
	mux.HandleFunc("POST /v1/statistics", rt.statistics)
	mux.HandleFunc("POST /v1/validation", rt.validate)
	mux.HandleFunc("PUT /v1/datasets/{key...}", rt.putDataset)

	var api http.Handler = mux
	api = backpressureMiddleware(api, rt.cfg.APIMaxInFlight, rt.cfg.APIBackpressureWait)
	api = rateLimitMiddleware(api, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst, rt.recordRateLimited)

	root := http.NewServeMux()
	if rt.metrics != nil {
		api = rt.metrics.Middleware(serviceName, api)
		root.Handle("GET /metrics", rt.metrics.Handler())
	}
	root.Handle("/", api)
	return requestIDMiddleware(accessLogMiddleware(rt.logger, root))
}

func (rt *Router) recordRateLimited(path string) {
	if rt.metrics != nil {
		rt.metrics.RecordRateLimited(serviceName, path)
	}
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func errorBody(r *http.Request, message string) map[string]string {
	return map[string]string{
		"error":      message,
		"request_id": requestIDFromContext(r.Context()),
	}
}

func (rt *Router) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := mapErrorToHTTPStatus(err)
	if status >= http.StatusInternalServerError {
		rt.logger.Error("request_failed", "request_id", requestIDFromContext(r.Context()), "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, errorBody(r, err.Error()))
}
