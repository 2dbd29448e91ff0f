package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/annotation-compare/internal/core/domain"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/datasetfile"
	"github.com/kirillkom/annotation-compare/internal/infrastructure/export"
)

// DatasetStore persists uploaded datasets under a storage key.
type DatasetStore interface {
	Store(ctx context.Context, key string, ds *domain.Dataset) error
}

// datasetInput is either a reference to a stored dataset or an inline document.
type datasetInput struct {
	Ref string `json:"ref,omitempty"`
	datasetfile.Document
}

type compareRequest struct {
	DatasetA datasetInput    `json:"dataset_a"`
	DatasetB datasetInput    `json:"dataset_b"`
	Options  json.RawMessage `json:"options,omitempty"`
}

type submitRunRequest struct {
	DatasetA string          `json:"dataset_a"`
	DatasetB string          `json:"dataset_b"`
	Options  json.RawMessage `json:"options,omitempty"`
}

type statisticsRequest struct {
	Dataset datasetInput            `json:"dataset"`
	Filter  domain.StatisticsFilter `json:"filter"`
}

type validationRequest struct {
	Dataset datasetInput            `json:"dataset"`
	Schema  []domain.Category       `json:"schema,omitempty"`
	Filter  domain.StatisticsFilter `json:"filter"`
}

var errServiceDisabled = domain.WrapError(domain.ErrTemporary, "route", errors.New("service is not configured"))

func (rt *Router) compare(w http.ResponseWriter, r *http.Request) {
	var req compareRequest
	if !rt.decode(w, r, &req) {
		return
	}
	opts, err := rt.options(req.Options)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	exporter, err := export.New(r.URL.Query().Get("format"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	a, err := rt.dataset(r.Context(), req.DatasetA)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	b, err := rt.dataset(r.Context(), req.DatasetB)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	started := time.Now()
	report, err := rt.svc.Comparator.Compare(r.Context(), a, b, opts)
	if rt.metrics != nil {
		items := 0
		if report != nil {
			items = len(report.ItemMatches)
		}
		rt.metrics.RecordComparison(serviceName, items, time.Since(started), err)
	}
	if err != nil {
		rt.writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := exporter.Export(r.Context(), report, &buf); err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", export.ContentType(r.URL.Query().Get("format")))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (rt *Router) submitRun(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Submitter == nil {
		rt.writeError(w, r, errServiceDisabled)
		return
	}
	var req submitRunRequest
	if !rt.decode(w, r, &req) {
		return
	}
	opts, err := rt.options(req.Options)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	run, err := rt.svc.Submitter.Submit(r.Context(), req.DatasetA, req.DatasetB, opts)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/v1/runs/"+run.ID)
	writeJSON(w, http.StatusAccepted, run)
}

func (rt *Router) getRun(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Runs == nil {
		rt.writeError(w, r, errServiceDisabled)
		return
	}
	run, err := rt.svc.Runs.Get(r.Context(), r.PathValue("run_id"))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (rt *Router) statistics(w http.ResponseWriter, r *http.Request) {
	var req statisticsRequest
	if !rt.decode(w, r, &req) {
		return
	}
	ds, err := rt.dataset(r.Context(), req.Dataset)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	stats, err := rt.svc.Statistics.Compute(r.Context(), ds, req.Filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (rt *Router) validate(w http.ResponseWriter, r *http.Request) {
	var req validationRequest
	if !rt.decode(w, r, &req) {
		return
	}
	ds, err := rt.dataset(r.Context(), req.Dataset)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	schema := ds.Categories
	if req.Schema != nil {
		schema, _ = domain.NewCategorySet(req.Schema...)
	}
	report, err := rt.svc.Validator.Validate(r.Context(), ds, schema, req.Filter)
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) putDataset(w http.ResponseWriter, r *http.Request) {
	if rt.svc.Datasets == nil {
		rt.writeError(w, r, errServiceDisabled)
		return
	}
	key := strings.TrimSpace(r.PathValue("key"))
	doc, err := datasetfile.Decode(http.MaxBytesReader(w, r.Body, rt.maxBody()), datasetfile.FormatFor(key))
	if err != nil {
		rt.writeError(w, r, err)
		return
	}
	ds := rt.datasetOf(r.Context(), doc, key)
	if err := rt.svc.Datasets.Store(r.Context(), key, ds); err != nil {
		rt.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"key": key, "items": len(ds.Items), "categories": ds.Categories.Len()})
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, rt.maxBody()))
	dec.UseNumber()
	if err := dec.Decode(into); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(r, "invalid json: "+err.Error()))
		return false
	}
	return true
}

func (rt *Router) maxBody() int64 {
	if rt.cfg.APIMaxBodyBytes > 0 {
		return rt.cfg.APIMaxBodyBytes
	}
	return 64 << 20
}

// options overlays the keys present in raw on the server defaults.
func (rt *Router) options(raw json.RawMessage) (domain.CompareOptions, error) {
	opts := rt.defaults
	opts.SubsetFilter = append([]string(nil), rt.defaults.SubsetFilter...)
	if len(bytes.TrimSpace(raw)) > 0 && !bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		if err := json.Unmarshal(raw, &opts); err != nil {
			return domain.CompareOptions{}, domain.WrapError(domain.ErrInvalidConfig, "decode options", err)
		}
	}
	if err := opts.Validate(); err != nil {
		return domain.CompareOptions{}, err
	}
	return opts, nil
}

func (rt *Router) dataset(ctx context.Context, in datasetInput) (*domain.Dataset, error) {
	if in.Ref == "" {
		return rt.datasetOf(ctx, &in.Document, in.Document.Name), nil
	}
	if rt.svc.Source == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "load dataset", fmt.Errorf("dataset references are not supported"))
	}
	return rt.svc.Source.Load(ctx, in.Ref)
}

// datasetOf converts an inline document. Repeated categories keep their first
// declaration and are logged.
func (rt *Router) datasetOf(ctx context.Context, doc *datasetfile.Document, name string) *domain.Dataset {
	ds, duplicates := doc.Dataset()
	if len(duplicates) > 0 {
		rt.logger.Warn("dataset_duplicate_categories",
			"request_id", requestIDFromContext(ctx),
			"dataset", name,
			"categories", duplicates,
		)
	}
	return ds
}
