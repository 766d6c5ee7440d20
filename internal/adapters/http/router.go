package httpadapter

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/arcadeops/manual-search/internal/core/domain"
	"github.com/arcadeops/manual-search/internal/core/ports"
	"github.com/arcadeops/manual-search/internal/infrastructure/qaimport"
	"github.com/arcadeops/manual-search/internal/observability/metrics"
)

const maxUploadBytes = 256 << 20

type Router struct {
	service string

	searchUC   ports.SearchService
	rundownUC  ports.RundownService
	mergeUC    ports.ManualMerger
	ingestUC   ports.ManualIngestor
	qaImportUC ports.QAImporter
	manuals    ports.ManualReader
	tenants    ports.TenantResolver
	queue      ports.MessageQueue

	metrics *metrics.HTTPServerMetrics
	traffic TrafficControl
}

func NewRouter(
	service string,
	searchUC ports.SearchService,
	rundownUC ports.RundownService,
	mergeUC ports.ManualMerger,
	ingestUC ports.ManualIngestor,
	qaImportUC ports.QAImporter,
	manuals ports.ManualReader,
	tenants ports.TenantResolver,
	queue ports.MessageQueue,
	httpMetrics *metrics.HTTPServerMetrics,
	traffic TrafficControl,
) *Router {
	return &Router{
		service:    service,
		searchUC:   searchUC,
		rundownUC:  rundownUC,
		mergeUC:    mergeUC,
		ingestUC:   ingestUC,
		qaImportUC: qaImportUC,
		manuals:    manuals,
		tenants:    tenants,
		queue:      queue,
		metrics:    httpMetrics,
		traffic:    traffic,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	if rt.metrics != nil {
		mux.Handle("/metrics", rt.metrics.Handler())
	}
	mux.HandleFunc("/v1/search", rt.search)
	mux.HandleFunc("/v1/search/rundown", rt.rundown)
	mux.HandleFunc("/v1/manuals", rt.uploadManual)
	mux.HandleFunc("/v1/manuals/", rt.manualSubroutes)

	var handler http.Handler = mux
	handler = corsMiddleware(handler)
	handler = rt.traffic.Middleware(handler)
	if rt.metrics != nil {
		handler = rt.metrics.Middleware(rt.service, handler)
	}
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.optionalAuthenticate(w, r)
	if !ok {
		return
	}

	var req domain.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	// A resolved token pins the tenant; otherwise the body's optional
	// tenant_id scopes the search.
	if tenant != nil {
		req.TenantID = tenant.ID
	}

	start := time.Now()
	result, err := rt.searchUC.Search(r.Context(), req)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	if rt.metrics != nil {
		rt.metrics.RecordSearch(
			rt.service, "search", result.Strategy, result.Reranked,
			result.TotalCandidates, result.Count, result.IsolationDropped,
			time.Since(start),
		)
	}
	writeJSON(w, http.StatusOK, result)
}

func (rt *Router) rundown(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.optionalAuthenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		Query    string `json:"query"`
		Q        string `json:"q"`
		ManualID string `json:"manual_id"`
		TenantID string `json:"tenant_id"`
		System   string `json:"system"`
		Vendor   string `json:"vendor"`
		Limit    int    `json:"limit"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}
	query := req.Query
	if strings.TrimSpace(query) == "" {
		query = req.Q
	}
	tenantID := req.TenantID
	if tenant != nil {
		tenantID = tenant.ID
	}

	rundown, err := rt.rundownUC.Rundown(r.Context(), domain.RundownRequest{
		Query:    query,
		ManualID: req.ManualID,
		TenantID: tenantID,
		System:   req.System,
		Vendor:   req.Vendor,
		Limit:    req.Limit,
	})
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, rundown)
}

func (rt *Router) uploadManual(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.authenticate(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, fileHeader, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	manual, err := rt.ingestUC.Upload(
		r.Context(),
		tenant.ID,
		r.FormValue("title"),
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		file,
	)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, manual)
}

// manualSubroutes dispatches everything under /v1/manuals/: the merge
// endpoint, the QA import endpoint, and manual reads by id.
func (rt *Router) manualSubroutes(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/manuals/")
	switch {
	case rest == "merge":
		rt.mergeManuals(w, r)
	case strings.HasSuffix(rest, "/qa/import"):
		rt.importQA(w, r, strings.TrimSuffix(rest, "/qa/import"))
	default:
		rt.getManual(w, r, rest)
	}
}

func (rt *Router) getManual(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	if id == "" {
		writeError(w, http.StatusBadRequest, "manual id is required")
		return
	}

	manual, err := rt.manuals.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	// Another tenant's manual is indistinguishable from a missing one.
	if manual.TenantID != tenant.ID {
		writeError(w, http.StatusNotFound, "manual not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, manual)
}

func (rt *Router) importQA(w http.ResponseWriter, r *http.Request, manualID string) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.authenticate(w, r)
	if !ok {
		return
	}
	if manualID == "" {
		writeError(w, http.StatusBadRequest, "manual id is required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required")
		return
	}
	defer file.Close()

	pairs, err := qaimport.ParseWorkbook(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	report, err := rt.qaImportUC.Import(r.Context(), tenant.ID, manualID, pairs)
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (rt *Router) mergeManuals(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	tenant, ok := rt.authenticate(w, r)
	if !ok {
		return
	}

	var req struct {
		SourceManualID string `json:"source_manual_id"`
		TargetManualID string `json:"target_manual_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json")
		return
	}

	if r.URL.Query().Get("async") == "1" {
		job := domain.MergeJob{
			ID:             uuid.NewString(),
			TenantID:       tenant.ID,
			SourceManualID: req.SourceManualID,
			TargetManualID: req.TargetManualID,
		}
		if err := rt.queue.PublishMergeRequested(r.Context(), job); err != nil {
			writeError(w, mapErrorToHTTPStatus(err), err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, job)
		return
	}

	report, err := rt.mergeUC.Merge(r.Context(), tenant.ID, req.SourceManualID, req.TargetManualID)
	if rt.metrics != nil {
		items := 0
		if report != nil {
			items = report.TotalItemsMerged
		}
		rt.metrics.RecordMerge(rt.service, err, items)
	}
	if err != nil {
		writeError(w, mapErrorToHTTPStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case domain.IsKind(err, domain.ErrManualNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case errors.Is(err, http.ErrHandlerTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
