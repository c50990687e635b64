package httpadapter

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/oapi-codegen/runtime"

	"github.com/kirillkom/estate-intake/internal/config"
	"github.com/kirillkom/estate-intake/internal/core/domain"
	"github.com/kirillkom/estate-intake/internal/core/ports"
	"github.com/kirillkom/estate-intake/internal/core/usecase"
	"github.com/kirillkom/estate-intake/internal/observability/metrics"
)

const (
	maxUploadBytes      = 64 << 20
	multipartMemory     = 16 << 20
	backpressureWait    = 250 * time.Millisecond
	metricsServiceLabel = "api"
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type Deps struct {
	Batch    ports.BatchRunner
	Query    ports.KnowledgeBaseQuery
	Tables   ports.TableReader
	Exporter ports.RecordExporter
	Resync   ports.KnowledgeBaseResync
	Metrics  *metrics.HTTPServerMetrics
	Logger   *slog.Logger
}

type Router struct {
	cfg       config.Config
	deps      Deps
	maxUpload int64
}

func NewRouter(cfg config.Config, deps Deps) *Router {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Router{cfg: cfg, deps: deps, maxUpload: maxUploadBytes}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", rt.healthz)
	mux.HandleFunc("POST /v1/documents", rt.uploadDocuments)
	mux.HandleFunc("GET /v1/tables", rt.tableStatus)
	mux.HandleFunc("GET /v1/tables/{table}/records", rt.tableRecords)
	mux.HandleFunc("GET /v1/export.xlsx", rt.exportWorkbook)
	mux.HandleFunc("POST /v1/kb/query", rt.queryKnowledgeBase)
	mux.HandleFunc("POST /v1/kb/sync", rt.syncKnowledgeBase)
	if rt.deps.Metrics != nil {
		mux.Handle("GET /metrics", rt.deps.Metrics.Handler())
	}

	var handler http.Handler = mux
	if validator, err := loadRequestValidator(); err != nil {
		rt.deps.Logger.Error("openapi.load.failed", "error", err)
	} else {
		handler = validator.middleware(handler)
	}
	handler = backpressureMiddleware(handler, rt.cfg.APIMaxInFlight, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.APIRateLimitRPS, rt.cfg.APIRateLimitBurst)
	if rt.deps.Metrics != nil {
		handler = rt.deps.Metrics.Middleware(metricsServiceLabel, handler)
	}
	handler = recoverMiddleware(handler, rt.deps.Logger)
	handler = accessLogMiddleware(handler, rt.deps.Logger)
	return requestIDMiddleware(handler)
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (rt *Router) uploadDocuments(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, rt.maxUpload)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid multipart form"})
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'file' is required"})
		return
	}
	hint := r.FormValue("category")

	uploads := make([]domain.Upload, 0, len(files))
	var totalBytes int64
	for _, fh := range files {
		totalBytes += fh.Size
		upload, err := readUpload(fh, hint)
		if err != nil {
			writeError(w, err)
			return
		}
		uploads = append(uploads, upload)
	}

	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordUpload(metricsServiceLabel, len(uploads), totalBytes)
	}

	result := rt.deps.Batch.Run(r.Context(), uploads)
	writeJSON(w, http.StatusOK, result)
}

func readUpload(fh *multipart.FileHeader, hint string) (domain.Upload, error) {
	f, err := fh.Open()
	if err != nil {
		return domain.Upload{}, domain.WrapError(domain.ErrInvalidInput, "open upload", err)
	}
	defer f.Close()
	return usecase.NewUpload(fh.Filename, hint, f)
}

func (rt *Router) tableStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"tables": rt.deps.Tables.Status(r.Context())})
}

func (rt *Router) tableRecords(w http.ResponseWriter, r *http.Request) {
	limit, ok := bindLimit(w, r)
	if !ok {
		return
	}

	name := r.PathValue("table")
	table, known := domain.ParseTable(name)
	if !known {
		writeError(w, domain.WrapError(domain.ErrNotFound, "list records", fmt.Errorf("unknown table %q", name)))
		return
	}

	rows, err := rt.deps.Tables.Recent(r.Context(), table, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"table": table, "records": rows})
}

func (rt *Router) exportWorkbook(w http.ResponseWriter, r *http.Request) {
	limit, ok := bindLimit(w, r)
	if !ok {
		return
	}

	data, err := rt.deps.Exporter.ExportWorkbook(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="records.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (rt *Router) queryKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Question string `json:"question"`
		Limit    int    `json:"limit"`
		Category string `json:"category"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.Limit <= 0 {
		req.Limit = rt.cfg.KBTopK
	}

	start := time.Now()
	answer, err := rt.deps.Query.Answer(r.Context(), req.Question, req.Limit, domain.SearchFilter{
		Category: req.Category,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	if rt.deps.Metrics != nil {
		rt.deps.Metrics.RecordKBQuery(metricsServiceLabel, len(answer.Citations), time.Since(start))
	}
	writeJSON(w, http.StatusOK, answer)
}

func (rt *Router) syncKnowledgeBase(w http.ResponseWriter, r *http.Request) {
	var req struct {
		StorageKey string `json:"storage_key"`
		Category   string `json:"category"`
		Filename   string `json:"filename"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	event, err := rt.deps.Resync.Resync(r.Context(), req.StorageKey, req.Category, req.Filename)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, event)
}

// bindLimit reads the optional limit query parameter; zero means the
// use case default.
func bindLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	var limit int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return 0, false
	}
	return limit, true
}

func writeError(w http.ResponseWriter, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "upload too large"})
		return
	}
	writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
