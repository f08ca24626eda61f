package webapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/registry"
	"github.com/spboyer/evalgate/internal/runstore"
)

// Version is set at build time or defaults to dev.
var Version = "dev"

// Default aliases used by the promotion endpoint.
const (
	DefaultFromAlias = "experiment"
	DefaultToAlias   = "production"
)

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	engine       Engine
	defaultLimit int
}

// NewHandlers creates a new Handlers over engine.
func NewHandlers(engine Engine) *Handlers {
	return &Handlers{engine: engine, defaultLimit: projectconfig.DefaultTrendLimit}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ok",
		Version: Version,
	})
}

// HandleTrends returns one trend summary per eval type.
// Query: eval_type (comma separated), suite, limit.
func (h *Handlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	evalTypes, limit, ok := h.selection(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, TrendsResponse{
		Summaries: h.engine.Summaries(r.Context(), evalTypes, limit),
	})
}

// HandleRegressions returns the regression check across eval types.
// Query: eval_type, suite, limit, run_id.
func (h *Handlers) HandleRegressions(w http.ResponseWriter, r *http.Request) {
	evalTypes, limit, ok := h.selection(w, r)
	if !ok {
		return
	}
	runID := r.URL.Query().Get("run_id")
	writeJSON(w, http.StatusOK, h.engine.CheckAllRegressions(r.Context(), evalTypes, runID, limit))
}

// HandlePromotion evaluates the promotion gate for a prompt without executing it.
// Query: from, to, version.
func (h *Handlers) HandlePromotion(w http.ResponseWriter, r *http.Request) {
	prompt := r.PathValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt name is required")
		return
	}
	q := r.URL.Query()
	from := valueOr(q.Get("from"), DefaultFromAlias)
	to := valueOr(q.Get("to"), DefaultToAlias)

	version := 0
	if v := q.Get("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "version must be a positive integer")
			return
		}
		version = n
	}

	result, err := h.engine.CheckPromotionGate(r.Context(), prompt, from, to, version)
	if err != nil {
		if errors.Is(err, registry.ErrAliasNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusBadGateway, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// HandleRunDetail returns the reconstructed cases of a run.
// Query: eval_type.
func (h *Handlers) HandleRunDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id is required")
		return
	}

	detail, err := h.engine.GetRunDetail(r.Context(), id, r.URL.Query().Get("eval_type"))
	if err != nil {
		if errors.Is(err, runstore.ErrRunNotFound) {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// HandleAudit lists journaled audit records. Query: prompt, limit.
func (h *Handlers) HandleAudit(w http.ResponseWriter, r *http.Request) {
	limit, ok := parseLimit(w, r, 0)
	if !ok {
		return
	}
	records, err := h.engine.AuditRecords(r.Context(), r.URL.Query().Get("prompt"), limit)
	if err != nil {
		if errors.Is(err, ErrAuditUnavailable) {
			writeError(w, http.StatusNotFound, err.Error())
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, http.StatusOK, AuditResponse{Records: records})
}

// selection reads the eval_type, suite and limit query parameters shared by the
// trend and regression endpoints.
func (h *Handlers) selection(w http.ResponseWriter, r *http.Request) ([]string, int, bool) {
	q := r.URL.Query()
	limit, ok := parseLimit(w, r, h.defaultLimit)
	if !ok {
		return nil, 0, false
	}

	evalTypes, err := h.engine.SuiteEvalTypes(q.Get("suite"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, 0, false
	}
	if raw := q.Get("eval_type"); raw != "" {
		evalTypes = splitList(raw)
	}
	return evalTypes, limit, true
}

func parseLimit(w http.ResponseWriter, r *http.Request, def int) (int, bool) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, "limit must be a positive integer")
		return 0, false
	}
	return n, true
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// RegisterRoutes registers all web API routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, engine Engine) {
	h := NewHandlers(engine)
	mux.HandleFunc("GET /api/health", h.HandleHealth)
	mux.HandleFunc("GET /api/trends", h.HandleTrends)
	mux.HandleFunc("GET /api/regressions", h.HandleRegressions)
	mux.HandleFunc("GET /api/promotion/{prompt}", h.HandlePromotion)
	mux.HandleFunc("GET /api/runs/{id}", h.HandleRunDetail)
	mux.HandleFunc("GET /api/audit", h.HandleAudit)
}

// CORSMiddleware wraps a handler with CORS headers.
// If allowedOrigins is empty, no CORS header is set (same-origin only).
// Otherwise, the request Origin is checked against the allowed list.
func CORSMiddleware(next http.Handler, allowedOrigins ...string) http.Handler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && allowed[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, ErrorResponse{Error: msg, Code: code})
}
