package webserver

import (
	"encoding/json"
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/spboyer/evalgate/internal/webapi"
)

// registerRoutes mounts the API and wraps the mux with CORS and gzip.
func registerRoutes(mux *http.ServeMux, cfg Config) http.Handler {
	webapi.RegisterRoutes(mux, cfg.Engine)
	mux.HandleFunc("/api/", handleAPINotFound)

	var handler http.Handler = mux
	handler = webapi.CORSMiddleware(handler, cfg.AllowedOrigins...)
	return gzhttp.GzipHandler(handler)
}

// handleAPINotFound returns a JSON 404 for unknown API paths.
func handleAPINotFound(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusNotFound)
	json.NewEncoder(w).Encode(webapi.ErrorResponse{Error: "not found", Code: http.StatusNotFound}) //nolint:errcheck
}
