package webserver

import (
	"compress/gzip"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spboyer/evalgate/internal/projectconfig"
	"github.com/spboyer/evalgate/internal/regression"
	"github.com/spboyer/evalgate/internal/rundetail"
	"github.com/spboyer/evalgate/internal/runstore"
	"github.com/spboyer/evalgate/internal/trends"
	"github.com/spboyer/evalgate/internal/webapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	cfg := projectconfig.New()
	store := runstore.NewMemoryStore()
	for i := 0; i < 40; i++ {
		store.AddExperiment(strings.Repeat("x", i+1), cfg.ExperimentBase+"-"+strings.Repeat("t", i+1))
	}
	agg := trends.NewAggregator(store, cfg, nil)

	srv, err := New(Config{
		Engine: &webapi.Service{
			Config:        cfg,
			Aggregator:    agg,
			Detector:      regression.NewDetector(agg, nil),
			Reconstructor: rundetail.NewReconstructor(store, cfg, nil),
		},
		AllowedOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)
	return srv.Handler()
}

func TestNewRequiresEngine(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body webapi.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body.Status)
}

func TestUnknownAPIPathIsJSON404(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/nope", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestTrendsResponseIsGzipped(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/trends", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "gzip", rec.Header().Get("Content-Encoding"))

	zr, err := gzip.NewReader(rec.Body)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)

	var body webapi.TrendsResponse
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Len(t, body.Summaries, 40)
}

func TestCORSAllowedOrigin(t *testing.T) {
	handler := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
}
