package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jsonlkit/internal/config"
	"jsonlkit/internal/converter"
	"jsonlkit/internal/locker"
	"jsonlkit/internal/store"
)

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Default()
	cfg.Storage.DataDir = filepath.Join(t.TempDir(), "data")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewHandler(cfg, store.New(cfg, locker.New(), logger), converter.New(), logger)
	r := gin.New()
	h.Register(r)
	return r
}

func perform(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestHandleSize(t *testing.T) {
	r := newTestEngine(t)
	tests := []struct {
		name   string
		target string
		want   string
	}{
		{"binary default", "/size/1048576", "1.0 MB"},
		{"metric query", "/size/1024?metric=true", "1.0 kB"},
		{"bytes tier", "/size/-500", "-500 B"},
		{"decimals", "/size/1536?decimals=2", "1.50 KB"},
		{"unit string", "/size/1.5GiB", "1.5 GB"},
		{"zero decimals promotes", "/size/999500?metric=true&decimals=0", "1 MB"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := perform(r, http.MethodGet, tt.target, "")
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			var resp sizeResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.want, resp.Formatted)
		})
	}
}

func TestHandleSizeRejectsBadInput(t *testing.T) {
	r := newTestEngine(t)
	for _, target := range []string{"/size/lots", "/size/NaN", "/size/10?metric=maybe", "/size/10?decimals=-1", "/size/10?decimals=101"} {
		rec := perform(r, http.MethodGet, target, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, target)
		assert.Contains(t, rec.Body.String(), `"error"`)
	}
}

func TestHandleConvert(t *testing.T) {
	r := newTestEngine(t)
	rec := perform(r, http.MethodPost, "/convert?from=json&to=ndjson", `[{"a":1},{"b":2}]`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "application/x-ndjson", rec.Header().Get("Content-Type"))
	assert.Equal(t, "{\"a\":1}\n{\"b\":2}", rec.Body.String())

	rec = perform(r, http.MethodPost, "/convert?from=jsonl&to=json", "{\"a\":1}\nbroken")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(r, http.MethodPost, "/convert?to=csv", `[]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDatasetLifecycle(t *testing.T) {
	r := newTestEngine(t)

	rec := perform(r, http.MethodGet, "/datasets/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = perform(r, http.MethodPut, "/datasets/events?format=json", `[{"id":1},{"id":2}]`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Dataset store.Entry `json:"dataset"`
		Records int         `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "events", created.Dataset.Name)
	assert.Equal(t, 2, created.Records)

	rec = perform(r, http.MethodGet, "/datasets/events", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "{\"id\":1}\n{\"id\":2}", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("Last-Modified"))

	rec = perform(r, http.MethodGet, "/datasets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Datasets []store.Entry `json:"datasets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed.Datasets, 1)
	assert.Equal(t, "17 B", listed.Datasets[0].HumanSize)

	rec = perform(r, http.MethodDelete, "/datasets/events", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = perform(r, http.MethodDelete, "/datasets/events", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPutDatasetRejectsMalformedBody(t *testing.T) {
	r := newTestEngine(t)
	rec := perform(r, http.MethodPut, "/datasets/events", "{\"id\":1}\n{")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = perform(r, http.MethodPut, "/datasets/..", `{"id":1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestIdentity(t *testing.T) {
	r := newTestEngine(t)

	rec := perform(r, http.MethodGet, "/size/1", "")
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Server"), "jsonlkit/"))

	req := httptest.NewRequest(http.MethodGet, "/size/1", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}
