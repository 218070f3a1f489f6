package indicators

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medj/internal/labs"
)

func setupRouter(t *testing.T) (*gin.Engine, *Store) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := NewInMemoryRepository(labs.IndicatorDefinition{Name: "Глюкоза", Unit: "mmol/L", RefLow: f(3.9), RefHigh: f(6.1)})
	store := NewStore(repo, 0)
	require.NoError(t, store.Reload(context.Background()))

	h := NewHandler(store, repo)
	r := gin.New()
	r.GET("/indicators", h.List)
	r.POST("/admin/indicators/reload", h.Reload)
	r.POST("/admin/indicators/import", h.Import)
	return r, store
}

func TestListIndicators(t *testing.T) {
	r, _ := setupRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/indicators", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Count      int             `json:"count"`
		Indicators []indicatorView `json:"indicators"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Count)
	assert.Equal(t, "Глюкоза", body.Indicators[0].Name)
	assert.Equal(t, "3.9-6.1", body.Indicators[0].Range)
}

func TestImportThenList(t *testing.T) {
	r, store := setupRouter(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "dict.csv")
	require.NoError(t, err)
	_, _ = fw.Write([]byte("name_bg;aliases\nХемоглобин;HGB\n"))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/admin/indicators/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var stats ImportStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.Created)

	name, _, ok := store.Resolve("HGB")
	require.True(t, ok)
	assert.Equal(t, "Хемоглобин", name)
}

func TestImportRequiresFile(t *testing.T) {
	r, _ := setupRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/indicators/import", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReloadEndpoint(t *testing.T) {
	r, _ := setupRouter(t)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/admin/indicators/reload", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"count":1`)
}
