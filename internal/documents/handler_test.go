package documents

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func testRouter(h *Handler, userID, role string) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		if userID != "" {
			c.Set("userID", userID)
			c.Set("userRole", role)
		}
		c.Next()
	})
	r.POST("/documents/analyze", h.Analyze)
	r.POST("/documents", h.Upload)
	r.GET("/documents/:id", h.Get)
	r.GET("/documents/:id/status", h.Status)
	r.POST("/documents/:id/retry", h.Retry)
	return r
}

func multipartBody(t *testing.T, fields map[string]string, files map[string][]byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for name, data := range files {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestAnalyzeHandler(t *testing.T) {
	s, _ := newTestService(labReport)
	r := testRouter(NewHandler(s), "", "")

	body, ct := multipartBody(t, map[string]string{"specialty": "Хематология"}, map[string][]byte{"page1.png": []byte("img")})
	req := httptest.NewRequest(http.MethodPost, "/documents/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var report Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Len(t, report.Result.BloodTestResults, 2)
	assert.Equal(t, "Хематология", report.Result.DetectedSpecialty)
	assert.NotContains(t, w.Body.String(), "8001011234")
}

func TestAnalyzeHandlerRejectsBadFiles(t *testing.T) {
	s, _ := newTestService(labReport)
	r := testRouter(NewHandler(s), "", "")

	body, ct := multipartBody(t, nil, map[string][]byte{"notes.txt": []byte("text")})
	req := httptest.NewRequest(http.MethodPost, "/documents/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/documents/analyze", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeHandlerNoText(t *testing.T) {
	s, _ := newTestService("")
	r := testRouter(NewHandler(s), "", "")

	body, ct := multipartBody(t, nil, map[string][]byte{"page1.png": []byte("img")})
	req := httptest.NewRequest(http.MethodPost, "/documents/analyze", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestUploadHandlerFlow(t *testing.T) {
	s, _ := newTestService(labReport)
	h := NewHandler(s)

	body, ct := multipartBody(t, nil, map[string][]byte{"page1.png": []byte("img")})
	req := httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", ct)
	w := httptest.NewRecorder()
	testRouter(h, "", "").ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	body, ct = multipartBody(t, nil, map[string][]byte{"page1.png": []byte("img")})
	req = httptest.NewRequest(http.MethodPost, "/documents", body)
	req.Header.Set("Content-Type", ct)
	w = httptest.NewRecorder()
	owner := testRouter(h, "user-1", "PATIENT")
	owner.ServeHTTP(w, req)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created struct {
		DocumentID string `json:"document_id"`
		Status     Status `json:"status"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, StatusUploaded, created.Status)

	w = httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/"+created.DocumentID+"/status", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	testRouter(h, "user-2", "PATIENT").ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/"+created.DocumentID, nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = httptest.NewRecorder()
	testRouter(h, "admin", RoleAdmin).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/documents/"+created.DocumentID, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	owner.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/documents/"+created.DocumentID+"/retry", nil))
	assert.Equal(t, http.StatusConflict, w.Code)
}
