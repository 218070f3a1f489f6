package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medj/internal/auth"
)

var tokens = auth.NewTokens("test-secret-key-for-testing-only", time.Hour)

func newRouter(mw ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(mw...)
	router.GET("/test", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"userID":    c.GetString("userID"),
			"userEmail": c.GetString("userEmail"),
		})
	})
	return router
}

func get(router *gin.Engine, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestAuthMiddlewareRejects(t *testing.T) {
	router := newRouter(AuthMiddleware(tokens))

	for name, header := range map[string]string{
		"missing header": "",
		"bad format":     "InvalidFormat",
		"bad token":      "Bearer invalid_token_xyz",
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, http.StatusUnauthorized, get(router, header).Code)
		})
	}
}

func TestAuthMiddlewareValidToken(t *testing.T) {
	token, err := tokens.Generate("test-user-id", "test@example.com", auth.RolePatient)
	require.NoError(t, err)

	w := get(newRouter(AuthMiddleware(tokens)), "Bearer "+token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-user-id")
}

func TestRequireRole(t *testing.T) {
	patient, err := tokens.Generate("u1", "p@example.com", auth.RolePatient)
	require.NoError(t, err)
	admin, err := tokens.Generate("u2", "a@example.com", auth.RoleAdmin)
	require.NoError(t, err)

	router := newRouter(AuthMiddleware(tokens), RequireRole(auth.RoleAdmin))
	assert.Equal(t, http.StatusForbidden, get(router, "Bearer "+patient).Code)
	assert.Equal(t, http.StatusOK, get(router, "Bearer "+admin).Code)

	assert.Equal(t, http.StatusForbidden, get(newRouter(RequireRole(auth.RoleAdmin)), "").Code)
}
