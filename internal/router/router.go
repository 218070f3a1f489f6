// Package router assembles the gin engine.
package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"medj/internal/auth"
	"medj/internal/documents"
	"medj/internal/indicators"
	"medj/internal/middleware"
)

// Deps are the handlers and settings the routes need. Nil handlers leave
// their routes out.
type Deps struct {
	Auth       *auth.Handler
	Tokens     middleware.TokenValidator
	Documents  *documents.Handler
	Indicators *indicators.Handler
	Origins    []string
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger())

	if len(d.Origins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:     d.Origins,
			AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if d.Tokens == nil {
		return r
	}
	authed := middleware.AuthMiddleware(d.Tokens)

	// ───────────────────────── AUTH ─────────────────────────
	if d.Auth != nil {
		authGroup := r.Group("/auth")
		{
			authGroup.POST("/register", d.Auth.Register)
			authGroup.POST("/login", d.Auth.Login)
			authGroup.GET("/me", authed, d.Auth.Me)
		}
	}

	// ───────────────────────── DOCUMENTS ─────────────────────────
	if d.Documents != nil {
		docs := r.Group("/documents")
		docs.Use(authed)
		{
			docs.POST("/analyze", d.Documents.Analyze)
			docs.POST("", d.Documents.Upload)
			docs.GET("/:id", d.Documents.Get)
			// STATUS POLLING
			docs.GET("/:id/status", d.Documents.Status)
			// RETRY FAILED DOCUMENT
			docs.POST("/:id/retry", d.Documents.Retry)
		}
	}

	// ───────────────────────── INDICATORS ─────────────────────────
	if d.Indicators != nil {
		r.GET("/indicators", authed, d.Indicators.List)

		admin := r.Group("/admin")
		admin.Use(authed, middleware.RequireRole(auth.RoleAdmin))
		{
			admin.POST("/indicators/reload", d.Indicators.Reload)
			admin.POST("/indicators/import", d.Indicators.Import)
		}
	}

	return r
}
