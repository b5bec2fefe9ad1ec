package router

import (
	"context"
	"net/http"
	"time"

	"github.com/asharma-dev/docverify-be/internal/api/handler"
	"github.com/asharma-dev/docverify-be/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// healthChecker reports whether a backing dependency is reachable.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, db healthChecker) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(deps.Logger))
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.CORSMiddleware())

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := db.HealthCheck(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"detail": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "docverify-api",
		})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	docHandler := handler.NewDocumentHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.POST("/auth/login", docHandler.Login)

		authed := v1.Group("", middleware.AuthMiddleware(deps.AuthConfig))
		{
			documents := authed.Group("/documents")
			{
				documents.POST("/upload", docHandler.UploadDocument)
				documents.POST("/process", docHandler.ProcessDocument)
				documents.GET("/status/:job_id", docHandler.GetStatus)
				documents.GET("/results/:document_id", docHandler.GetResults)
				documents.POST("/validate", docHandler.ValidateFields)
				documents.GET("/types", docHandler.ListDocumentTypes)
				documents.GET("/report/:document_id", docHandler.GetReport)
				documents.GET("/download/:document_id", docHandler.GetDownloadURL)
				documents.DELETE("/:document_id", docHandler.DeleteDocument)
			}

			authed.POST("/face/match", docHandler.MatchFaces)
		}
	}

	return r
}
