package server

import (
	"context"
	"net/http"
	"time"

	"github.com/cloudface-ai/CloudFace-Ai/internal/storage"
	"github.com/gin-gonic/gin"
)

const readinessTimeout = 5 * time.Second

func registerHealthRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/health/live", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/health/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
		defer cancel()

		// A nil pool means the service is running on the local fallback store.
		if deps.DB != nil {
			if err := deps.DB.Ping(ctx); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": "postgres",
					"error":     err.Error(),
				})
				return
			}
		}

		if deps.Provider != nil {
			if err := storage.CheckProviderBucket(ctx, deps.Provider, deps.Config.Provider.Bucket); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"status":    "degraded",
					"component": "provider",
					"error":     err.Error(),
				})
				return
			}
		}

		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}
