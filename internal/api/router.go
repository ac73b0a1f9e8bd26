package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sentio/pkg/ratelimit"
)

// NewRouter builds the gin engine with all routes registered. A nil limiter
// disables rate limiting.
func NewRouter(h *Handler, limiter *ratelimit.Limiter) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	if limiter != nil {
		router.Use(rateLimitMiddleware(limiter))
	}

	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.POST("/query", h.Query)
		v1.GET("/query/model", h.ModelInfo)
		v1.POST("/ingest", h.Ingest)
		v1.GET("/stats", h.Stats)
		v1.DELETE("/collection", h.ClearCollection)
		v1.POST("/chat", h.Chat)
		v1.GET("/chat/history/:thread_id", h.ChatHistory)
	}

	return router
}

func rateLimitMiddleware(limiter *ratelimit.Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "too many requests"})
			return
		}
		c.Next()
	}
}
