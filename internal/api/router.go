package api

import (
	"net/http"
	"time"

	"gobrittle/internal"

	"github.com/gin-gonic/gin"
)

// NewRouter wires the brittleness routes onto a fresh gin engine
func NewRouter(h *BrittlenessHandler, logger *internal.Logger) *gin.Engine {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger.With("HTTP")))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	v1 := router.Group("/api/v1")
	{
		v1.POST("/analyze", h.Analyze)
		v1.GET("/profiles/:runId", h.GetProfile)
		v1.GET("/subjects/:subjectId/profiles", h.ListSubjectProfiles)
		v1.GET("/domains", h.ListDomains)
	}
	return router
}

func requestLogger(logger *internal.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Debug("%s %s -> %d (%s)", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
