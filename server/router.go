package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), s.metrics.instrument(), s.requestLogger())

	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.cfg.Registry, promhttp.HandlerOpts{})))

	api := router.Group("/v1/")
	registerDatasetRoutes(api, s)
	registerSessionRoutes(api, s)
	return router
}

func registerDatasetRoutes(router *gin.RouterGroup, s *Server) {
	router.GET("/analyze", s.analyzeOnce)
	router.GET("/schema", s.schemaHandler)

	dataset := router.Group("/dataset")
	{
		dataset.GET("", s.downloadDataset)
		dataset.PUT("", s.replaceDataset)
		dataset.GET("/options", s.datasetOptions)
	}
}

func registerSessionRoutes(router *gin.RouterGroup, s *Server) {
	sessions := router.Group("/sessions")
	{
		sessions.POST("", s.createSessionHandler)
		sessions.GET("/:id", s.sessionHandler)
		sessions.PUT("/:id/filters", s.updateFilters)
		sessions.GET("/:id/report", s.sessionReport)
		sessions.DELETE("/:id", s.deleteSessionHandler)
	}
}

// requestLogger logs one line per request through logrus.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := s.log.WithFields(logrus.Fields{
			"method":   c.Request.Method,
			"path":     c.Request.URL.Path,
			"status":   c.Writer.Status(),
			"duration": time.Since(start),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("request")
			return
		}
		entry.Debug("request")
	}
}
