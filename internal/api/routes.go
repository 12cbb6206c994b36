package api

import "github.com/ajitpratap0/riskmonitor/internal/metrics"

// setupRoutes configures all API routes
func (s *Server) setupRoutes(exposeMetrics bool) {
	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/health", s.handleGetHealth)

		// Log reads
		v1.GET("/signals", s.handleListSignals)
		v1.GET("/signals/:id", s.handleGetSignal)
		v1.GET("/actions", s.handleListActions)
		v1.GET("/insights", s.handleListInsights)

		logGroup := v1.Group("/log")
		{
			logGroup.GET("/export", s.handleExportLog)
			logGroup.POST("/import", s.handleImportLog)
		}

		// Pipeline
		v1.POST("/cycles", s.handleRunCycle)
		v1.POST("/learn", s.handleLearn)
		v1.POST("/recommendations", s.handleRecommend)
	}

	if exposeMetrics {
		s.router.GET("/metrics", metrics.GinHandler())
	}

	s.router.GET("/", s.handleRoot)
}
