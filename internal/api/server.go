// Package api exposes the risk monitor over a REST API.
package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/ajitpratap0/riskmonitor/internal/metrics"
	"github.com/ajitpratap0/riskmonitor/internal/monitoring"
)

// HealthCheck reports whether a dependency is reachable
type HealthCheck func(ctx context.Context) error

// Server represents the REST API server
type Server struct {
	router    *gin.Engine
	monitor   *monitoring.Monitor
	checks    map[string]HealthCheck
	defaults  monitoring.CycleInput
	addr      string
	version   string
	startTime time.Time
	server    *http.Server
	listener  net.Listener
}

// Config contains server configuration
type Config struct {
	Host           string
	Port           int
	AllowedOrigins []string
	Version        string
	// ExposeMetrics mounts /metrics on the API router
	ExposeMetrics bool

	// Settings, RiskTolerance and AutoApply fill in what a cycle request omits
	Settings      monitoring.AITradingSettings
	RiskTolerance monitoring.RiskToleranceType
	AutoApply     bool
}

// NewServer creates a new API server over monitor
func NewServer(config Config, monitor *monitoring.Monitor) *Server {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware())
	router.Use(metrics.GinMiddleware())
	if len(config.AllowedOrigins) > 0 {
		router.Use(cors.New(cors.Config{
			AllowOrigins:     config.AllowedOrigins,
			AllowMethods:     []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	server := &Server{
		router:    router,
		monitor:   monitor,
		checks:    make(map[string]HealthCheck),
		defaults: monitoring.CycleInput{
			Settings:      config.Settings,
			RiskTolerance: config.RiskTolerance,
			Apply:         config.AutoApply,
		},
		addr:      fmt.Sprintf("%s:%d", config.Host, config.Port),
		version:   config.Version,
		startTime: time.Now(),
	}

	server.setupRoutes(config.ExposeMetrics)

	return server
}

// AddHealthCheck registers a dependency reported by the health endpoint
func (s *Server) AddHealthCheck(name string, check HealthCheck) {
	s.checks[name] = check
}

// Handler returns the router, for embedding and tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start binds the listen address and serves in the background. Bind errors are
// returned immediately.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", ln.Addr().String()).Msg("Starting API server")

	go func() {
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("API server error")
		}
	}()

	return nil
}

// Addr returns the bound address once started, otherwise the configured one
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop(ctx context.Context) error {
	log.Info().Msg("Stopping API server")

	if s.server != nil {
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to stop server: %w", err)
		}
	}

	return nil
}

// LoggerMiddleware is a custom logging middleware for Gin
func LoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		logEvent := log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Str("query", query).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP())

		if len(c.Errors) > 0 {
			logEvent.Str("errors", c.Errors.String())
		}

		logEvent.Msg("API request")
	}
}
