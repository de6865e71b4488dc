// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expense-approval/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "0.0.0.0",
		Port:         8080,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// Services bundles the application services the API exposes
type Services struct {
	Directory service.DirectoryService
	Rules     service.RuleService
	Claims    service.ClaimService
	Approvals service.ApprovalService
	Exports   service.ExportService
}

// Observability wires optional health, metrics and request recording hooks
type Observability struct {
	// Health reports whether dependencies are usable
	Health func(ctx context.Context) error
	// Metrics serves /metrics when set
	Metrics http.Handler
	// RecordRequest observes every finished request when set
	RecordRequest func(method, route string, status int, duration time.Duration)
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	services   Services
	obs        Observability
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, services Services, obs Observability, logger Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	server := &Server{
		config:   config,
		router:   router,
		services: services,
		obs:      obs,
		logger:   logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(recoveryMiddleware(s.logger))
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())
	if s.obs.RecordRequest != nil {
		s.router.Use(metricsMiddleware(s.obs.RecordRequest))
	}
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.services, s.obs.Health, s.logger)

	s.router.GET("/health", h.HealthCheck)
	if s.obs.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.obs.Metrics))
	}

	api := s.router.Group("/api")

	// Bootstrapping a company needs no identity
	api.POST("/companies", h.CreateCompany)

	authed := api.Group("", identityMiddleware(s.services.Directory))
	{
		authed.GET("/me", h.Me)

		authed.POST("/users", requireAdmin(), h.CreateUser)
		authed.GET("/users", requireAdmin(), h.ListUsers)
		authed.PUT("/users/:id/rule", requireAdmin(), h.AssignRule)

		authed.POST("/rules", requireAdmin(), h.CreateRule)
		authed.GET("/rules", h.ListRules)
		authed.GET("/rules/:id", h.GetRule)

		authed.POST("/claims", h.SubmitClaim)
		authed.GET("/claims", h.ListClaims)
		authed.GET("/claims/pending", h.PendingClaims)
		authed.GET("/claims/unrouted", requireAdmin(), h.UnroutedClaims)
		authed.GET("/claims/export", h.ExportClaims)
		authed.GET("/claims/:id", h.GetClaim)
		authed.POST("/claims/:id/approve", h.ApproveClaim)
		authed.POST("/claims/:id/reject", h.RejectClaim)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
