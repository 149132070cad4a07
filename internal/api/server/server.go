package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/feral-file/ff-drug-registry/internal/api/middleware"
	"github.com/feral-file/ff-drug-registry/internal/api/rest"
	"github.com/feral-file/ff-drug-registry/internal/logger"
	"github.com/feral-file/ff-drug-registry/internal/ratelimit"
)

// Config holds the server configuration
type Config struct {
	Debug        bool
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration // 0 keeps event streams open indefinitely
	IdleTimeout  time.Duration
	CORSOrigins  []string
	// RateLimiter throttles requests per client IP when set
	RateLimiter  ratelimit.Limiter
}

// Server wraps the HTTP server
type Server struct {
	config     Config
	handler    rest.Handler
	auth       middleware.AuthConfig
	metrics    http.Handler
	httpServer *http.Server
}

// New creates a new API server
func New(cfg Config, handler rest.Handler, auth middleware.AuthConfig, metrics http.Handler) *Server {
	s := &Server{
		config:  cfg,
		handler: handler,
		auth:    auth,
		metrics: metrics,
	}
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, fmt.Sprintf("%d", cfg.Port)),
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Router builds the gin engine with middleware and routes
func (s *Server) Router() *gin.Engine {
	if s.config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.SetupCORS(s.config.CORSOrigins))
	if s.config.RateLimiter != nil {
		router.Use(middleware.RateLimit(s.config.RateLimiter, "/health", "/metrics"))
	}

	rest.SetupRoutes(router, s.handler, s.auth, s.metrics)

	return router
}

// Start serves on the configured address until Shutdown
func (s *Server) Start() error {
	logger.Info("Starting API server", zap.String("address", s.httpServer.Addr))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down API server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}
