// Package http provides the API server and its middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"

	"github.com/allisson/fulfillment/internal/config"
	"github.com/allisson/fulfillment/internal/metrics"

	inventoryHTTP "github.com/allisson/fulfillment/internal/inventory/http"
	orderHTTP "github.com/allisson/fulfillment/internal/order/http"
	paymentHTTP "github.com/allisson/fulfillment/internal/payment/http"
)

// Handlers groups the context handlers mounted on the API server.
type Handlers struct {
	Order     *orderHTTP.OrderHandler
	Inventory *inventoryHTTP.InventoryHandler
	Payment   *paymentHTTP.PaymentHandler
}

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates the API server with all routes and middleware mounted.
func NewServer(
	cfg *config.Config,
	db *sql.DB,
	handlers Handlers,
	metricsProvider *metrics.Provider,
	logger *slog.Logger,
) *Server {
	gin.SetMode(cfg.GetGinMode())

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New())
	router.Use(CustomLoggerMiddleware(logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	server := &Server{
		router: router,
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}

	server.registerRoutes(cfg, handlers)
	return server
}

// registerRoutes mounts health checks and the v1 API.
func (s *Server) registerRoutes(cfg *config.Config, handlers Handlers) {
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readinessHandler)

	v1 := s.router.Group("/v1")

	// Checkout is the only endpoint open to burst-happy storefront traffic.
	checkout := v1.Group("")
	if cfg.RateLimitEnabled {
		checkout.Use(RateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger))
	}
	checkout.POST("/checkout", handlers.Order.CheckoutHandler)

	v1.POST("/orders/:id/cancel", handlers.Order.CancelHandler)
	v1.GET("/orders/:id", handlers.Order.GetHandler)

	v1.POST("/inventory/lock", handlers.Inventory.LockHandler)
	v1.POST("/inventory/release", handlers.Inventory.ReleaseHandler)
	v1.GET("/inventory/:sku_code", handlers.Inventory.GetBySkuHandler)

	v1.POST("/payments/webhook", handlers.Payment.WebhookHandler)
	v1.POST("/payments/:id/verify", handlers.Payment.VerifyHandler)
	v1.GET("/payments/:id", handlers.Payment.GetHandler)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can reach its database.
func (s *Server) readinessHandler(c *gin.Context) {
	if s.db == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}
