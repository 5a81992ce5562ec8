// Package app provides the dependency injection container for assembling
// application components.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/allisson/fulfillment/internal/config"
	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/http"
	"github.com/allisson/fulfillment/internal/metrics"

	consumerPkg "github.com/allisson/fulfillment/internal/consumer"
	inboxUsecase "github.com/allisson/fulfillment/internal/inbox/usecase"
	inventoryUsecase "github.com/allisson/fulfillment/internal/inventory/usecase"
	orderUsecase "github.com/allisson/fulfillment/internal/order/usecase"
	outboxUsecase "github.com/allisson/fulfillment/internal/outbox/usecase"
	paymentService "github.com/allisson/fulfillment/internal/payment/service"
	paymentUsecase "github.com/allisson/fulfillment/internal/payment/usecase"
	sagaUsecase "github.com/allisson/fulfillment/internal/saga/usecase"
)

// Container holds all application dependencies and provides methods to access
// them. It follows the lazy initialization pattern - components are created on
// first access.
type Container struct {
	// Configuration
	config *config.Config

	// Infrastructure
	logger *slog.Logger
	db     *sql.DB

	// Managers
	txManager database.TxManager

	// Metrics
	metricsProvider *metrics.Provider
	businessMetrics metrics.BusinessMetrics
	consumerMetrics metrics.ConsumerMetrics

	// Event bus
	bus eventbus.Bus

	// Repositories
	outboxRepo         outboxUsecase.OutboxEventRepository
	processedEventRepo inboxUsecase.ProcessedEventRepository
	ledgerRepo         inventoryUsecase.StockLedgerRepository
	reservationRepo    inventoryUsecase.StockReservationRepository
	paymentRepo        paymentUsecase.PaymentRepository
	orderRepo          orderUsecase.OrderRepository
	sagaRepo           sagaUsecase.SagaRepository

	// Services
	signer         *paymentService.Signer
	providerClient paymentService.ProviderClient

	// Use Cases
	inventoryUseCase inventoryUsecase.UseCase
	paymentUseCase   paymentUsecase.UseCase
	orderUseCase     orderUsecase.UseCase
	sagaUseCase      sagaUsecase.UseCase
	relay            outboxUsecase.UseCase
	sweeper          *sagaUsecase.Sweeper
	guard            *inboxUsecase.Guard

	// Servers and Workers
	httpServer    *http.Server
	metricsServer *http.MetricsServer
	consumer      *consumerPkg.Consumer

	// Initialization flags and mutex for thread-safety
	mu                   sync.Mutex
	loggerInit           sync.Once
	dbInit               sync.Once
	txManagerInit        sync.Once
	metricsProviderInit  sync.Once
	businessMetricsInit  sync.Once
	consumerMetricsInit  sync.Once
	busInit              sync.Once
	outboxRepoInit       sync.Once
	processedEventInit   sync.Once
	ledgerRepoInit       sync.Once
	reservationRepoInit  sync.Once
	paymentRepoInit      sync.Once
	orderRepoInit        sync.Once
	sagaRepoInit         sync.Once
	signerInit           sync.Once
	providerClientInit   sync.Once
	inventoryUseCaseInit sync.Once
	paymentUseCaseInit   sync.Once
	orderUseCaseInit     sync.Once
	sagaUseCaseInit      sync.Once
	relayInit            sync.Once
	sweeperInit          sync.Once
	guardInit            sync.Once
	httpServerInit       sync.Once
	metricsServerInit    sync.Once
	consumerInit         sync.Once
	initErrors           map[string]error
}

// NewContainer creates a new dependency injection container with the provided
// configuration.
func NewContainer(cfg *config.Config) *Container {
	return &Container{
		config:     cfg,
		initErrors: make(map[string]error),
	}
}

// Config returns the application configuration.
func (c *Container) Config() *config.Config {
	return c.config
}

// Logger returns the configured logger instance.
// It creates a new logger on first access based on the log level in configuration.
func (c *Container) Logger() *slog.Logger {
	c.loggerInit.Do(func() {
		c.logger = c.initLogger()
	})
	return c.logger
}

// DB returns the database connection.
// It creates and configures the database connection on first access.
func (c *Container) DB() (*sql.DB, error) {
	c.dbInit.Do(func() {
		db, err := database.Connect(database.Config{
			Driver:             c.config.DBDriver,
			ConnectionString:   c.config.DBConnectionString,
			MaxOpenConnections: c.config.DBMaxOpenConnections,
			MaxIdleConnections: c.config.DBMaxIdleConnections,
			ConnMaxLifetime:    c.config.DBConnMaxLifetime,
		})
		if err != nil {
			c.initErrors["db"] = fmt.Errorf("failed to connect to database: %w", err)
			return
		}
		c.db = db
	})
	if storedErr, exists := c.initErrors["db"]; exists {
		return nil, storedErr
	}
	return c.db, nil
}

// TxManager returns the transaction manager.
// It requires a database connection to be initialized first.
func (c *Container) TxManager() (database.TxManager, error) {
	c.txManagerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["txManager"] = fmt.Errorf("failed to get database for tx manager: %w", err)
			return
		}
		c.txManager = database.NewTxManager(db)
	})
	if storedErr, exists := c.initErrors["txManager"]; exists {
		return nil, storedErr
	}
	return c.txManager, nil
}

// MetricsProvider returns the OpenTelemetry metrics provider, or nil when
// metrics are disabled.
func (c *Container) MetricsProvider() (*metrics.Provider, error) {
	c.metricsProviderInit.Do(func() {
		if !c.config.MetricsEnabled {
			return
		}
		provider, err := metrics.NewProvider(c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["metricsProvider"] = fmt.Errorf("failed to create metrics provider: %w", err)
			return
		}
		c.metricsProvider = provider
	})
	if storedErr, exists := c.initErrors["metricsProvider"]; exists {
		return nil, storedErr
	}
	return c.metricsProvider, nil
}

// BusinessMetrics returns the business metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) BusinessMetrics() (metrics.BusinessMetrics, error) {
	c.businessMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["businessMetrics"] = err
			return
		}
		if provider == nil {
			c.businessMetrics = metrics.NewNoOpBusinessMetrics()
			return
		}
		c.businessMetrics, err = metrics.NewBusinessMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["businessMetrics"] = fmt.Errorf("failed to create business metrics: %w", err)
		}
	})
	if storedErr, exists := c.initErrors["businessMetrics"]; exists {
		return nil, storedErr
	}
	return c.businessMetrics, nil
}

// ConsumerMetrics returns the consumer metrics recorder. A no-op recorder is
// returned when metrics are disabled.
func (c *Container) ConsumerMetrics() (metrics.ConsumerMetrics, error) {
	c.consumerMetricsInit.Do(func() {
		provider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["consumerMetrics"] = err
			return
		}
		if provider == nil {
			c.consumerMetrics = metrics.NewNoOpConsumerMetrics()
			return
		}
		c.consumerMetrics, err = metrics.NewConsumerMetrics(provider.MeterProvider(), c.config.MetricsNamespace)
		if err != nil {
			c.initErrors["consumerMetrics"] = fmt.Errorf("failed to create consumer metrics: %w", err)
		}
	})
	if storedErr, exists := c.initErrors["consumerMetrics"]; exists {
		return nil, storedErr
	}
	return c.consumerMetrics, nil
}

// Bus returns the event bus selected by configuration.
func (c *Container) Bus() (eventbus.Bus, error) {
	c.busInit.Do(func() {
		switch c.config.BusDriver {
		case "kafka":
			c.bus = eventbus.NewKafkaBus(c.config.BrokerList())
		case "memory":
			c.bus = eventbus.NewMemoryBus()
		default:
			c.initErrors["bus"] = fmt.Errorf("unsupported bus driver: %s", c.config.BusDriver)
		}
	})
	if storedErr, exists := c.initErrors["bus"]; exists {
		return nil, storedErr
	}
	return c.bus, nil
}

// Shutdown performs cleanup of all initialized resources.
// It should be called when the application is shutting down.
func (c *Container) Shutdown(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var shutdownErrors []error

	if c.httpServer != nil {
		if err := c.httpServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("http server shutdown: %w", err))
		}
	}

	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics server shutdown: %w", err))
		}
	}

	if c.bus != nil {
		if err := c.bus.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus close: %w", err))
		}
	}

	if c.metricsProvider != nil {
		if err := c.metricsProvider.Shutdown(ctx); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("metrics provider shutdown: %w", err))
		}
	}

	if c.db != nil {
		if err := c.db.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
		}
	}

	if len(shutdownErrors) > 0 {
		return fmt.Errorf("shutdown errors: %v", shutdownErrors)
	}

	return nil
}

// initLogger creates and configures a structured logger based on the log level.
func (c *Container) initLogger() *slog.Logger {
	var logLevel slog.Level
	switch c.config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})

	return slog.New(handler)
}
