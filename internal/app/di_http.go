package app

import (
	"fmt"

	"github.com/allisson/fulfillment/internal/http"

	inventoryHTTP "github.com/allisson/fulfillment/internal/inventory/http"
	orderHTTP "github.com/allisson/fulfillment/internal/order/http"
	paymentHTTP "github.com/allisson/fulfillment/internal/payment/http"
)

// HTTPServer returns the API server instance.
func (c *Container) HTTPServer() (*http.Server, error) {
	c.httpServerInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get database for http server: %w", err)
			return
		}

		orderUseCase, err := c.OrderUseCase()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get order use case for http server: %w", err)
			return
		}

		inventoryUseCase, err := c.InventoryUseCase()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get inventory use case for http server: %w", err)
			return
		}

		paymentUseCase, err := c.PaymentUseCase()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get payment use case for http server: %w", err)
			return
		}

		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["httpServer"] = fmt.Errorf("failed to get metrics provider for http server: %w", err)
			return
		}

		logger := c.Logger()
		handlers := http.Handlers{
			Order:     orderHTTP.NewOrderHandler(orderUseCase, logger),
			Inventory: inventoryHTTP.NewInventoryHandler(inventoryUseCase, logger),
			Payment:   paymentHTTP.NewPaymentHandler(paymentUseCase, c.Signer(), logger),
		}

		c.httpServer = http.NewServer(c.config, db, handlers, metricsProvider, logger)
	})
	if storedErr, exists := c.initErrors["httpServer"]; exists {
		return nil, storedErr
	}
	return c.httpServer, nil
}

// MetricsServer returns the Prometheus metrics server instance.
func (c *Container) MetricsServer() (*http.MetricsServer, error) {
	c.metricsServerInit.Do(func() {
		metricsProvider, err := c.MetricsProvider()
		if err != nil {
			c.initErrors["metricsServer"] = fmt.Errorf("failed to get metrics provider for metrics server: %w", err)
			return
		}

		c.metricsServer = http.NewMetricsServer(
			c.config.ServerHost,
			c.config.MetricsPort,
			c.Logger(),
			metricsProvider,
		)
	})
	if storedErr, exists := c.initErrors["metricsServer"]; exists {
		return nil, storedErr
	}
	return c.metricsServer, nil
}
