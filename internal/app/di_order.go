package app

import (
	"fmt"

	orderRepository "github.com/allisson/fulfillment/internal/order/repository"
	orderUsecase "github.com/allisson/fulfillment/internal/order/usecase"
)

// OrderRepository returns the order repository instance.
func (c *Container) OrderRepository() (orderUsecase.OrderRepository, error) {
	c.orderRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["orderRepo"] = fmt.Errorf("failed to get database for order repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.orderRepo = orderRepository.NewMySQLOrderRepository(db)
		case "postgres":
			c.orderRepo = orderRepository.NewPostgreSQLOrderRepository(db)
		default:
			c.initErrors["orderRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["orderRepo"]; exists {
		return nil, storedErr
	}
	return c.orderRepo, nil
}

// OrderUseCase returns the order use case instance.
func (c *Container) OrderUseCase() (orderUsecase.UseCase, error) {
	c.orderUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get tx manager for order use case: %w", err)
			return
		}

		orderRepo, err := c.OrderRepository()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get order repository for order use case: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get outbox repository for order use case: %w", err)
			return
		}

		inventoryUseCase, err := c.InventoryUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get inventory use case for order use case: %w", err)
			return
		}

		paymentUseCase, err := c.PaymentUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get payment use case for order use case: %w", err)
			return
		}

		sagaUseCase, err := c.SagaUseCase()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get saga use case for order use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["orderUseCase"] = fmt.Errorf("failed to get business metrics for order use case: %w", err)
			return
		}

		useCase := orderUsecase.NewOrderUseCase(
			txManager,
			orderRepo,
			outboxRepo,
			inventoryUseCase,
			paymentUseCase,
			sagaUseCase,
			c.Logger(),
		)

		c.orderUseCase = orderUsecase.NewUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["orderUseCase"]; exists {
		return nil, storedErr
	}
	return c.orderUseCase, nil
}
