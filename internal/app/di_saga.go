package app

import (
	"fmt"

	sagaRepository "github.com/allisson/fulfillment/internal/saga/repository"
	sagaUsecase "github.com/allisson/fulfillment/internal/saga/usecase"
)

// SagaRepository returns the saga state repository instance.
func (c *Container) SagaRepository() (sagaUsecase.SagaRepository, error) {
	c.sagaRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["sagaRepo"] = fmt.Errorf("failed to get database for saga repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.sagaRepo = sagaRepository.NewMySQLSagaRepository(db)
		case "postgres":
			c.sagaRepo = sagaRepository.NewPostgreSQLSagaRepository(db)
		default:
			c.initErrors["sagaRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["sagaRepo"]; exists {
		return nil, storedErr
	}
	return c.sagaRepo, nil
}

// SagaUseCase returns the cancellation saga coordinator instance.
func (c *Container) SagaUseCase() (sagaUsecase.UseCase, error) {
	c.sagaUseCaseInit.Do(func() {
		sagaRepo, err := c.SagaRepository()
		if err != nil {
			c.initErrors["sagaUseCase"] = fmt.Errorf("failed to get saga repository for saga use case: %w", err)
			return
		}

		inventoryUseCase, err := c.InventoryUseCase()
		if err != nil {
			c.initErrors["sagaUseCase"] = fmt.Errorf("failed to get inventory use case for saga use case: %w", err)
			return
		}

		paymentUseCase, err := c.PaymentUseCase()
		if err != nil {
			c.initErrors["sagaUseCase"] = fmt.Errorf("failed to get payment use case for saga use case: %w", err)
			return
		}

		c.sagaUseCase = sagaUsecase.NewCoordinator(sagaRepo, inventoryUseCase, paymentUseCase, c.Logger())
	})
	if storedErr, exists := c.initErrors["sagaUseCase"]; exists {
		return nil, storedErr
	}
	return c.sagaUseCase, nil
}

// Sweeper returns the saga reconciliation sweeper instance.
func (c *Container) Sweeper() (*sagaUsecase.Sweeper, error) {
	c.sweeperInit.Do(func() {
		sagaRepo, err := c.SagaRepository()
		if err != nil {
			c.initErrors["sweeper"] = fmt.Errorf("failed to get saga repository for sweeper: %w", err)
			return
		}

		sagaUseCase, err := c.SagaUseCase()
		if err != nil {
			c.initErrors["sweeper"] = fmt.Errorf("failed to get saga use case for sweeper: %w", err)
			return
		}

		c.sweeper = sagaUsecase.NewSweeper(
			sagaUsecase.Config{
				SweepInterval:  c.config.SagaSweepInterval,
				SweepCutoff:    c.config.SagaSweepCutoff,
				SweepBatchSize: c.config.SagaSweepBatchSize,
			},
			sagaRepo,
			sagaUseCase,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["sweeper"]; exists {
		return nil, storedErr
	}
	return c.sweeper, nil
}
