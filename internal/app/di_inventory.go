package app

import (
	"fmt"

	inventoryRepository "github.com/allisson/fulfillment/internal/inventory/repository"
	inventoryUsecase "github.com/allisson/fulfillment/internal/inventory/usecase"
)

// StockLedgerRepository returns the stock ledger repository instance.
func (c *Container) StockLedgerRepository() (inventoryUsecase.StockLedgerRepository, error) {
	c.ledgerRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["ledgerRepo"] = fmt.Errorf("failed to get database for stock ledger repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.ledgerRepo = inventoryRepository.NewMySQLStockLedgerRepository(db)
		case "postgres":
			c.ledgerRepo = inventoryRepository.NewPostgreSQLStockLedgerRepository(db)
		default:
			c.initErrors["ledgerRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["ledgerRepo"]; exists {
		return nil, storedErr
	}
	return c.ledgerRepo, nil
}

// StockReservationRepository returns the stock reservation repository instance.
func (c *Container) StockReservationRepository() (inventoryUsecase.StockReservationRepository, error) {
	c.reservationRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["reservationRepo"] = fmt.Errorf("failed to get database for stock reservation repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.reservationRepo = inventoryRepository.NewMySQLStockReservationRepository(db)
		case "postgres":
			c.reservationRepo = inventoryRepository.NewPostgreSQLStockReservationRepository(db)
		default:
			c.initErrors["reservationRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["reservationRepo"]; exists {
		return nil, storedErr
	}
	return c.reservationRepo, nil
}

// InventoryUseCase returns the reservation manager instance.
func (c *Container) InventoryUseCase() (inventoryUsecase.UseCase, error) {
	c.inventoryUseCaseInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["inventoryUseCase"] = fmt.Errorf("failed to get tx manager for inventory use case: %w", err)
			return
		}

		ledgerRepo, err := c.StockLedgerRepository()
		if err != nil {
			c.initErrors["inventoryUseCase"] = fmt.Errorf("failed to get ledger repository for inventory use case: %w", err)
			return
		}

		reservationRepo, err := c.StockReservationRepository()
		if err != nil {
			c.initErrors["inventoryUseCase"] = fmt.Errorf("failed to get reservation repository for inventory use case: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["inventoryUseCase"] = fmt.Errorf("failed to get outbox repository for inventory use case: %w", err)
			return
		}

		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			c.initErrors["inventoryUseCase"] = fmt.Errorf("failed to get business metrics for inventory use case: %w", err)
			return
		}

		useCase := inventoryUsecase.NewReservationManager(
			inventoryUsecase.Config{LockMaxAttempts: c.config.LockMaxAttempts},
			txManager,
			ledgerRepo,
			reservationRepo,
			outboxRepo,
			c.Logger(),
		)

		c.inventoryUseCase = inventoryUsecase.NewUseCaseWithMetrics(useCase, businessMetrics)
	})
	if storedErr, exists := c.initErrors["inventoryUseCase"]; exists {
		return nil, storedErr
	}
	return c.inventoryUseCase, nil
}
