package app

import (
	"fmt"

	inboxRepository "github.com/allisson/fulfillment/internal/inbox/repository"
	inboxUsecase "github.com/allisson/fulfillment/internal/inbox/usecase"
	outboxRepository "github.com/allisson/fulfillment/internal/outbox/repository"
	outboxUsecase "github.com/allisson/fulfillment/internal/outbox/usecase"
)

// OutboxRepository returns the outbox event repository instance.
func (c *Container) OutboxRepository() (outboxUsecase.OutboxEventRepository, error) {
	c.outboxRepoInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["outboxRepo"] = fmt.Errorf("failed to get database for outbox repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.outboxRepo = outboxRepository.NewMySQLOutboxEventRepository(db)
		case "postgres":
			c.outboxRepo = outboxRepository.NewPostgreSQLOutboxEventRepository(db)
		default:
			c.initErrors["outboxRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["outboxRepo"]; exists {
		return nil, storedErr
	}
	return c.outboxRepo, nil
}

// ProcessedEventRepository returns the processed-event repository instance.
func (c *Container) ProcessedEventRepository() (inboxUsecase.ProcessedEventRepository, error) {
	c.processedEventInit.Do(func() {
		db, err := c.DB()
		if err != nil {
			c.initErrors["processedEventRepo"] = fmt.Errorf("failed to get database for processed event repository: %w", err)
			return
		}

		switch c.config.DBDriver {
		case "mysql":
			c.processedEventRepo = inboxRepository.NewMySQLProcessedEventRepository(db)
		case "postgres":
			c.processedEventRepo = inboxRepository.NewPostgreSQLProcessedEventRepository(db)
		default:
			c.initErrors["processedEventRepo"] = fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
		}
	})
	if storedErr, exists := c.initErrors["processedEventRepo"]; exists {
		return nil, storedErr
	}
	return c.processedEventRepo, nil
}

// Relay returns the outbox relay instance.
func (c *Container) Relay() (outboxUsecase.UseCase, error) {
	c.relayInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["relay"] = fmt.Errorf("failed to get tx manager for relay: %w", err)
			return
		}

		outboxRepo, err := c.OutboxRepository()
		if err != nil {
			c.initErrors["relay"] = fmt.Errorf("failed to get outbox repository for relay: %w", err)
			return
		}

		bus, err := c.Bus()
		if err != nil {
			c.initErrors["relay"] = fmt.Errorf("failed to get event bus for relay: %w", err)
			return
		}

		c.relay = outboxUsecase.NewRelay(
			outboxUsecase.Config{
				Interval:  c.config.OutboxRelayInterval,
				BatchSize: c.config.OutboxRelayBatchSize,
			},
			txManager,
			outboxRepo,
			bus,
			c.Logger(),
		)
	})
	if storedErr, exists := c.initErrors["relay"]; exists {
		return nil, storedErr
	}
	return c.relay, nil
}

// Guard returns the processed-event guard for this service's consumer group.
func (c *Container) Guard() (*inboxUsecase.Guard, error) {
	c.guardInit.Do(func() {
		txManager, err := c.TxManager()
		if err != nil {
			c.initErrors["guard"] = fmt.Errorf("failed to get tx manager for guard: %w", err)
			return
		}

		repo, err := c.ProcessedEventRepository()
		if err != nil {
			c.initErrors["guard"] = fmt.Errorf("failed to get processed event repository for guard: %w", err)
			return
		}

		c.guard = inboxUsecase.NewGuard(c.config.BusConsumerGroup, txManager, repo, c.Logger())
	})
	if storedErr, exists := c.initErrors["guard"]; exists {
		return nil, storedErr
	}
	return c.guard, nil
}
