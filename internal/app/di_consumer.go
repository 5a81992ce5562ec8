package app

import (
	"fmt"

	"github.com/allisson/fulfillment/internal/eventbus"

	consumerPkg "github.com/allisson/fulfillment/internal/consumer"
)

// Consumer returns the event consumer with all topic handlers registered.
func (c *Container) Consumer() (*consumerPkg.Consumer, error) {
	c.consumerInit.Do(func() {
		bus, err := c.Bus()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get event bus for consumer: %w", err)
			return
		}

		guard, err := c.Guard()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get guard for consumer: %w", err)
			return
		}

		consumerMetrics, err := c.ConsumerMetrics()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get consumer metrics for consumer: %w", err)
			return
		}

		orderUseCase, err := c.OrderUseCase()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get order use case for consumer: %w", err)
			return
		}

		sagaUseCase, err := c.SagaUseCase()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get saga use case for consumer: %w", err)
			return
		}

		inventoryUseCase, err := c.InventoryUseCase()
		if err != nil {
			c.initErrors["consumer"] = fmt.Errorf("failed to get inventory use case for consumer: %w", err)
			return
		}

		logger := c.Logger()
		workers := map[consumerPkg.Priority]int{
			consumerPkg.PriorityUrgent:        c.config.WorkersUrgent,
			consumerPkg.PriorityTransactional: c.config.WorkersTransactional,
			consumerPkg.PriorityBulk:          c.config.WorkersBulk,
		}

		consumer := consumerPkg.NewConsumer(
			bus,
			guard,
			c.config.BusConsumerGroup,
			workers,
			consumerMetrics,
			logger,
		)

		// Order flow and compensations are urgent: a captured payment or a
		// pending refund must not wait behind notification traffic.
		consumer.Handle(eventbus.TopicPaymentSuccess, consumerPkg.PriorityUrgent,
			consumerPkg.PaymentSuccessHandler(orderUseCase))
		consumer.Handle(eventbus.TopicOrderCancel, consumerPkg.PriorityUrgent,
			consumerPkg.OrderCancelHandler(sagaUseCase))
		consumer.Handle(eventbus.TopicNotificationUrgent, consumerPkg.PriorityUrgent,
			consumerPkg.NotificationHandler(logger))

		consumer.Handle(eventbus.TopicProductCreated, consumerPkg.PriorityTransactional,
			consumerPkg.ProductCreatedHandler(inventoryUseCase))
		consumer.Handle(eventbus.TopicOrderPlaced, consumerPkg.PriorityTransactional,
			consumerPkg.DownstreamEventHandler(logger))
		consumer.Handle(eventbus.TopicInventoryReleased, consumerPkg.PriorityTransactional,
			consumerPkg.DownstreamEventHandler(logger))
		consumer.Handle(eventbus.TopicNotificationTransactional, consumerPkg.PriorityTransactional,
			consumerPkg.NotificationHandler(logger))

		consumer.Handle(eventbus.TopicRatingUpdated, consumerPkg.PriorityBulk,
			consumerPkg.DownstreamEventHandler(logger))
		consumer.Handle(eventbus.TopicNotificationBulk, consumerPkg.PriorityBulk,
			consumerPkg.NotificationHandler(logger))

		c.consumer = consumer
	})
	if storedErr, exists := c.initErrors["consumer"]; exists {
		return nil, storedErr
	}
	return c.consumer, nil
}
