// Package consumer runs the event worker pools. Every subscribed topic is
// assigned a priority class and is processed by that class's pool, so a
// backlog of bulk notifications never starves payment confirmations.
package consumer

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/metrics"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// Priority is the processing class of a topic.
type Priority string

const (
	PriorityUrgent        Priority = "urgent"
	PriorityTransactional Priority = "transactional"
	PriorityBulk          Priority = "bulk"
)

// Handler applies the effect of one message. It runs inside the
// processed-event guard's transaction: returning an error rolls everything
// back and the delivery is retried. An error wrapping ErrInvalidInput marks
// the message as poison and sends it to the dead-letter topic instead.
type Handler func(ctx context.Context, msg eventbus.Message) error

// ProcessedEventGuard applies a function at most once per event id.
type ProcessedEventGuard interface {
	Process(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) error
}

type binding struct {
	topic    string
	priority Priority
	handler  Handler
}

// Consumer subscribes to registered topics and processes deliveries with
// per-priority worker pools.
type Consumer struct {
	bus      eventbus.Bus
	guard    ProcessedEventGuard
	group    string
	workers  map[Priority]int
	bindings []binding
	metrics  metrics.ConsumerMetrics
	logger   *slog.Logger
}

// NewConsumer creates a Consumer for the given consumer group. The workers
// map sets the pool size per priority class; a missing or non-positive entry
// falls back to a single worker.
func NewConsumer(
	bus eventbus.Bus,
	guard ProcessedEventGuard,
	group string,
	workers map[Priority]int,
	consumerMetrics metrics.ConsumerMetrics,
	logger *slog.Logger,
) *Consumer {
	return &Consumer{
		bus:     bus,
		guard:   guard,
		group:   group,
		workers: workers,
		metrics: consumerMetrics,
		logger:  logger,
	}
}

// Handle registers a handler for a topic under a priority class. Must be
// called before Start.
func (c *Consumer) Handle(topic string, priority Priority, handler Handler) {
	c.bindings = append(c.bindings, binding{topic: topic, priority: priority, handler: handler})
}

// Start opens the subscriptions and blocks processing messages until ctx is
// cancelled. Workers of the same topic share the consumer group, so the
// broker balances partitions among them. All subscriptions are opened before
// any worker runs; a failed subscribe closes the ones already opened and no
// goroutine is left behind.
func (c *Consumer) Start(ctx context.Context) error {
	type workerBinding struct {
		binding binding
		sub     eventbus.Subscription
	}

	var workerSubs []workerBinding
	for _, b := range c.bindings {
		n := c.workers[b.priority]
		if n < 1 {
			n = 1
		}

		for i := 0; i < n; i++ {
			sub, err := c.bus.Subscribe(b.topic, c.group)
			if err != nil {
				for _, ws := range workerSubs {
					_ = ws.sub.Close()
				}
				return apperrors.Wrap(err, "failed to subscribe to "+b.topic)
			}
			workerSubs = append(workerSubs, workerBinding{binding: b, sub: sub})
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	for _, ws := range workerSubs {
		ws := ws
		g.Go(func() error {
			defer func() {
				_ = ws.sub.Close()
			}()
			return c.runWorker(ctx, ws.binding, ws.sub)
		})
	}

	if c.logger != nil {
		c.logger.Info("consumer started",
			slog.String("consumer_group", c.group),
			slog.Int("topics", len(c.bindings)),
		)
	}

	return g.Wait()
}

// runWorker fetches and processes deliveries until ctx is cancelled.
func (c *Consumer) runWorker(ctx context.Context, b binding, sub eventbus.Subscription) error {
	for {
		delivery, err := sub.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if c.logger != nil {
				c.logger.Warn("fetch failed",
					slog.String("topic", b.topic),
					slog.Any("error", err),
				)
			}
			continue
		}

		c.processDelivery(ctx, b, sub, delivery)
	}
}

// processDelivery applies one delivery. The offset is committed on success,
// on a duplicate and after dead-lettering; it stays uncommitted when the
// handler failed transiently so the broker redelivers.
func (c *Consumer) processDelivery(ctx context.Context, b binding, sub eventbus.Subscription, d *eventbus.Delivery) {
	msg := d.Message

	if msg.ID == uuid.Nil {
		c.deadLetter(ctx, b, sub, d, "message has no event id")
		return
	}

	start := time.Now()
	applied := false
	err := c.guard.Process(ctx, msg.ID, func(ctx context.Context) error {
		applied = true
		return b.handler(ctx, msg)
	})
	c.metrics.RecordHandlerDuration(ctx, b.topic, c.group, time.Since(start))

	switch {
	case err == nil && !applied:
		c.metrics.RecordMessage(ctx, b.topic, c.group, "duplicate")
		c.commit(ctx, b, sub, d)

	case err == nil:
		c.metrics.RecordMessage(ctx, b.topic, c.group, "success")
		c.commit(ctx, b, sub, d)

	case apperrors.Is(err, apperrors.ErrInvalidInput):
		c.deadLetter(ctx, b, sub, d, err.Error())

	default:
		c.metrics.RecordMessage(ctx, b.topic, c.group, "error")
		if c.logger != nil {
			c.logger.Error("handler failed, delivery will be retried",
				slog.String("topic", b.topic),
				slog.String("event_id", msg.ID.String()),
				slog.Any("error", err),
			)
		}
	}
}

// deadLetter forwards a poison message to the topic's dead-letter topic and
// commits the original delivery. When the forward itself fails the offset is
// left uncommitted so nothing is lost.
func (c *Consumer) deadLetter(ctx context.Context, b binding, sub eventbus.Subscription, d *eventbus.Delivery, reason string) {
	msg := d.Message

	dlqMsg := eventbus.Message{
		ID:    uuid.Must(uuid.NewV7()),
		Topic: msg.Topic + eventbus.DLQSuffix,
		Key:   msg.Key,
		Value: msg.Value,
	}

	if err := c.bus.Publish(ctx, dlqMsg); err != nil {
		c.metrics.RecordMessage(ctx, b.topic, c.group, "error")
		if c.logger != nil {
			c.logger.Error("failed to dead-letter message",
				slog.String("topic", b.topic),
				slog.Any("error", err),
			)
		}
		return
	}

	c.metrics.RecordMessage(ctx, b.topic, c.group, "dead_lettered")
	if c.logger != nil {
		c.logger.Warn("message dead-lettered",
			slog.String("topic", b.topic),
			slog.String("event_id", msg.ID.String()),
			slog.String("reason", reason),
		)
	}

	c.commit(ctx, b, sub, d)
}

func (c *Consumer) commit(ctx context.Context, b binding, sub eventbus.Subscription, d *eventbus.Delivery) {
	if err := sub.Commit(ctx, d); err != nil && c.logger != nil {
		c.logger.Warn("failed to commit offset",
			slog.String("topic", b.topic),
			slog.Any("error", err),
		)
	}
}
