// Package usecase implements the outbox relay that drains pending events to
// the event bus.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/outbox/domain"
)

// Config holds relay configuration
type Config struct {
	Interval  time.Duration
	BatchSize int
}

// OutboxEventRepository defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *domain.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*domain.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	RecordFailedAttempt(ctx context.Context, id uuid.UUID, lastError string) error
}

// UseCase defines the interface for the outbox relay
type UseCase interface {
	Start(ctx context.Context) error
	ProcessEvents(ctx context.Context) error
}

// Relay publishes pending outbox events to the bus and marks them processed.
// A record is marked only after the broker acknowledged the publish; a failed
// publish leaves it pending for the next tick, which yields at-least-once
// delivery with unbounded retry. Running multiple replicas is safe: the
// pending batch is selected with row locks and marking-processed is a
// conditional idempotent update.
type Relay struct {
	config    Config
	txManager database.TxManager
	repo      OutboxEventRepository
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewRelay creates a new Relay
func NewRelay(
	config Config,
	txManager database.TxManager,
	repo OutboxEventRepository,
	publisher eventbus.Publisher,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		config:    config,
		txManager: txManager,
		repo:      repo,
		publisher: publisher,
		logger:    logger,
	}
}

// Start runs the relay loop until ctx is cancelled.
func (r *Relay) Start(ctx context.Context) error {
	if r.logger != nil {
		r.logger.Info("starting outbox relay",
			slog.Duration("interval", r.config.Interval),
			slog.Int("batch_size", r.config.BatchSize),
		)
	}

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if r.logger != nil {
				r.logger.Info("stopping outbox relay")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := r.ProcessEvents(ctx); err != nil {
				if r.logger != nil {
					r.logger.Error("failed to process outbox events", slog.Any("error", err))
				}
			}
		}
	}
}

// ProcessEvents drains one batch of pending events inside a transaction. The
// row locks taken by GetPendingEvents keep concurrent replicas on disjoint
// batches until commit.
func (r *Relay) ProcessEvents(ctx context.Context) error {
	return r.txManager.WithTx(ctx, func(ctx context.Context) error {
		events, err := r.repo.GetPendingEvents(ctx, r.config.BatchSize)
		if err != nil {
			return err
		}

		if len(events) == 0 {
			return nil
		}

		if r.logger != nil {
			r.logger.Info("relaying outbox events", slog.Int("count", len(events)))
		}

		for _, event := range events {
			msg := eventbus.Message{
				ID:    event.ID,
				Topic: event.Topic,
				Key:   event.AggregateID,
				Value: []byte(event.Payload),
			}

			if err := r.publisher.Publish(ctx, msg); err != nil {
				if r.logger != nil {
					r.logger.Error("failed to publish outbox event",
						slog.String("event_id", event.ID.String()),
						slog.String("event_type", event.EventType),
						slog.String("topic", event.Topic),
						slog.Any("error", err),
					)
				}

				if err := r.repo.RecordFailedAttempt(ctx, event.ID, err.Error()); err != nil {
					return err
				}
				continue
			}

			if err := r.repo.MarkProcessed(ctx, event.ID); err != nil {
				return err
			}
		}

		return nil
	})
}
