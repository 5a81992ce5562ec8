// Package usecase implements the processed-event guard that turns
// at-least-once delivery into effectively-once application.
package usecase

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/inbox/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// ProcessedEventRepository defines processed-event marker operations
type ProcessedEventRepository interface {
	Create(ctx context.Context, eventID uuid.UUID, consumerGroup string) error
}

// Guard wraps event handlers so their effect is applied at most once per
// consumer group. The marker insert and the handler run in one transaction: if
// either fails, both roll back and the delivery is retried; if the marker
// already exists, the handler is skipped and the delivery is acknowledged.
type Guard struct {
	consumerGroup string
	txManager     database.TxManager
	repo          ProcessedEventRepository
	logger        *slog.Logger
}

// NewGuard creates a Guard for the given consumer group.
func NewGuard(
	consumerGroup string,
	txManager database.TxManager,
	repo ProcessedEventRepository,
	logger *slog.Logger,
) *Guard {
	return &Guard{
		consumerGroup: consumerGroup,
		txManager:     txManager,
		repo:          repo,
		logger:        logger,
	}
}

// Process applies fn for eventID exactly once. A replayed event returns nil
// without invoking fn, so the caller commits the offset and no downstream
// event is re-published.
func (g *Guard) Process(ctx context.Context, eventID uuid.UUID, fn func(ctx context.Context) error) error {
	if eventID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "event id is required")
	}

	err := g.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := g.repo.Create(ctx, eventID, g.consumerGroup); err != nil {
			return err
		}
		return fn(ctx)
	})

	if apperrors.Is(err, domain.ErrAlreadyProcessed) {
		if g.logger != nil {
			g.logger.Debug("skipping already processed event",
				slog.String("event_id", eventID.String()),
				slog.String("consumer_group", g.consumerGroup),
			)
		}
		return nil
	}

	return err
}
