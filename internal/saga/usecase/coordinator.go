// Package usecase implements the cancellation saga coordinator and the
// reconciliation sweep that re-drives stuck compensations.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/allisson/fulfillment/internal/saga/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// Config holds saga coordinator configuration
type Config struct {
	// SweepInterval is how often the reconciliation sweep runs.
	SweepInterval time.Duration
	// SweepCutoff is the staleness window: sagas older than this with an open
	// flag are re-driven.
	SweepCutoff time.Duration
	// SweepBatchSize bounds the sagas re-driven per tick.
	SweepBatchSize int
}

// SagaRepository interface defines saga repository operations
type SagaRepository interface {
	Create(ctx context.Context, saga *domain.SagaState) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error)
	SetInventoryReleased(ctx context.Context, orderID string) error
	SetPaymentRefunded(ctx context.Context, orderID string) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*domain.SagaState, error)
}

// InventoryReleaser releases an order's reserved stock. Must be idempotent.
type InventoryReleaser interface {
	ReleaseStock(ctx context.Context, orderID string) error
}

// PaymentRefunder refunds an order's captured payment. Must be idempotent and
// treat never-captured payments as an immediate no-op.
type PaymentRefunder interface {
	Refund(ctx context.Context, orderID string) error
}

// UseCase defines the interface for the saga coordinator
type UseCase interface {
	Open(ctx context.Context, orderID string) error
	Compensate(ctx context.Context, orderID string) error
	GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error)
}

// Coordinator drives a cancelled order's compensations to completion. The two
// compensations are independent and idempotent, so they run concurrently and
// any of them may be replayed by redelivered cancel events or by the sweep;
// each flag flips exactly when its compensation has completed and never flips
// back.
type Coordinator struct {
	repo      SagaRepository
	inventory InventoryReleaser
	payments  PaymentRefunder
	logger    *slog.Logger
}

// NewCoordinator creates a new Coordinator
func NewCoordinator(
	repo SagaRepository,
	inventory InventoryReleaser,
	payments PaymentRefunder,
	logger *slog.Logger,
) *Coordinator {
	return &Coordinator{
		repo:      repo,
		inventory: inventory,
		payments:  payments,
		logger:    logger,
	}
}

// Open records that a cancellation was requested for the order. Opening the
// same saga twice is a no-op so a redelivered cancel request cannot fail.
func (c *Coordinator) Open(ctx context.Context, orderID string) error {
	if orderID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "order_id is required")
	}

	err := c.repo.Create(ctx, &domain.SagaState{OrderID: orderID})
	if apperrors.Is(err, domain.ErrSagaAlreadyExists) {
		return nil
	}
	return err
}

// Compensate runs both compensations for the order concurrently, skipping the
// ones already recorded as complete. A failed compensation leaves its flag
// unset; the other one still proceeds, and the sweep retries the failed side
// later. There is no deadline after which the saga is abandoned.
func (c *Coordinator) Compensate(ctx context.Context, orderID string) error {
	saga, err := c.repo.GetByOrderID(ctx, orderID)
	if err != nil {
		return err
	}

	if saga.Completed() {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)

	if !saga.InventoryReleased {
		g.Go(func() error {
			if err := c.inventory.ReleaseStock(ctx, orderID); err != nil {
				return apperrors.Wrap(err, "inventory compensation failed")
			}
			return c.repo.SetInventoryReleased(ctx, orderID)
		})
	}

	if !saga.PaymentRefunded {
		g.Go(func() error {
			if err := c.payments.Refund(ctx, orderID); err != nil {
				return apperrors.Wrap(err, "payment compensation failed")
			}
			return c.repo.SetPaymentRefunded(ctx, orderID)
		})
	}

	if err := g.Wait(); err != nil {
		if c.logger != nil {
			c.logger.Warn("saga compensation incomplete",
				slog.String("order_id", orderID),
				slog.Any("error", err),
			)
		}
		return err
	}

	if c.logger != nil {
		c.logger.Info("saga completed", slog.String("order_id", orderID))
	}

	return nil
}

// GetByOrderID retrieves a saga by order ID
func (c *Coordinator) GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error) {
	return c.repo.GetByOrderID(ctx, orderID)
}

// Sweeper periodically re-drives sagas that have been open longer than the
// staleness window. Retries continue forever: leaving a refund or a stock
// release undone is worse than sweeping the same row again.
type Sweeper struct {
	config      Config
	repo        SagaRepository
	coordinator UseCase
	logger      *slog.Logger
}

// NewSweeper creates a new Sweeper
func NewSweeper(config Config, repo SagaRepository, coordinator UseCase, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		config:      config,
		repo:        repo,
		coordinator: coordinator,
		logger:      logger,
	}
}

// Start runs the sweep loop until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) error {
	if s.logger != nil {
		s.logger.Info("starting saga sweeper",
			slog.Duration("interval", s.config.SweepInterval),
			slog.Duration("cutoff", s.config.SweepCutoff),
		)
	}

	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.Info("stopping saga sweeper")
			}
			return ctx.Err()
		case <-ticker.C:
			if err := s.SweepOnce(ctx); err != nil {
				if s.logger != nil {
					s.logger.Error("saga sweep failed", slog.Any("error", err))
				}
			}
		}
	}
}

// SweepOnce re-drives one batch of stale sagas. A failing saga does not stop
// the batch; it stays stale and is picked up again next tick.
func (s *Sweeper) SweepOnce(ctx context.Context) error {
	cutoff := time.Now().Add(-s.config.SweepCutoff)

	sagas, err := s.repo.ListStale(ctx, cutoff, s.config.SweepBatchSize)
	if err != nil {
		return err
	}

	if len(sagas) == 0 {
		return nil
	}

	if s.logger != nil {
		s.logger.Info("re-driving stale sagas", slog.Int("count", len(sagas)))
	}

	for _, saga := range sagas {
		if err := s.coordinator.Compensate(ctx, saga.OrderID); err != nil {
			if s.logger != nil {
				s.logger.Warn("stale saga still incomplete",
					slog.String("order_id", saga.OrderID),
					slog.Any("error", err),
				)
			}
		}
	}

	return nil
}
