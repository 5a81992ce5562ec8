// Package usecase implements the inventory business logic: the reservation
// manager that locks and releases stock, and ledger provisioning from
// product-created events.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/inventory/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	outboxDomain "github.com/allisson/fulfillment/internal/outbox/domain"
	appValidation "github.com/allisson/fulfillment/internal/validation"
)

// Config holds reservation manager configuration
type Config struct {
	// LockMaxAttempts bounds the read-modify-write retries per line when the
	// ledger version moves under us. The re-read happens inside the lock
	// transaction, so it only observes a concurrent winner under READ
	// COMMITTED isolation (the PostgreSQL default). Under MySQL's default
	// REPEATABLE READ the re-read returns the transaction's snapshot, every
	// attempt hits the same version conflict and the lock surfaces
	// ErrTransient for the caller to resubmit on a fresh transaction.
	LockMaxAttempts int
}

// OrderItem is one line of a lock request
type OrderItem struct {
	SkuCode  string `json:"sku_code"`
	Quantity int64  `json:"quantity"`
}

// CreateLedgerEntryInput contains the input data for ledger provisioning
type CreateLedgerEntryInput struct {
	SkuCode  string `json:"sku_code"`
	Quantity int64  `json:"quantity"`
}

// UseCase defines the interface for inventory business logic operations
type UseCase interface {
	LockStock(ctx context.Context, orderID string, items []OrderItem) error
	ReleaseStock(ctx context.Context, orderID string) error
	CreateLedgerEntry(ctx context.Context, input CreateLedgerEntryInput) (*domain.StockLedgerEntry, error)
	GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error)
}

// StockLedgerRepository interface defines stock ledger repository operations
type StockLedgerRepository interface {
	Create(ctx context.Context, entry *domain.StockLedgerEntry) error
	GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error)
	UpdateQuantities(ctx context.Context, entry *domain.StockLedgerEntry) error
}

// StockReservationRepository interface defines stock reservation repository operations
type StockReservationRepository interface {
	Create(ctx context.Context, reservation *domain.StockReservation) error
	GetReservedByOrder(ctx context.Context, orderID string) ([]*domain.StockReservation, error)
	MarkReleased(ctx context.Context, id uuid.UUID) (bool, error)
}

// OutboxEventRepository interface defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// ReservationManager handles stock locking and release. Correctness does not
// depend on replica count: availability checks and reservation writes ride on
// the ledger's version CAS, so two managers racing over the same SKU cannot
// both win the last units.
type ReservationManager struct {
	config          Config
	txManager       database.TxManager
	ledgerRepo      StockLedgerRepository
	reservationRepo StockReservationRepository
	outboxRepo      OutboxEventRepository
	logger          *slog.Logger
}

// NewReservationManager creates a new ReservationManager
func NewReservationManager(
	config Config,
	txManager database.TxManager,
	ledgerRepo StockLedgerRepository,
	reservationRepo StockReservationRepository,
	outboxRepo OutboxEventRepository,
	logger *slog.Logger,
) *ReservationManager {
	if config.LockMaxAttempts < 1 {
		config.LockMaxAttempts = 1
	}

	return &ReservationManager{
		config:          config,
		txManager:       txManager,
		ledgerRepo:      ledgerRepo,
		reservationRepo: reservationRepo,
		outboxRepo:      outboxRepo,
		logger:          logger,
	}
}

// validateLockInput validates a lock request using jellydator/validation
func (m *ReservationManager) validateLockInput(orderID string, items []OrderItem) error {
	if err := validation.Validate(orderID,
		validation.Required.Error("order_id is required"),
		appValidation.NotBlank,
	); err != nil {
		return appValidation.WrapValidationError(err)
	}

	if len(items) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "items must not be empty")
	}

	for _, item := range items {
		err := validation.ValidateStruct(&item,
			validation.Field(&item.SkuCode,
				validation.Required.Error("sku_code is required"),
				appValidation.SkuCode,
			),
			validation.Field(&item.Quantity,
				validation.Required.Error("quantity is required"),
				validation.Min(1).Error("quantity must be at least 1"),
			),
		)
		if err != nil {
			return appValidation.WrapValidationError(err)
		}
	}

	return nil
}

// LockStock reserves every item of the order or nothing at all. All lines are
// written in a single transaction, so a failure on a later line rolls back the
// reservations and ledger updates of the earlier ones. Each line runs a
// bounded read-modify-write cycle: a version conflict on the CAS update means
// a concurrent writer moved the ledger, so the line is retried against fresh
// state; exhausting the retries surfaces ErrTransient and the caller may
// resubmit. An inventory-lock event is recorded in the same transaction.
func (m *ReservationManager) LockStock(ctx context.Context, orderID string, items []OrderItem) error {
	if err := m.validateLockInput(orderID, items); err != nil {
		return err
	}

	orderID = strings.TrimSpace(orderID)

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		for _, item := range items {
			if err := m.lockLine(ctx, orderID, item); err != nil {
				return err
			}
		}

		event, err := outboxDomain.NewOutboxEvent(orderID, "inventory.locked", eventbus.TopicInventoryLock,
			map[string]any{
				"order_id": orderID,
				"items":    items,
			})
		if err != nil {
			return err
		}

		return m.outboxRepo.Create(ctx, event)
	})
	if err != nil {
		return err
	}

	if m.logger != nil {
		m.logger.Info("stock locked",
			slog.String("order_id", orderID),
			slog.Int("items", len(items)),
		)
	}

	return nil
}

// lockLine reserves one order line against the ledger.
func (m *ReservationManager) lockLine(ctx context.Context, orderID string, item OrderItem) error {
	for attempt := 0; attempt < m.config.LockMaxAttempts; attempt++ {
		entry, err := m.ledgerRepo.GetBySku(ctx, item.SkuCode)
		if err != nil {
			return err
		}

		if !entry.CanReserve(item.Quantity) {
			return apperrors.Wrap(domain.ErrInsufficientStock, item.SkuCode)
		}

		entry.ReservedQuantity += item.Quantity

		err = m.ledgerRepo.UpdateQuantities(ctx, entry)
		if apperrors.Is(err, domain.ErrVersionConflict) {
			if m.logger != nil {
				m.logger.Warn("ledger version conflict, retrying",
					slog.String("order_id", orderID),
					slog.String("sku_code", item.SkuCode),
					slog.Int("attempt", attempt+1),
				)
			}
			continue
		}
		if err != nil {
			return err
		}

		reservation := &domain.StockReservation{
			ID:       uuid.Must(uuid.NewV7()),
			OrderID:  orderID,
			SkuCode:  item.SkuCode,
			Quantity: item.Quantity,
			Status:   domain.ReservationStatusReserved,
		}

		return m.reservationRepo.Create(ctx, reservation)
	}

	return apperrors.Wrap(apperrors.ErrTransient, "lock retries exhausted for sku "+item.SkuCode)
}

// ReleaseStock returns the order's reserved stock to the pool. The operation
// is idempotent: each reservation row flips RESERVED -> RELEASED at most once
// via a conditional update, and the ledger decrement only happens for rows
// this call actually flipped. An order with no RESERVED rows is a no-op. When
// stock was returned, an inventory-released event is recorded in the same
// transaction.
func (m *ReservationManager) ReleaseStock(ctx context.Context, orderID string) error {
	if err := validation.Validate(orderID,
		validation.Required.Error("order_id is required"),
		appValidation.NotBlank,
	); err != nil {
		return appValidation.WrapValidationError(err)
	}

	orderID = strings.TrimSpace(orderID)

	var released []OrderItem

	err := m.txManager.WithTx(ctx, func(ctx context.Context) error {
		released = released[:0]

		reservations, err := m.reservationRepo.GetReservedByOrder(ctx, orderID)
		if err != nil {
			return err
		}

		for _, reservation := range reservations {
			flipped, err := m.reservationRepo.MarkReleased(ctx, reservation.ID)
			if err != nil {
				return err
			}
			if !flipped {
				// Another release got to this row first; its decrement is not ours.
				continue
			}

			if err := m.releaseLine(ctx, reservation); err != nil {
				return err
			}

			released = append(released, OrderItem{
				SkuCode:  reservation.SkuCode,
				Quantity: reservation.Quantity,
			})
		}

		if len(released) == 0 {
			return nil
		}

		event, err := outboxDomain.NewOutboxEvent(orderID, "inventory.released", eventbus.TopicInventoryReleased,
			map[string]any{
				"order_id": orderID,
				"items":    released,
			})
		if err != nil {
			return err
		}

		return m.outboxRepo.Create(ctx, event)
	})
	if err != nil {
		return err
	}

	if m.logger != nil {
		m.logger.Info("stock released",
			slog.String("order_id", orderID),
			slog.Int("released", len(released)),
		)
	}

	return nil
}

// releaseLine decrements the ledger's reserved quantity for one flipped row.
func (m *ReservationManager) releaseLine(ctx context.Context, reservation *domain.StockReservation) error {
	for attempt := 0; attempt < m.config.LockMaxAttempts; attempt++ {
		entry, err := m.ledgerRepo.GetBySku(ctx, reservation.SkuCode)
		if err != nil {
			return err
		}

		entry.ReservedQuantity -= reservation.Quantity
		if entry.ReservedQuantity < 0 {
			// Releasing more than is reserved means the ledger and the
			// reservation rows disagree; clamp and flag it instead of going
			// negative.
			if m.logger != nil {
				m.logger.Error("reserved quantity underflow",
					slog.String("order_id", reservation.OrderID),
					slog.String("sku_code", reservation.SkuCode),
				)
			}
			entry.ReservedQuantity = 0
		}

		err = m.ledgerRepo.UpdateQuantities(ctx, entry)
		if apperrors.Is(err, domain.ErrVersionConflict) {
			continue
		}
		return err
	}

	return apperrors.Wrap(apperrors.ErrTransient, "release retries exhausted for sku "+reservation.SkuCode)
}

// validateCreateLedgerEntryInput validates ledger provisioning input
func (m *ReservationManager) validateCreateLedgerEntryInput(input CreateLedgerEntryInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.SkuCode,
			validation.Required.Error("sku_code is required"),
			appValidation.SkuCode,
		),
		validation.Field(&input.Quantity,
			validation.Min(0).Error("quantity must not be negative"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// CreateLedgerEntry provisions the ledger row for a new SKU. Driven by the
// product-created consumer, so a duplicate SKU maps to a conflict the guard
// and HTTP layers can classify.
func (m *ReservationManager) CreateLedgerEntry(
	ctx context.Context,
	input CreateLedgerEntryInput,
) (*domain.StockLedgerEntry, error) {
	if err := m.validateCreateLedgerEntryInput(input); err != nil {
		return nil, err
	}

	entry := &domain.StockLedgerEntry{
		ID:               uuid.Must(uuid.NewV7()),
		SkuCode:          input.SkuCode,
		Quantity:         input.Quantity,
		ReservedQuantity: 0,
		Version:          1,
	}

	if err := m.ledgerRepo.Create(ctx, entry); err != nil {
		return nil, err
	}

	if m.logger != nil {
		m.logger.Info("ledger entry created",
			slog.String("sku_code", entry.SkuCode),
			slog.Int64("quantity", entry.Quantity),
		)
	}

	return entry, nil
}

// GetBySku retrieves the ledger entry for a SKU
func (m *ReservationManager) GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error) {
	return m.ledgerRepo.GetBySku(ctx, skuCode)
}
