package usecase

import (
	"context"
	"time"

	"github.com/allisson/fulfillment/internal/inventory/domain"
	"github.com/allisson/fulfillment/internal/metrics"
)

// useCaseWithMetrics decorates the inventory UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps an inventory UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// LockStock records metrics for stock lock operations.
func (u *useCaseWithMetrics) LockStock(ctx context.Context, orderID string, items []OrderItem) error {
	start := time.Now()
	err := u.next.LockStock(ctx, orderID, items)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "inventory", "lock_stock", status)
	u.metrics.RecordDuration(ctx, "inventory", "lock_stock", time.Since(start), status)

	return err
}

// ReleaseStock records metrics for stock release operations.
func (u *useCaseWithMetrics) ReleaseStock(ctx context.Context, orderID string) error {
	start := time.Now()
	err := u.next.ReleaseStock(ctx, orderID)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "inventory", "release_stock", status)
	u.metrics.RecordDuration(ctx, "inventory", "release_stock", time.Since(start), status)

	return err
}

// CreateLedgerEntry records metrics for ledger provisioning operations.
func (u *useCaseWithMetrics) CreateLedgerEntry(
	ctx context.Context,
	input CreateLedgerEntryInput,
) (*domain.StockLedgerEntry, error) {
	start := time.Now()
	entry, err := u.next.CreateLedgerEntry(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "inventory", "create_ledger_entry", status)
	u.metrics.RecordDuration(ctx, "inventory", "create_ledger_entry", time.Since(start), status)

	return entry, err
}

// GetBySku records metrics for ledger lookups.
func (u *useCaseWithMetrics) GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error) {
	start := time.Now()
	entry, err := u.next.GetBySku(ctx, skuCode)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "inventory", "get_by_sku", status)
	u.metrics.RecordDuration(ctx, "inventory", "get_by_sku", time.Since(start), status)

	return entry, err
}
