package usecase

import (
	"context"
	"time"

	"github.com/allisson/fulfillment/internal/metrics"
	"github.com/allisson/fulfillment/internal/order/domain"
)

// useCaseWithMetrics decorates the order UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps an order UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Checkout records metrics for checkout operations.
func (u *useCaseWithMetrics) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutOutput, error) {
	start := time.Now()
	output, err := u.next.Checkout(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "order", "checkout", status)
	u.metrics.RecordDuration(ctx, "order", "checkout", time.Since(start), status)

	return output, err
}

// HandlePaymentSuccess records metrics for order materialization.
func (u *useCaseWithMetrics) HandlePaymentSuccess(ctx context.Context, event PaymentSuccessEvent) error {
	start := time.Now()
	err := u.next.HandlePaymentSuccess(ctx, event)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "order", "handle_payment_success", status)
	u.metrics.RecordDuration(ctx, "order", "handle_payment_success", time.Since(start), status)

	return err
}

// Cancel records metrics for cancellation requests.
func (u *useCaseWithMetrics) Cancel(ctx context.Context, orderID string) error {
	start := time.Now()
	err := u.next.Cancel(ctx, orderID)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "order", "cancel", status)
	u.metrics.RecordDuration(ctx, "order", "cancel", time.Since(start), status)

	return err
}

// GetByID records metrics for order lookups.
func (u *useCaseWithMetrics) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	start := time.Now()
	order, err := u.next.GetByID(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "order", "get_by_id", status)
	u.metrics.RecordDuration(ctx, "order", "get_by_id", time.Since(start), status)

	return order, err
}
