package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/metrics"
	"github.com/allisson/fulfillment/internal/payment/domain"
)

// useCaseWithMetrics decorates the payment UseCase with metrics instrumentation.
type useCaseWithMetrics struct {
	next    UseCase
	metrics metrics.BusinessMetrics
}

// NewUseCaseWithMetrics wraps a payment UseCase with metrics recording.
func NewUseCaseWithMetrics(useCase UseCase, m metrics.BusinessMetrics) UseCase {
	return &useCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Create records metrics for payment creation operations.
func (u *useCaseWithMetrics) Create(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	start := time.Now()
	payment, err := u.next.Create(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "payment", "create", status)
	u.metrics.RecordDuration(ctx, "payment", "create", time.Since(start), status)

	return payment, err
}

// Verify records metrics for payment verification operations.
func (u *useCaseWithMetrics) Verify(
	ctx context.Context,
	paymentID uuid.UUID,
	payload []byte,
	signature string,
) (*domain.Payment, error) {
	start := time.Now()
	payment, err := u.next.Verify(ctx, paymentID, payload, signature)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "payment", "verify", status)
	u.metrics.RecordDuration(ctx, "payment", "verify", time.Since(start), status)

	return payment, err
}

// ConfirmFromWebhook records metrics for webhook confirmation operations.
func (u *useCaseWithMetrics) ConfirmFromWebhook(ctx context.Context, input WebhookInput) error {
	start := time.Now()
	err := u.next.ConfirmFromWebhook(ctx, input)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "payment", "confirm_webhook", status)
	u.metrics.RecordDuration(ctx, "payment", "confirm_webhook", time.Since(start), status)

	return err
}

// Refund records metrics for refund operations.
func (u *useCaseWithMetrics) Refund(ctx context.Context, orderID string) error {
	start := time.Now()
	err := u.next.Refund(ctx, orderID)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "payment", "refund", status)
	u.metrics.RecordDuration(ctx, "payment", "refund", time.Since(start), status)

	return err
}

// GetByID records metrics for payment lookups.
func (u *useCaseWithMetrics) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	start := time.Now()
	payment, err := u.next.GetByID(ctx, id)

	status := "success"
	if err != nil {
		status = "error"
	}

	u.metrics.RecordOperation(ctx, "payment", "get_by_id", status)
	u.metrics.RecordDuration(ctx, "payment", "get_by_id", time.Since(start), status)

	return payment, err
}
