// Package usecase implements checkout, order materialization and
// cancellation.
package usecase

import (
	"context"
	"log/slog"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/order/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	inventoryUsecase "github.com/allisson/fulfillment/internal/inventory/usecase"
	outboxDomain "github.com/allisson/fulfillment/internal/outbox/domain"
	paymentDomain "github.com/allisson/fulfillment/internal/payment/domain"
	paymentUsecase "github.com/allisson/fulfillment/internal/payment/usecase"
	appValidation "github.com/allisson/fulfillment/internal/validation"
)

// CheckoutItem is one order line of a checkout request
type CheckoutItem struct {
	SkuCode  string `json:"sku_code"`
	Quantity int64  `json:"quantity"`
}

// CheckoutInput contains the input data for checkout
type CheckoutInput struct {
	Items    []CheckoutItem `json:"items"`
	Amount   int64          `json:"amount"`
	Currency string         `json:"currency"`
}

// CheckoutOutput is the result of a successful checkout
type CheckoutOutput struct {
	OrderID   string    `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// PaymentSuccessEvent is the payload of the payment-success topic.
type PaymentSuccessEvent struct {
	OrderID   string    `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
}

// UseCase defines the interface for order business logic operations
type UseCase interface {
	Checkout(ctx context.Context, input CheckoutInput) (*CheckoutOutput, error)
	HandlePaymentSuccess(ctx context.Context, event PaymentSuccessEvent) error
	Cancel(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
}

// OrderRepository interface defines order repository operations
type OrderRepository interface {
	Create(ctx context.Context, order *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error
}

// OutboxEventRepository interface defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// StockLocker reserves stock for an order, all lines or none, and returns a
// failed order's reservations to the pool.
type StockLocker interface {
	LockStock(ctx context.Context, orderID string, items []inventoryUsecase.OrderItem) error
	ReleaseStock(ctx context.Context, orderID string) error
}

// PaymentCreator opens a payment for a checkout.
type PaymentCreator interface {
	Create(ctx context.Context, input paymentUsecase.CreatePaymentInput) (*paymentDomain.Payment, error)
}

// SagaOpener records that a cancellation was requested.
type SagaOpener interface {
	Open(ctx context.Context, orderID string) error
}

// OrderUseCase coordinates the checkout flow and the order lifecycle. Stock
// is locked synchronously so the caller fails fast on insufficient
// inventory; everything after payment capture travels through events.
type OrderUseCase struct {
	txManager  database.TxManager
	orderRepo  OrderRepository
	outboxRepo OutboxEventRepository
	inventory  StockLocker
	payments   PaymentCreator
	sagas      SagaOpener
	logger     *slog.Logger
}

// NewOrderUseCase creates a new OrderUseCase
func NewOrderUseCase(
	txManager database.TxManager,
	orderRepo OrderRepository,
	outboxRepo OutboxEventRepository,
	inventory StockLocker,
	payments PaymentCreator,
	sagas SagaOpener,
	logger *slog.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		txManager:  txManager,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		inventory:  inventory,
		payments:   payments,
		sagas:      sagas,
		logger:     logger,
	}
}

// validateCheckoutInput validates checkout input
func (uc *OrderUseCase) validateCheckoutInput(input CheckoutInput) error {
	if len(input.Items) == 0 {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "items must not be empty")
	}

	for _, item := range input.Items {
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

	err := validation.ValidateStruct(&input,
		validation.Field(&input.Amount,
			validation.Required.Error("amount is required"),
			validation.Min(1).Error("amount must be at least 1"),
		),
		validation.Field(&input.Currency,
			validation.Required.Error("currency is required"),
			appValidation.Currency,
		),
	)
	return appValidation.WrapValidationError(err)
}

// Checkout locks stock for a fresh order id and opens a payment. The lock is
// synchronous and all-or-nothing, so a rejection here leaves nothing to
// compensate. The order row itself is not created yet; it materializes when
// the provider confirms capture.
func (uc *OrderUseCase) Checkout(ctx context.Context, input CheckoutInput) (*CheckoutOutput, error) {
	if err := uc.validateCheckoutInput(input); err != nil {
		return nil, err
	}

	orderID := uuid.Must(uuid.NewV7()).String()

	items := make([]inventoryUsecase.OrderItem, 0, len(input.Items))
	for _, item := range input.Items {
		items = append(items, inventoryUsecase.OrderItem{
			SkuCode:  item.SkuCode,
			Quantity: item.Quantity,
		})
	}

	if err := uc.inventory.LockStock(ctx, orderID, items); err != nil {
		return nil, err
	}

	var payment *paymentDomain.Payment

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		var err error
		payment, err = uc.payments.Create(ctx, paymentUsecase.CreatePaymentInput{
			OrderID:  orderID,
			Amount:   input.Amount,
			Currency: input.Currency,
		})
		if err != nil {
			return err
		}

		event, err := outboxDomain.NewOutboxEvent(orderID, "order.created", eventbus.TopicOrderCreated,
			map[string]any{
				"order_id":   orderID,
				"payment_id": payment.ID,
				"amount":     input.Amount,
				"currency":   input.Currency,
				"items":      input.Items,
			})
		if err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, event)
	})
	if err != nil {
		uc.releaseFailedCheckout(ctx, orderID)
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("checkout accepted",
			slog.String("order_id", orderID),
			slog.String("payment_id", payment.ID.String()),
		)
	}

	return &CheckoutOutput{OrderID: orderID, PaymentID: payment.ID}, nil
}

// releaseFailedCheckout undoes the stock lock of a checkout that could not
// complete after the reservations committed. The release is best effort: when
// it also fails, a saga is opened so the reconciliation sweep re-drives the
// release instead of the reservations staying held with nothing pointing at
// them.
func (uc *OrderUseCase) releaseFailedCheckout(ctx context.Context, orderID string) {
	releaseErr := uc.inventory.ReleaseStock(ctx, orderID)
	if releaseErr == nil {
		return
	}

	if openErr := uc.sagas.Open(ctx, orderID); openErr != nil {
		if uc.logger != nil {
			uc.logger.Error("CRITICAL: stock held for failed checkout and neither release nor saga open succeeded, manual intervention required",
				slog.String("order_id", orderID),
				slog.Any("release_error", releaseErr),
				slog.Any("saga_error", openErr),
			)
		}
		return
	}

	if uc.logger != nil {
		uc.logger.Warn("release after failed checkout did not complete, saga opened",
			slog.String("order_id", orderID),
			slog.Any("error", releaseErr),
		)
	}
}

// HandlePaymentSuccess materializes the order after the provider confirmed
// capture and records the order-placed event in the same transaction. An
// already materialized order is a no-op. Any other failure here is the one
// path with no automated compensation: money was captured but the order
// could not be recorded, so it is logged at the highest severity for manual
// intervention and returned so the delivery is retried.
func (uc *OrderUseCase) HandlePaymentSuccess(ctx context.Context, event PaymentSuccessEvent) error {
	if event.OrderID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "order_id is required")
	}

	order := &domain.Order{
		ID:        event.OrderID,
		PaymentID: event.PaymentID,
		Amount:    event.Amount,
		Currency:  event.Currency,
		Status:    domain.OrderStatusPlaced,
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.Create(ctx, order); err != nil {
			return err
		}

		outboxEvent, err := outboxDomain.NewOutboxEvent(order.ID, "order.placed", eventbus.TopicOrderPlaced,
			map[string]any{
				"order_id":   order.ID,
				"payment_id": order.PaymentID,
				"amount":     order.Amount,
				"currency":   order.Currency,
			})
		if err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, outboxEvent)
	})

	if apperrors.Is(err, domain.ErrOrderAlreadyExists) {
		return nil
	}
	if err != nil {
		if uc.logger != nil {
			uc.logger.Error("CRITICAL: payment captured but order could not be recorded, manual intervention required",
				slog.String("order_id", event.OrderID),
				slog.String("payment_id", event.PaymentID.String()),
				slog.Any("error", err),
			)
		}
		return err
	}

	return nil
}

// Cancel requests cancellation of an order: the order-cancel event and the
// saga row are written in one transaction, so a recorded cancellation always
// has a saga driving its compensations. The order row is flipped to
// CANCELLED when it already exists; an order cancelled before
// materialization has no row yet and that is fine.
func (uc *OrderUseCase) Cancel(ctx context.Context, orderID string) error {
	if orderID == "" {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "order_id is required")
	}

	err := uc.txManager.WithTx(ctx, func(ctx context.Context) error {
		if err := uc.orderRepo.UpdateStatus(ctx, orderID, domain.OrderStatusCancelled); err != nil {
			if !apperrors.Is(err, domain.ErrOrderNotFound) {
				return err
			}
		}

		if err := uc.sagas.Open(ctx, orderID); err != nil {
			return err
		}

		event, err := outboxDomain.NewOutboxEvent(orderID, "order.cancel", eventbus.TopicOrderCancel,
			map[string]any{
				"order_id": orderID,
			})
		if err != nil {
			return err
		}

		return uc.outboxRepo.Create(ctx, event)
	})
	if err != nil {
		return err
	}

	if uc.logger != nil {
		uc.logger.Info("cancellation requested", slog.String("order_id", orderID))
	}

	return nil
}

// GetByID retrieves an order by ID
func (uc *OrderUseCase) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return uc.orderRepo.GetByID(ctx, id)
}
