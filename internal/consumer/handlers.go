package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/allisson/fulfillment/internal/eventbus"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	inventoryDomain "github.com/allisson/fulfillment/internal/inventory/domain"
	inventoryUsecase "github.com/allisson/fulfillment/internal/inventory/usecase"
	orderUsecase "github.com/allisson/fulfillment/internal/order/usecase"
	sagaUsecase "github.com/allisson/fulfillment/internal/saga/usecase"
)

// PaymentSuccessHandler materializes an order after payment capture.
func PaymentSuccessHandler(orders orderUsecase.UseCase) Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		var event orderUsecase.PaymentSuccessEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "malformed payment-success payload")
		}
		return orders.HandlePaymentSuccess(ctx, event)
	}
}

// OrderCancelHandler drives the compensations of a cancelled order. The saga
// row was created when the cancellation was recorded, so a missing saga here
// means the event outran replication of its own transaction; returning the
// error lets the redelivery find it.
func OrderCancelHandler(sagas sagaUsecase.UseCase) Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		var event struct {
			OrderID string `json:"order_id"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "malformed order-cancel payload")
		}
		if event.OrderID == "" {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "order_id is required")
		}
		return sagas.Compensate(ctx, event.OrderID)
	}
}

// ProductCreatedHandler provisions a stock ledger entry for a new SKU. An
// entry that already exists is a replay of the catalog event and is skipped.
func ProductCreatedHandler(inventory inventoryUsecase.UseCase) Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		var event struct {
			SkuCode  string `json:"sku_code"`
			Quantity int64  `json:"quantity"`
		}
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "malformed product-created payload")
		}

		_, err := inventory.CreateLedgerEntry(ctx, inventoryUsecase.CreateLedgerEntryInput{
			SkuCode:  event.SkuCode,
			Quantity: event.Quantity,
		})
		if apperrors.Is(err, inventoryDomain.ErrSkuAlreadyExists) {
			return nil
		}
		return err
	}
}

// DownstreamEventHandler acknowledges events whose projections live in other
// services (search indexing, rating aggregates, analytics). The payload is
// validated and the consumption logged; the projection itself is out of
// process.
func DownstreamEventHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		if !json.Valid(msg.Value) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "malformed event payload")
		}

		if logger != nil {
			logger.Info("downstream event consumed",
				slog.String("topic", msg.Topic),
				slog.String("key", msg.Key),
			)
		}
		return nil
	}
}

// NotificationHandler delivers a notification event. The actual gateway is
// out of process; here the notification is logged with its priority class so
// the per-class pools are observable.
func NotificationHandler(logger *slog.Logger) Handler {
	return func(ctx context.Context, msg eventbus.Message) error {
		if !json.Valid(msg.Value) {
			return apperrors.Wrap(apperrors.ErrInvalidInput, "malformed notification payload")
		}

		if logger != nil {
			logger.Info("notification dispatched",
				slog.String("topic", msg.Topic),
				slog.String("key", msg.Key),
			)
		}
		return nil
	}
}
