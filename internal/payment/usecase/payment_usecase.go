// Package usecase implements the payment business logic: creation,
// verification, webhook confirmation and refunds.
package usecase

import (
	"context"
	"log/slog"
	"strings"

	validation "github.com/jellydator/validation"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/payment/domain"
	"github.com/allisson/fulfillment/internal/payment/service"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	outboxDomain "github.com/allisson/fulfillment/internal/outbox/domain"
	appValidation "github.com/allisson/fulfillment/internal/validation"
)

// Config holds payment use case configuration
type Config struct {
	// MaxAttempts bounds the read-modify-write retries when the payment
	// version moves under us.
	MaxAttempts int
}

// CreatePaymentInput contains the input data for payment creation
type CreatePaymentInput struct {
	OrderID  string `json:"order_id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// WebhookInput is the provider webhook payload after signature verification.
type WebhookInput struct {
	PaymentID   uuid.UUID `json:"payment_id"`
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
}

// Webhook status values sent by the provider.
const (
	WebhookStatusPaid   = "paid"
	WebhookStatusFailed = "failed"
)

// UseCase defines the interface for payment business logic operations
type UseCase interface {
	Create(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error)
	Verify(ctx context.Context, paymentID uuid.UUID, payload []byte, signature string) (*domain.Payment, error)
	ConfirmFromWebhook(ctx context.Context, input WebhookInput) error
	Refund(ctx context.Context, orderID string) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
}

// PaymentRepository interface defines payment repository operations
type PaymentRepository interface {
	Create(ctx context.Context, payment *domain.Payment) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error)
	Update(ctx context.Context, payment *domain.Payment) error
}

// OutboxEventRepository interface defines outbox event repository operations
type OutboxEventRepository interface {
	Create(ctx context.Context, event *outboxDomain.OutboxEvent) error
}

// PaymentUseCase drives the payment state machine. The verification callback
// and the provider webhook can race on the same row; every transition is
// applied through a read-modify-write cycle guarded by the version CAS, so
// the losing writer re-reads and re-applies against fresh state.
type PaymentUseCase struct {
	config      Config
	txManager   database.TxManager
	paymentRepo PaymentRepository
	outboxRepo  OutboxEventRepository
	signer      *service.Signer
	provider    service.ProviderClient
	logger      *slog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase
func NewPaymentUseCase(
	config Config,
	txManager database.TxManager,
	paymentRepo PaymentRepository,
	outboxRepo OutboxEventRepository,
	signer *service.Signer,
	provider service.ProviderClient,
	logger *slog.Logger,
) *PaymentUseCase {
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}

	return &PaymentUseCase{
		config:      config,
		txManager:   txManager,
		paymentRepo: paymentRepo,
		outboxRepo:  outboxRepo,
		signer:      signer,
		provider:    provider,
		logger:      logger,
	}
}

// validateCreatePaymentInput validates payment creation input
func (uc *PaymentUseCase) validateCreatePaymentInput(input CreatePaymentInput) error {
	err := validation.ValidateStruct(&input,
		validation.Field(&input.OrderID,
			validation.Required.Error("order_id is required"),
			appValidation.NotBlank,
		),
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

// Create opens a payment in CREATED for a checkout.
func (uc *PaymentUseCase) Create(ctx context.Context, input CreatePaymentInput) (*domain.Payment, error) {
	if err := uc.validateCreatePaymentInput(input); err != nil {
		return nil, err
	}

	payment := &domain.Payment{
		ID:       uuid.Must(uuid.NewV7()),
		OrderID:  strings.TrimSpace(input.OrderID),
		Amount:   input.Amount,
		Currency: input.Currency,
		Status:   domain.PaymentStatusCreated,
		Version:  1,
	}

	if err := uc.paymentRepo.Create(ctx, payment); err != nil {
		return nil, err
	}

	if uc.logger != nil {
		uc.logger.Info("payment created",
			slog.String("payment_id", payment.ID.String()),
			slog.String("order_id", payment.OrderID),
			slog.Int64("amount", payment.Amount),
		)
	}

	return payment, nil
}

// Verify applies the client-submitted signature check and moves the payment
// to VERIFIED.
func (uc *PaymentUseCase) Verify(
	ctx context.Context,
	paymentID uuid.UUID,
	payload []byte,
	signature string,
) (*domain.Payment, error) {
	if !uc.signer.Verify(payload, signature) {
		return nil, domain.ErrInvalidSignature
	}

	var verified *domain.Payment

	err := uc.withVersionRetry(ctx, func() error {
		payment, err := uc.paymentRepo.GetByID(ctx, paymentID)
		if err != nil {
			return err
		}

		if err := payment.Verify(); err != nil {
			return err
		}

		if err := uc.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}

		verified = payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	return verified, nil
}

// ConfirmFromWebhook applies the provider's asynchronous outcome. A capture
// writes the payment-success outbox event in the same transaction as the
// status change; a duplicate capture changes nothing and writes nothing, so
// webhook redelivery cannot double-publish.
func (uc *PaymentUseCase) ConfirmFromWebhook(ctx context.Context, input WebhookInput) error {
	if input.PaymentID == uuid.Nil {
		return apperrors.Wrap(apperrors.ErrInvalidInput, "payment_id is required")
	}

	switch input.Status {
	case WebhookStatusPaid:
		return uc.confirmPaid(ctx, input)
	case WebhookStatusFailed:
		return uc.confirmFailed(ctx, input)
	default:
		return apperrors.Wrap(apperrors.ErrInvalidInput, "unknown webhook status "+input.Status)
	}
}

func (uc *PaymentUseCase) confirmPaid(ctx context.Context, input WebhookInput) error {
	return uc.withVersionRetry(ctx, func() error {
		return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
			payment, err := uc.paymentRepo.GetByID(ctx, input.PaymentID)
			if err != nil {
				return err
			}

			changed, err := payment.MarkPaid(input.ProviderRef)
			if err != nil {
				return err
			}
			if !changed {
				if uc.logger != nil {
					uc.logger.Info("duplicate payment webhook ignored",
						slog.String("payment_id", payment.ID.String()),
					)
				}
				return nil
			}

			if err := uc.paymentRepo.Update(ctx, payment); err != nil {
				return err
			}

			event, err := outboxDomain.NewOutboxEvent(payment.OrderID, "payment.success", eventbus.TopicPaymentSuccess,
				map[string]any{
					"order_id":   payment.OrderID,
					"payment_id": payment.ID,
					"amount":     payment.Amount,
					"currency":   payment.Currency,
				})
			if err != nil {
				return err
			}

			return uc.outboxRepo.Create(ctx, event)
		})
	})
}

func (uc *PaymentUseCase) confirmFailed(ctx context.Context, input WebhookInput) error {
	return uc.withVersionRetry(ctx, func() error {
		payment, err := uc.paymentRepo.GetByID(ctx, input.PaymentID)
		if err != nil {
			return err
		}

		changed, err := payment.MarkFailed()
		if err != nil {
			return err
		}
		if !changed {
			return nil
		}

		if err := uc.paymentRepo.Update(ctx, payment); err != nil {
			return err
		}

		if uc.logger != nil {
			uc.logger.Warn("payment failed",
				slog.String("payment_id", payment.ID.String()),
				slog.String("order_id", payment.OrderID),
			)
		}

		return nil
	})
}

// Refund compensates a cancelled order's payment. Captured money is refunded
// through the provider and the payment moves to REFUNDED; a payment that
// never reached PAID needs no provider call and the operation reports
// success immediately. Replays are no-ops, so the saga can re-drive this any
// number of times without issuing a second refund call.
func (uc *PaymentUseCase) Refund(ctx context.Context, orderID string) error {
	return uc.withVersionRetry(ctx, func() error {
		payment, err := uc.paymentRepo.GetByOrderID(ctx, orderID)
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// No payment was ever opened for this order (a checkout that
			// failed before the payment row committed); nothing to return.
			return nil
		}
		if err != nil {
			return err
		}

		switch payment.Status {
		case domain.PaymentStatusRefunded:
			return nil
		case domain.PaymentStatusPaid:
			// Proceed with the provider call below.
		default:
			// Never captured, nothing to return.
			return nil
		}

		providerRef := ""
		if payment.ProviderRef != nil {
			providerRef = *payment.ProviderRef
		}

		if err := uc.provider.Refund(ctx, providerRef, payment.Amount, payment.Currency); err != nil {
			return err
		}

		return uc.txManager.WithTx(ctx, func(ctx context.Context) error {
			changed, err := payment.MarkRefunded()
			if err != nil {
				return err
			}
			if !changed {
				return nil
			}

			if err := uc.paymentRepo.Update(ctx, payment); err != nil {
				return err
			}

			event, err := outboxDomain.NewOutboxEvent(payment.OrderID, "payment.refunded",
				eventbus.TopicNotificationTransactional,
				map[string]any{
					"order_id":   payment.OrderID,
					"payment_id": payment.ID,
					"amount":     payment.Amount,
					"currency":   payment.Currency,
				})
			if err != nil {
				return err
			}

			return uc.outboxRepo.Create(ctx, event)
		})
	})
}

// GetByID retrieves a payment by ID
func (uc *PaymentUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	return uc.paymentRepo.GetByID(ctx, id)
}

// withVersionRetry re-runs fn while it fails with a payment version conflict,
// up to the configured attempt bound.
func (uc *PaymentUseCase) withVersionRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < uc.config.MaxAttempts; attempt++ {
		err = fn()
		if !apperrors.Is(err, domain.ErrVersionConflict) {
			return err
		}
	}
	return apperrors.Wrap(apperrors.ErrTransient, "payment update retries exhausted")
}
