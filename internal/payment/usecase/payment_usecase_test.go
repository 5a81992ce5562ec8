package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/fulfillment/internal/eventbus"
	"github.com/allisson/fulfillment/internal/payment/domain"
	"github.com/allisson/fulfillment/internal/payment/service"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	outboxDomain "github.com/allisson/fulfillment/internal/outbox/domain"
)

// MockTxManager is a mock implementation of database.TxManager
type MockTxManager struct {
	mock.Mock
}

func (m *MockTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, fn)
	if args.Get(0) != nil {
		return args.Error(0)
	}
	return fn(ctx)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

func (m *MockPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockOutboxEventRepository is a mock implementation of OutboxEventRepository
type MockOutboxEventRepository struct {
	mock.Mock
}

func (m *MockOutboxEventRepository) Create(ctx context.Context, event *outboxDomain.OutboxEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// MockProviderClient is a mock implementation of service.ProviderClient
type MockProviderClient struct {
	mock.Mock
}

func (m *MockProviderClient) Refund(ctx context.Context, providerRef string, amount int64, currency string) error {
	args := m.Called(ctx, providerRef, amount, currency)
	return args.Error(0)
}

func newTestUseCase(
	txManager *MockTxManager,
	paymentRepo *MockPaymentRepository,
	outboxRepo *MockOutboxEventRepository,
	provider *MockProviderClient,
) (*PaymentUseCase, *service.Signer) {
	signer := service.NewSigner("topsecret")
	uc := NewPaymentUseCase(
		Config{MaxAttempts: 3},
		txManager, paymentRepo, outboxRepo, signer, provider, nil,
	)
	return uc, signer
}

func TestPaymentUseCase_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		uc, _ := newTestUseCase(&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{})

		paymentRepo.On("Create", ctx, mock.AnythingOfType("*domain.Payment")).Return(nil)

		payment, err := uc.Create(ctx, CreatePaymentInput{OrderID: "order-1", Amount: 1500, Currency: "USD"})

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusCreated, payment.Status)
		assert.Equal(t, int64(1), payment.Version)
	})

	t.Run("Error_InvalidInput", func(t *testing.T) {
		uc, _ := newTestUseCase(
			&MockTxManager{}, &MockPaymentRepository{}, &MockOutboxEventRepository{}, &MockProviderClient{},
		)

		tests := []struct {
			name  string
			input CreatePaymentInput
		}{
			{"missing order id", CreatePaymentInput{Amount: 100, Currency: "USD"}},
			{"zero amount", CreatePaymentInput{OrderID: "order-1", Currency: "USD"}},
			{"bad currency", CreatePaymentInput{OrderID: "order-1", Amount: 100, Currency: "usd"}},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := uc.Create(ctx, tt.input)
				assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
			})
		}
	})
}

func TestPaymentUseCase_Verify(t *testing.T) {
	ctx := context.Background()
	payload := []byte(`{"payment":"data"}`)

	t.Run("Success", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		uc, signer := newTestUseCase(
			&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{},
		)

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Status: domain.PaymentStatusCreated, Version: 1,
		}

		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)
		paymentRepo.On("Update", ctx, payment).Return(nil)

		verified, err := uc.Verify(ctx, payment.ID, payload, signer.Sign(payload))

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusVerified, verified.Status)
	})

	t.Run("Error_InvalidSignature", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		uc, _ := newTestUseCase(
			&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{},
		)

		_, err := uc.Verify(ctx, uuid.Must(uuid.NewV7()), payload, "deadbeef")

		assert.True(t, apperrors.Is(err, domain.ErrInvalidSignature))
		paymentRepo.AssertNotCalled(t, "GetByID", mock.Anything, mock.Anything)
	})

	t.Run("Error_AlreadyVerified", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		uc, signer := newTestUseCase(
			&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{},
		)

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), Status: domain.PaymentStatusVerified, Version: 2,
		}
		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)

		_, err := uc.Verify(ctx, payment.ID, payload, signer.Sign(payload))

		assert.True(t, apperrors.Is(err, domain.ErrInvalidTransition))
	})
}

func TestPaymentUseCase_ConfirmFromWebhook(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_PaidWritesOutboxEvent", func(t *testing.T) {
		txManager := &MockTxManager{}
		paymentRepo := &MockPaymentRepository{}
		outboxRepo := &MockOutboxEventRepository{}
		uc, _ := newTestUseCase(txManager, paymentRepo, outboxRepo, &MockProviderClient{})

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Amount: 1500, Currency: "USD",
			Status: domain.PaymentStatusVerified, Version: 2,
		}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)
		paymentRepo.On("Update", ctx, payment).Return(nil)
		outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxEvent")).Return(nil)

		err := uc.ConfirmFromWebhook(ctx, WebhookInput{
			PaymentID: payment.ID, ProviderRef: "prov-1", Status: WebhookStatusPaid,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusPaid, payment.Status)

		event := outboxRepo.Calls[0].Arguments.Get(1).(*outboxDomain.OutboxEvent)
		assert.Equal(t, eventbus.TopicPaymentSuccess, event.Topic)
		assert.Equal(t, "payment.success", event.EventType)
		assert.Equal(t, "order-1", event.AggregateID)
	})

	t.Run("Success_DuplicateWebhookIsNoOp", func(t *testing.T) {
		txManager := &MockTxManager{}
		paymentRepo := &MockPaymentRepository{}
		outboxRepo := &MockOutboxEventRepository{}
		uc, _ := newTestUseCase(txManager, paymentRepo, outboxRepo, &MockProviderClient{})

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Status: domain.PaymentStatusPaid, Version: 3,
		}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)

		err := uc.ConfirmFromWebhook(ctx, WebhookInput{
			PaymentID: payment.ID, ProviderRef: "prov-1", Status: WebhookStatusPaid,
		})

		// No state change, no second payment-success event.
		require.NoError(t, err)
		paymentRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
		outboxRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("Error_PaidFromFailed", func(t *testing.T) {
		txManager := &MockTxManager{}
		paymentRepo := &MockPaymentRepository{}
		uc, _ := newTestUseCase(txManager, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{})

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), Status: domain.PaymentStatusFailed, Version: 2,
		}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)

		err := uc.ConfirmFromWebhook(ctx, WebhookInput{
			PaymentID: payment.ID, Status: WebhookStatusPaid,
		})

		assert.True(t, apperrors.Is(err, domain.ErrInvalidTransition))
	})

	t.Run("Success_Failed", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		uc, _ := newTestUseCase(&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, &MockProviderClient{})

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), Status: domain.PaymentStatusCreated, Version: 1,
		}

		paymentRepo.On("GetByID", ctx, payment.ID).Return(payment, nil)
		paymentRepo.On("Update", ctx, payment).Return(nil)

		err := uc.ConfirmFromWebhook(ctx, WebhookInput{
			PaymentID: payment.ID, Status: WebhookStatusFailed,
		})

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusFailed, payment.Status)
	})

	t.Run("Error_UnknownStatus", func(t *testing.T) {
		uc, _ := newTestUseCase(
			&MockTxManager{}, &MockPaymentRepository{}, &MockOutboxEventRepository{}, &MockProviderClient{},
		)

		err := uc.ConfirmFromWebhook(ctx, WebhookInput{
			PaymentID: uuid.Must(uuid.NewV7()), Status: "pending",
		})

		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestPaymentUseCase_Refund(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RefundsPaidPayment", func(t *testing.T) {
		txManager := &MockTxManager{}
		paymentRepo := &MockPaymentRepository{}
		outboxRepo := &MockOutboxEventRepository{}
		provider := &MockProviderClient{}
		uc, _ := newTestUseCase(txManager, paymentRepo, outboxRepo, provider)

		providerRef := "prov-1"
		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Amount: 1500, Currency: "USD",
			Status: domain.PaymentStatusPaid, ProviderRef: &providerRef, Version: 3,
		}

		txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
		paymentRepo.On("GetByOrderID", ctx, "order-1").Return(payment, nil)
		provider.On("Refund", ctx, "prov-1", int64(1500), "USD").Return(nil)
		paymentRepo.On("Update", ctx, payment).Return(nil)
		outboxRepo.On("Create", ctx, mock.AnythingOfType("*domain.OutboxEvent")).Return(nil)

		err := uc.Refund(ctx, "order-1")

		require.NoError(t, err)
		assert.Equal(t, domain.PaymentStatusRefunded, payment.Status)
	})

	t.Run("Success_AlreadyRefundedSkipsProvider", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		provider := &MockProviderClient{}
		uc, _ := newTestUseCase(&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, provider)

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Status: domain.PaymentStatusRefunded, Version: 4,
		}
		paymentRepo.On("GetByOrderID", ctx, "order-1").Return(payment, nil)

		err := uc.Refund(ctx, "order-1")

		// Exactly-once refund: the replay must not reach the provider again.
		require.NoError(t, err)
		provider.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_NoPaymentForOrderIsNoOp", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		provider := &MockProviderClient{}
		uc, _ := newTestUseCase(&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, provider)

		paymentRepo.On("GetByOrderID", ctx, "order-1").Return(nil, domain.ErrPaymentNotFound)

		err := uc.Refund(ctx, "order-1")

		// A checkout that failed before the payment row committed leaves a
		// saga with no payment; its refund side completes without a provider
		// call instead of re-driving forever.
		require.NoError(t, err)
		provider.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Success_NeverPaidIsNoOp", func(t *testing.T) {
		paymentRepo := &MockPaymentRepository{}
		provider := &MockProviderClient{}
		uc, _ := newTestUseCase(&MockTxManager{}, paymentRepo, &MockOutboxEventRepository{}, provider)

		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Status: domain.PaymentStatusVerified, Version: 2,
		}
		paymentRepo.On("GetByOrderID", ctx, "order-1").Return(payment, nil)

		err := uc.Refund(ctx, "order-1")

		require.NoError(t, err)
		provider.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("Error_ProviderFailureIsPropagated", func(t *testing.T) {
		txManager := &MockTxManager{}
		paymentRepo := &MockPaymentRepository{}
		provider := &MockProviderClient{}
		uc, _ := newTestUseCase(txManager, paymentRepo, &MockOutboxEventRepository{}, provider)

		providerRef := "prov-1"
		payment := &domain.Payment{
			ID: uuid.Must(uuid.NewV7()), OrderID: "order-1", Amount: 1500, Currency: "USD",
			Status: domain.PaymentStatusPaid, ProviderRef: &providerRef, Version: 3,
		}

		paymentRepo.On("GetByOrderID", ctx, "order-1").Return(payment, nil)
		provider.On("Refund", ctx, "prov-1", int64(1500), "USD").
			Return(apperrors.Wrap(apperrors.ErrTransient, "provider timeout"))

		err := uc.Refund(ctx, "order-1")

		// The payment stays PAID so the saga sweep retries the compensation.
		assert.True(t, apperrors.Is(err, apperrors.ErrTransient))
		assert.Equal(t, domain.PaymentStatusPaid, payment.Status)
	})
}
