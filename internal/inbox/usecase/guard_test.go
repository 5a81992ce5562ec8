package usecase

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/fulfillment/internal/inbox/domain"
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

// MockProcessedEventRepository is a mock implementation of ProcessedEventRepository
type MockProcessedEventRepository struct {
	mock.Mock
}

func (m *MockProcessedEventRepository) Create(ctx context.Context, eventID uuid.UUID, consumerGroup string) error {
	args := m.Called(ctx, eventID, consumerGroup)
	return args.Error(0)
}

func TestGuard_Process_AppliesEffectOnce(t *testing.T) {
	txManager := &MockTxManager{}
	repo := &MockProcessedEventRepository{}
	guard := NewGuard("inventory", txManager, repo, nil)

	ctx := context.Background()
	eventID := uuid.Must(uuid.NewV7())

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	repo.On("Create", ctx, eventID, "inventory").Return(nil)

	applied := 0
	err := guard.Process(ctx, eventID, func(ctx context.Context) error {
		applied++
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 1, applied)
}

func TestGuard_Process_ReplayIsNoOp(t *testing.T) {
	txManager := &MockTxManager{}
	repo := &MockProcessedEventRepository{}
	guard := NewGuard("inventory", txManager, repo, nil)

	ctx := context.Background()
	eventID := uuid.Must(uuid.NewV7())

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	repo.On("Create", ctx, eventID, "inventory").Return(domain.ErrAlreadyProcessed)

	applied := 0
	err := guard.Process(ctx, eventID, func(ctx context.Context) error {
		applied++
		return nil
	})

	// Replay succeeds so the offset is committed, but the effect is skipped.
	assert.NoError(t, err)
	assert.Equal(t, 0, applied)
}

func TestGuard_Process_EffectErrorRollsBackMarker(t *testing.T) {
	txManager := &MockTxManager{}
	repo := &MockProcessedEventRepository{}
	guard := NewGuard("payments", txManager, repo, nil)

	ctx := context.Background()
	eventID := uuid.Must(uuid.NewV7())

	txManager.On("WithTx", ctx, mock.AnythingOfType("func(context.Context) error")).Return(nil)
	repo.On("Create", ctx, eventID, "payments").Return(nil)

	err := guard.Process(ctx, eventID, func(ctx context.Context) error {
		return assert.AnError
	})

	// The error propagates so the transaction (marker included) rolls back and
	// the delivery is retried.
	assert.Equal(t, assert.AnError, err)
}

func TestGuard_Process_NilEventID(t *testing.T) {
	guard := NewGuard("inventory", &MockTxManager{}, &MockProcessedEventRepository{}, nil)

	err := guard.Process(context.Background(), uuid.Nil, func(ctx context.Context) error {
		t.Fatal("handler must not run without an event id")
		return nil
	})

	assert.Error(t, err)
}
