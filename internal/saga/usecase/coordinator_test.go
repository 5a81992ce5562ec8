package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/fulfillment/internal/saga/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// MockSagaRepository is a mock implementation of SagaRepository
type MockSagaRepository struct {
	mock.Mock
}

func (m *MockSagaRepository) Create(ctx context.Context, saga *domain.SagaState) error {
	args := m.Called(ctx, saga)
	return args.Error(0)
}

func (m *MockSagaRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error) {
	args := m.Called(ctx, orderID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SagaState), args.Error(1)
}

func (m *MockSagaRepository) SetInventoryReleased(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockSagaRepository) SetPaymentRefunded(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockSagaRepository) ListStale(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.SagaState, error) {
	args := m.Called(ctx, cutoff, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.SagaState), args.Error(1)
}

// MockInventoryReleaser is a mock implementation of InventoryReleaser
type MockInventoryReleaser struct {
	mock.Mock
}

func (m *MockInventoryReleaser) ReleaseStock(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

// MockPaymentRefunder is a mock implementation of PaymentRefunder
type MockPaymentRefunder struct {
	mock.Mock
}

func (m *MockPaymentRefunder) Refund(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func TestCoordinator_Open(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		repo := &MockSagaRepository{}
		coordinator := NewCoordinator(repo, &MockInventoryReleaser{}, &MockPaymentRefunder{}, nil)

		repo.On("Create", ctx, mock.AnythingOfType("*domain.SagaState")).Return(nil)

		require.NoError(t, coordinator.Open(ctx, "order-1"))

		saga := repo.Calls[0].Arguments.Get(1).(*domain.SagaState)
		assert.Equal(t, "order-1", saga.OrderID)
		assert.False(t, saga.InventoryReleased)
		assert.False(t, saga.PaymentRefunded)
	})

	t.Run("Success_DuplicateOpenIsNoOp", func(t *testing.T) {
		repo := &MockSagaRepository{}
		coordinator := NewCoordinator(repo, &MockInventoryReleaser{}, &MockPaymentRefunder{}, nil)

		repo.On("Create", ctx, mock.AnythingOfType("*domain.SagaState")).
			Return(domain.ErrSagaAlreadyExists)

		assert.NoError(t, coordinator.Open(ctx, "order-1"))
	})

	t.Run("Error_EmptyOrderID", func(t *testing.T) {
		coordinator := NewCoordinator(
			&MockSagaRepository{}, &MockInventoryReleaser{}, &MockPaymentRefunder{}, nil,
		)

		err := coordinator.Open(ctx, "")
		assert.True(t, apperrors.Is(err, apperrors.ErrInvalidInput))
	})
}

func TestCoordinator_Compensate(t *testing.T) {
	ctx := context.Background()

	t.Run("Success_RunsBothCompensations", func(t *testing.T) {
		repo := &MockSagaRepository{}
		inventory := &MockInventoryReleaser{}
		payments := &MockPaymentRefunder{}
		coordinator := NewCoordinator(repo, inventory, payments, nil)

		repo.On("GetByOrderID", ctx, "order-1").Return(&domain.SagaState{OrderID: "order-1"}, nil)
		inventory.On("ReleaseStock", mock.Anything, "order-1").Return(nil)
		payments.On("Refund", mock.Anything, "order-1").Return(nil)
		repo.On("SetInventoryReleased", mock.Anything, "order-1").Return(nil)
		repo.On("SetPaymentRefunded", mock.Anything, "order-1").Return(nil)

		require.NoError(t, coordinator.Compensate(ctx, "order-1"))

		inventory.AssertExpectations(t)
		payments.AssertExpectations(t)
		repo.AssertExpectations(t)
	})

	t.Run("Success_CompletedSagaSkipsEverything", func(t *testing.T) {
		repo := &MockSagaRepository{}
		inventory := &MockInventoryReleaser{}
		payments := &MockPaymentRefunder{}
		coordinator := NewCoordinator(repo, inventory, payments, nil)

		repo.On("GetByOrderID", ctx, "order-1").Return(&domain.SagaState{
			OrderID: "order-1", InventoryReleased: true, PaymentRefunded: true,
		}, nil)

		require.NoError(t, coordinator.Compensate(ctx, "order-1"))

		inventory.AssertNotCalled(t, "ReleaseStock", mock.Anything, mock.Anything)
		payments.AssertNotCalled(t, "Refund", mock.Anything, mock.Anything)
	})

	t.Run("Success_DoneFlagIsNotReRun", func(t *testing.T) {
		repo := &MockSagaRepository{}
		inventory := &MockInventoryReleaser{}
		payments := &MockPaymentRefunder{}
		coordinator := NewCoordinator(repo, inventory, payments, nil)

		repo.On("GetByOrderID", ctx, "order-1").Return(&domain.SagaState{
			OrderID: "order-1", InventoryReleased: true,
		}, nil)
		payments.On("Refund", mock.Anything, "order-1").Return(nil)
		repo.On("SetPaymentRefunded", mock.Anything, "order-1").Return(nil)

		require.NoError(t, coordinator.Compensate(ctx, "order-1"))

		inventory.AssertNotCalled(t, "ReleaseStock", mock.Anything, mock.Anything)
	})

	t.Run("Error_OneFailureStillCompletesTheOther", func(t *testing.T) {
		repo := &MockSagaRepository{}
		inventory := &MockInventoryReleaser{}
		payments := &MockPaymentRefunder{}
		coordinator := NewCoordinator(repo, inventory, payments, nil)

		repo.On("GetByOrderID", ctx, "order-1").Return(&domain.SagaState{OrderID: "order-1"}, nil)
		inventory.On("ReleaseStock", mock.Anything, "order-1").Return(nil)
		repo.On("SetInventoryReleased", mock.Anything, "order-1").Return(nil)
		payments.On("Refund", mock.Anything, "order-1").
			Return(apperrors.Wrap(apperrors.ErrTransient, "provider down"))

		err := coordinator.Compensate(ctx, "order-1")

		// Inventory completed and its flag is set; the payment side stays open
		// for the sweep.
		require.Error(t, err)
		repo.AssertCalled(t, "SetInventoryReleased", mock.Anything, "order-1")
		repo.AssertNotCalled(t, "SetPaymentRefunded", mock.Anything, mock.Anything)
	})
}

// fakeSagaStore drives the completion property test with real flag state.
type fakeSagaStore struct {
	mu    sync.Mutex
	sagas map[string]*domain.SagaState
}

func newFakeSagaStore() *fakeSagaStore {
	return &fakeSagaStore{sagas: make(map[string]*domain.SagaState)}
}

func (f *fakeSagaStore) Create(ctx context.Context, saga *domain.SagaState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.sagas[saga.OrderID]; ok {
		return domain.ErrSagaAlreadyExists
	}
	copied := *saga
	copied.CreatedAt = time.Now().Add(-time.Hour)
	f.sagas[saga.OrderID] = &copied
	return nil
}

func (f *fakeSagaStore) GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	saga, ok := f.sagas[orderID]
	if !ok {
		return nil, domain.ErrSagaNotFound
	}
	copied := *saga
	return &copied, nil
}

func (f *fakeSagaStore) SetInventoryReleased(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saga, ok := f.sagas[orderID]
	if !ok {
		return domain.ErrSagaNotFound
	}
	saga.InventoryReleased = true
	return nil
}

func (f *fakeSagaStore) SetPaymentRefunded(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	saga, ok := f.sagas[orderID]
	if !ok {
		return domain.ErrSagaNotFound
	}
	saga.PaymentRefunded = true
	return nil
}

func (f *fakeSagaStore) ListStale(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.SagaState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.SagaState
	for _, saga := range f.sagas {
		if !saga.Completed() && saga.CreatedAt.Before(cutoff) {
			copied := *saga
			out = append(out, &copied)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// flakyRefunder fails a fixed number of times before succeeding.
type flakyRefunder struct {
	mu        sync.Mutex
	failures  int
	succeeded bool
}

func (f *flakyRefunder) Refund(ctx context.Context, orderID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return apperrors.Wrap(apperrors.ErrTransient, "provider down")
	}
	f.succeeded = true
	return nil
}

type noopReleaser struct{}

func (noopReleaser) ReleaseStock(ctx context.Context, orderID string) error { return nil }

// Sweeps run to exhaustion must complete the saga no matter how often the
// refund fails first or how many duplicate cancel requests arrive.
func TestSweeper_DrivesSagaToCompletion(t *testing.T) {
	store := newFakeSagaStore()
	refunder := &flakyRefunder{failures: 3}
	coordinator := NewCoordinator(store, noopReleaser{}, refunder, nil)
	sweeper := NewSweeper(
		Config{SweepInterval: time.Minute, SweepCutoff: time.Minute, SweepBatchSize: 10},
		store, coordinator, nil,
	)

	ctx := context.Background()

	// Duplicate cancel requests are harmless.
	require.NoError(t, coordinator.Open(ctx, "order-1"))
	require.NoError(t, coordinator.Open(ctx, "order-1"))

	// The first drive fails on the payment side.
	require.Error(t, coordinator.Compensate(ctx, "order-1"))

	saga, err := store.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaStatusPartiallyCompensated, saga.Status())

	// Sweep until nothing is stale.
	for i := 0; i < 10; i++ {
		require.NoError(t, sweeper.SweepOnce(ctx))
	}

	saga, err = store.GetByOrderID(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SagaStatusCompleted, saga.Status())
	assert.True(t, refunder.succeeded)
}
