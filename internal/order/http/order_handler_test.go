package http

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/allisson/fulfillment/internal/order/domain"
	"github.com/allisson/fulfillment/internal/order/usecase"

	apperrors "github.com/allisson/fulfillment/internal/errors"
	inventoryDomain "github.com/allisson/fulfillment/internal/inventory/domain"
)

// MockOrderUseCase is a mock implementation of usecase.UseCase
type MockOrderUseCase struct {
	mock.Mock
}

func (m *MockOrderUseCase) Checkout(ctx context.Context, input usecase.CheckoutInput) (*usecase.CheckoutOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*usecase.CheckoutOutput), args.Error(1)
}

func (m *MockOrderUseCase) HandlePaymentSuccess(ctx context.Context, event usecase.PaymentSuccessEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *MockOrderUseCase) Cancel(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockOrderUseCase) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func setupRouter(useCase usecase.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewOrderHandler(useCase, nil)

	router := gin.New()
	router.POST("/v1/checkout", handler.CheckoutHandler)
	router.POST("/v1/orders/:id/cancel", handler.CancelHandler)
	router.GET("/v1/orders/:id", handler.GetHandler)
	return router
}

func TestOrderHandler_CheckoutHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("Checkout", mock.Anything, mock.AnythingOfType("usecase.CheckoutInput")).
			Return(&usecase.CheckoutOutput{
				OrderID:   "order-1",
				PaymentID: uuid.Must(uuid.NewV7()),
			}, nil)

		body := `{"items":[{"sku_code":"SKU-1","quantity":2}],"amount":1500,"currency":"USD"}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Contains(t, w.Body.String(), `"order_id":"order-1"`)
	})

	t.Run("Conflict_InsufficientStock", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("Checkout", mock.Anything, mock.AnythingOfType("usecase.CheckoutInput")).
			Return(nil, apperrors.Wrap(inventoryDomain.ErrInsufficientStock, "SKU-1"))

		body := `{"items":[{"sku_code":"SKU-1","quantity":99}],"amount":1500,"currency":"USD"}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("ServiceUnavailable_LockContention", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("Checkout", mock.Anything, mock.AnythingOfType("usecase.CheckoutInput")).
			Return(nil, apperrors.Wrap(apperrors.ErrTransient, "lock retries exhausted for sku SKU-1"))

		body := `{"items":[{"sku_code":"SKU-1","quantity":1}],"amount":1500,"currency":"USD"}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	})

	t.Run("UnprocessableEntity_MissingItems", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		body := `{"items":[],"amount":1500,"currency":"USD"}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("BadRequest_MalformedJSON", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/checkout", bytes.NewReader([]byte(`{`)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestOrderHandler_CancelHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("Cancel", mock.Anything, "order-1").Return(nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/orders/order-1/cancel", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"cancelled":true`)
	})

	t.Run("Success_RepeatedCancel", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("Cancel", mock.Anything, "order-1").Return(nil).Twice()

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/v1/orders/order-1/cancel", nil)
			router.ServeHTTP(w, req)
			assert.Equal(t, http.StatusOK, w.Code)
		}
	})
}

func TestOrderHandler_GetHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("GetByID", mock.Anything, "order-1").Return(&domain.Order{
			ID:     "order-1",
			Status: domain.OrderStatusPlaced,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/orders/order-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"status":"PLACED"`)
	})

	t.Run("NotFound", func(t *testing.T) {
		useCase := &MockOrderUseCase{}
		router := setupRouter(useCase)

		useCase.On("GetByID", mock.Anything, "missing").Return(nil, domain.ErrOrderNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/orders/missing", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
