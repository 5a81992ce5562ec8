package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/allisson/fulfillment/internal/inventory/domain"
	"github.com/allisson/fulfillment/internal/inventory/usecase"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// MockInventoryUseCase is a mock implementation of usecase.UseCase
type MockInventoryUseCase struct {
	mock.Mock
}

func (m *MockInventoryUseCase) LockStock(ctx context.Context, orderID string, items []usecase.OrderItem) error {
	args := m.Called(ctx, orderID, items)
	return args.Error(0)
}

func (m *MockInventoryUseCase) ReleaseStock(ctx context.Context, orderID string) error {
	args := m.Called(ctx, orderID)
	return args.Error(0)
}

func (m *MockInventoryUseCase) CreateLedgerEntry(
	ctx context.Context,
	input usecase.CreateLedgerEntryInput,
) (*domain.StockLedgerEntry, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockLedgerEntry), args.Error(1)
}

func (m *MockInventoryUseCase) GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error) {
	args := m.Called(ctx, skuCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StockLedgerEntry), args.Error(1)
}

func setupRouter(useCase usecase.UseCase) *gin.Engine {
	gin.SetMode(gin.TestMode)
	handler := NewInventoryHandler(useCase, nil)

	router := gin.New()
	router.POST("/v1/inventory/lock", handler.LockHandler)
	router.POST("/v1/inventory/release", handler.ReleaseHandler)
	router.GET("/v1/inventory/:sku_code", handler.GetBySkuHandler)
	return router
}

func TestInventoryHandler_LockHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("LockStock", mock.Anything, "order-1",
			[]usecase.OrderItem{{SkuCode: "SKU-1", Quantity: 2}}).Return(nil)

		body, err := json.Marshal(map[string]any{
			"order_id": "order-1",
			"items":    []map[string]any{{"sku_code": "SKU-1", "quantity": 2}},
		})
		require.NoError(t, err)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/lock", bytes.NewReader(body))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"locked":true`)
	})

	t.Run("Conflict_InsufficientStock", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("LockStock", mock.Anything, "order-1", mock.Anything).
			Return(apperrors.Wrap(domain.ErrInsufficientStock, "SKU-1"))

		body := `{"order_id":"order-1","items":[{"sku_code":"SKU-1","quantity":99}]}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/lock", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("NotFound_UnknownSku", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("LockStock", mock.Anything, "order-1", mock.Anything).
			Return(apperrors.Wrap(domain.ErrSkuNotFound, "MISSING"))

		body := `{"order_id":"order-1","items":[{"sku_code":"MISSING","quantity":1}]}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/lock", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("UnprocessableEntity_MissingItems", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		body := `{"order_id":"order-1","items":[]}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/lock", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		useCase.AssertNotCalled(t, "LockStock", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("BadRequest_MalformedJSON", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/lock", bytes.NewReader([]byte(`{`)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestInventoryHandler_ReleaseHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("ReleaseStock", mock.Anything, "order-1").Return(nil)

		body := `{"order_id":"order-1"}`

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/release", bytes.NewReader([]byte(body)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"released":true`)
	})

	t.Run("UnprocessableEntity_MissingOrderID", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/inventory/release", bytes.NewReader([]byte(`{}`)))
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

func TestInventoryHandler_GetBySkuHandler(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("GetBySku", mock.Anything, "SKU-1").Return(&domain.StockLedgerEntry{
			SkuCode: "SKU-1", Quantity: 10, ReservedQuantity: 4,
		}, nil)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/inventory/SKU-1", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"available_stock":6`)
	})

	t.Run("NotFound", func(t *testing.T) {
		useCase := &MockInventoryUseCase{}
		router := setupRouter(useCase)

		useCase.On("GetBySku", mock.Anything, "MISSING").Return(nil, domain.ErrSkuNotFound)

		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/inventory/MISSING", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
