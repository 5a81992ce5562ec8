// Package http provides HTTP handlers for inventory operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/fulfillment/internal/httputil"
	"github.com/allisson/fulfillment/internal/inventory/http/dto"
	"github.com/allisson/fulfillment/internal/inventory/usecase"
)

// InventoryHandler handles HTTP requests for inventory operations.
type InventoryHandler struct {
	inventoryUseCase usecase.UseCase
	logger           *slog.Logger
}

// NewInventoryHandler creates a new inventory handler.
func NewInventoryHandler(inventoryUseCase usecase.UseCase, logger *slog.Logger) *InventoryHandler {
	return &InventoryHandler{
		inventoryUseCase: inventoryUseCase,
		logger:           logger,
	}
}

// LockHandler reserves stock for every line of an order, or nothing at all.
// POST /v1/inventory/lock
// Returns 200 on success, 409 when stock is insufficient, 404 for an unknown
// SKU and 422 for invalid input.
func (h *InventoryHandler) LockHandler(c *gin.Context) {
	var req dto.LockStockRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.inventoryUseCase.LockStock(c.Request.Context(), req.OrderID, dto.ToOrderItems(req.Items)); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.LockStockResponse{OrderID: req.OrderID, Locked: true})
}

// ReleaseHandler releases all reserved stock for an order. Safe to call any
// number of times.
// POST /v1/inventory/release
func (h *InventoryHandler) ReleaseHandler(c *gin.Context) {
	var req dto.ReleaseStockRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := h.inventoryUseCase.ReleaseStock(c.Request.Context(), req.OrderID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ReleaseStockResponse{OrderID: req.OrderID, Released: true})
}

// GetBySkuHandler returns the ledger entry for a SKU.
// GET /v1/inventory/:sku_code
func (h *InventoryHandler) GetBySkuHandler(c *gin.Context) {
	skuCode := c.Param("sku_code")

	entry, err := h.inventoryUseCase.GetBySku(c.Request.Context(), skuCode)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToStockLedgerEntryResponse(entry))
}
