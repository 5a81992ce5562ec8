// Package http provides HTTP handlers for order operations.
package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/allisson/fulfillment/internal/httputil"
	"github.com/allisson/fulfillment/internal/order/http/dto"
	"github.com/allisson/fulfillment/internal/order/usecase"
)

// OrderHandler handles HTTP requests for order operations.
type OrderHandler struct {
	orderUseCase usecase.UseCase
	logger       *slog.Logger
}

// NewOrderHandler creates a new order handler.
func NewOrderHandler(orderUseCase usecase.UseCase, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		orderUseCase: orderUseCase,
		logger:       logger,
	}
}

// CheckoutHandler locks stock and opens a payment for a new order.
// POST /v1/checkout
// Returns 201 with the order and payment ids, 409 when stock is
// insufficient, 404 for an unknown SKU, 422 for invalid input and 503 when
// the lock could not be acquired under contention.
func (h *OrderHandler) CheckoutHandler(c *gin.Context) {
	var req dto.CheckoutRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	if err := req.Validate(); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	output, err := h.orderUseCase.Checkout(c.Request.Context(), req.ToCheckoutInput())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusCreated, dto.ToCheckoutResponse(output))
}

// CancelHandler requests cancellation of an order. Safe to call any number
// of times.
// POST /v1/orders/:id/cancel
func (h *OrderHandler) CancelHandler(c *gin.Context) {
	orderID := c.Param("id")

	if err := h.orderUseCase.Cancel(c.Request.Context(), orderID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.CancelResponse{OrderID: orderID, Cancelled: true})
}

// GetHandler returns a materialized order.
// GET /v1/orders/:id
func (h *OrderHandler) GetHandler(c *gin.Context) {
	order, err := h.orderUseCase.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToOrderResponse(order))
}
