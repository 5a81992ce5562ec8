// Package http provides HTTP handlers for payment operations, including the
// provider webhook endpoint.
package http

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/httputil"
	"github.com/allisson/fulfillment/internal/payment/http/dto"
	"github.com/allisson/fulfillment/internal/payment/service"
	"github.com/allisson/fulfillment/internal/payment/usecase"
)

// SignatureHeader carries the hex HMAC-SHA256 digest of the request body.
const SignatureHeader = "X-Signature"

// PaymentHandler handles HTTP requests for payment operations.
type PaymentHandler struct {
	paymentUseCase usecase.UseCase
	signer         *service.Signer
	logger         *slog.Logger
}

// NewPaymentHandler creates a new payment handler.
func NewPaymentHandler(paymentUseCase usecase.UseCase, signer *service.Signer, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		paymentUseCase: paymentUseCase,
		signer:         signer,
		logger:         logger,
	}
}

// VerifyHandler applies the client-submitted signature check.
// POST /v1/payments/:id/verify
func (h *PaymentHandler) VerifyHandler(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	payment, err := h.paymentUseCase.Verify(c.Request.Context(), paymentID, payload, c.GetHeader(SignatureHeader))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

// WebhookHandler accepts the provider's asynchronous payment outcome. The
// provider must never be made to retry at the transport level, so the
// response is 200 regardless of the internal outcome; failures are logged and
// left to the saga and outbox machinery.
// POST /v1/payments/webhook
func (h *PaymentHandler) WebhookHandler(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.logWebhookFailure("failed to read webhook body", err)
		c.Status(http.StatusOK)
		return
	}

	if !h.signer.Verify(body, c.GetHeader(SignatureHeader)) {
		h.logWebhookFailure("webhook signature mismatch", nil)
		c.Status(http.StatusOK)
		return
	}

	var input usecase.WebhookInput
	if err := json.Unmarshal(body, &input); err != nil {
		h.logWebhookFailure("malformed webhook payload", err)
		c.Status(http.StatusOK)
		return
	}

	if err := h.paymentUseCase.ConfirmFromWebhook(c.Request.Context(), input); err != nil {
		h.logWebhookFailure("failed to apply webhook", err)
	}

	c.Status(http.StatusOK)
}

// GetHandler returns a payment by id.
// GET /v1/payments/:id
func (h *PaymentHandler) GetHandler(c *gin.Context) {
	paymentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	payment, err := h.paymentUseCase.GetByID(c.Request.Context(), paymentID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	c.JSON(http.StatusOK, dto.ToPaymentResponse(payment))
}

func (h *PaymentHandler) logWebhookFailure(message string, err error) {
	if h.logger == nil {
		return
	}
	if err != nil {
		h.logger.Error(message, slog.Any("error", err))
		return
	}
	h.logger.Error(message)
}
