// Package dto provides data transfer objects for the payment HTTP layer.
package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/payment/domain"
)

// PaymentResponse represents the API representation of a payment
type PaymentResponse struct {
	ID        uuid.UUID `json:"id"`
	OrderID   string    `json:"order_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToPaymentResponse converts a domain payment to its API representation
func ToPaymentResponse(payment *domain.Payment) PaymentResponse {
	return PaymentResponse{
		ID:        payment.ID,
		OrderID:   payment.OrderID,
		Amount:    payment.Amount,
		Currency:  payment.Currency,
		Status:    string(payment.Status),
		CreatedAt: payment.CreatedAt,
		UpdatedAt: payment.UpdatedAt,
	}
}
