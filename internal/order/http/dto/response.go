package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/order/domain"
	"github.com/allisson/fulfillment/internal/order/usecase"
)

// CheckoutResponse represents a checkout result in API responses.
type CheckoutResponse struct {
	OrderID   string    `json:"order_id"`
	PaymentID uuid.UUID `json:"payment_id"`
}

// OrderResponse represents an order in API responses.
type OrderResponse struct {
	ID        string    `json:"id"`
	PaymentID uuid.UUID `json:"payment_id"`
	Amount    int64     `json:"amount"`
	Currency  string    `json:"currency"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CancelResponse represents the result of a cancellation request.
type CancelResponse struct {
	OrderID   string `json:"order_id"`
	Cancelled bool   `json:"cancelled"`
}

// ToCheckoutResponse converts a usecase output to a response.
func ToCheckoutResponse(output *usecase.CheckoutOutput) CheckoutResponse {
	return CheckoutResponse{
		OrderID:   output.OrderID,
		PaymentID: output.PaymentID,
	}
}

// ToOrderResponse converts a domain order to a response.
func ToOrderResponse(order *domain.Order) OrderResponse {
	return OrderResponse{
		ID:        order.ID,
		PaymentID: order.PaymentID,
		Amount:    order.Amount,
		Currency:  order.Currency,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
		UpdatedAt: order.UpdatedAt,
	}
}
