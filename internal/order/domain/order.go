// Package domain defines the order entity.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/errors"
)

// OrderStatus represents the lifecycle state of a materialized order.
type OrderStatus string

const (
	OrderStatusPlaced    OrderStatus = "PLACED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

// Order is the materialized record of a fulfilled checkout. It is created
// only after the payment provider confirmed capture; before that the order
// exists only as an order id shared by reservations and the payment row.
type Order struct {
	ID        string
	PaymentID uuid.UUID
	Amount    int64
	Currency  string
	Status    OrderStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for order operations.
var (
	// ErrOrderNotFound indicates no order exists for the identifier.
	ErrOrderNotFound = errors.Wrap(errors.ErrNotFound, "order not found")

	// ErrOrderAlreadyExists indicates the order was already materialized.
	ErrOrderAlreadyExists = errors.Wrap(errors.ErrConflict, "order already exists")
)
