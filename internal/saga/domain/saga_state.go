// Package domain defines the cancellation saga state.
package domain

import (
	"time"

	"github.com/allisson/fulfillment/internal/errors"
)

// SagaStatus is derived from the compensation flags, never stored.
type SagaStatus string

const (
	SagaStatusPending              SagaStatus = "PENDING"
	SagaStatusPartiallyCompensated SagaStatus = "PARTIALLY_COMPENSATED"
	SagaStatusCompleted            SagaStatus = "COMPLETED"
)

// SagaState tracks one order's cancellation. Each flag records that its
// compensation completed; flags only ever move false -> true, and the row is
// never deleted. A saga is terminal when both flags are true.
type SagaState struct {
	OrderID           string
	InventoryReleased bool
	PaymentRefunded   bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Status derives the saga's progress from its flags.
func (s *SagaState) Status() SagaStatus {
	switch {
	case s.InventoryReleased && s.PaymentRefunded:
		return SagaStatusCompleted
	case s.InventoryReleased || s.PaymentRefunded:
		return SagaStatusPartiallyCompensated
	default:
		return SagaStatusPending
	}
}

// Completed reports whether both compensations have finished.
func (s *SagaState) Completed() bool {
	return s.InventoryReleased && s.PaymentRefunded
}

// Domain-specific errors for saga operations.
var (
	// ErrSagaNotFound indicates no saga exists for the order.
	ErrSagaNotFound = errors.Wrap(errors.ErrNotFound, "saga not found")

	// ErrSagaAlreadyExists indicates a saga was already opened for the order.
	ErrSagaAlreadyExists = errors.Wrap(errors.ErrConflict, "saga already exists")
)
