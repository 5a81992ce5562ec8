// Package domain defines the payment entity and its state machine.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/errors"
)

// PaymentStatus represents the lifecycle state of a payment.
type PaymentStatus string

const (
	PaymentStatusCreated  PaymentStatus = "CREATED"
	PaymentStatusVerified PaymentStatus = "VERIFIED"
	PaymentStatusPaid     PaymentStatus = "PAID"
	PaymentStatusFailed   PaymentStatus = "FAILED"
	PaymentStatusRefunded PaymentStatus = "REFUNDED"
)

// Payment tracks one checkout's money flow. Status moves only along
// CREATED -> VERIFIED -> PAID -> REFUNDED, with FAILED reachable from CREATED
// and VERIFIED. Amount is immutable after creation. Two writers racing on the
// same payment are serialized by the version CAS in the repository; the loser
// re-reads and re-applies its transition, which the state machine then accepts
// or rejects against the fresh state.
type Payment struct {
	ID          uuid.UUID
	OrderID     string
	Amount      int64
	Currency    string
	Status      PaymentStatus
	ProviderRef *string
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Domain-specific errors for payment operations.
var (
	// ErrPaymentNotFound indicates no payment exists for the identifier.
	ErrPaymentNotFound = errors.Wrap(errors.ErrNotFound, "payment not found")

	// ErrPaymentAlreadyExists indicates a payment already exists for the order.
	ErrPaymentAlreadyExists = errors.Wrap(errors.ErrConflict, "payment already exists")

	// ErrInvalidTransition indicates the requested status change is not on the
	// allowed state graph.
	ErrInvalidTransition = errors.Wrap(errors.ErrConflict, "invalid payment transition")

	// ErrVersionConflict indicates a concurrent writer updated the payment
	// between read and write.
	ErrVersionConflict = errors.Wrap(errors.ErrConflict, "payment version conflict")

	// ErrInvalidSignature indicates the submitted payload signature did not
	// verify against the shared secret.
	ErrInvalidSignature = errors.Wrap(errors.ErrUnauthorized, "invalid payment signature")
)

// Verify moves the payment to VERIFIED after a successful signature check.
// Only valid from CREATED; verifying an already verified or paid payment is
// rejected rather than silently accepted.
func (p *Payment) Verify() error {
	if p.Status != PaymentStatusCreated {
		return errors.Wrap(ErrInvalidTransition, "verify from "+string(p.Status))
	}
	p.Status = PaymentStatusVerified
	return nil
}

// MarkPaid applies the provider's capture confirmation. The transition is
// idempotent: a duplicate webhook for an already paid payment reports no
// change and no error. PAID is never reachable from FAILED or REFUNDED. The
// webhook carries the provider's own verification, so capture is accepted
// from CREATED as well as VERIFIED in case it outruns the client callback.
func (p *Payment) MarkPaid(providerRef string) (bool, error) {
	switch p.Status {
	case PaymentStatusPaid:
		return false, nil
	case PaymentStatusCreated, PaymentStatusVerified:
		p.Status = PaymentStatusPaid
		if providerRef != "" {
			p.ProviderRef = &providerRef
		}
		return true, nil
	default:
		return false, errors.Wrap(ErrInvalidTransition, "pay from "+string(p.Status))
	}
}

// MarkFailed records a terminal failure. Valid from CREATED and VERIFIED and
// idempotent from FAILED; captured or refunded money cannot be failed away.
func (p *Payment) MarkFailed() (bool, error) {
	switch p.Status {
	case PaymentStatusFailed:
		return false, nil
	case PaymentStatusCreated, PaymentStatusVerified:
		p.Status = PaymentStatusFailed
		return true, nil
	default:
		return false, errors.Wrap(ErrInvalidTransition, "fail from "+string(p.Status))
	}
}

// MarkRefunded records a completed refund. Only captured money can be
// refunded; a repeated refund of an already refunded payment reports no
// change so compensations can replay safely.
func (p *Payment) MarkRefunded() (bool, error) {
	switch p.Status {
	case PaymentStatusRefunded:
		return false, nil
	case PaymentStatusPaid:
		p.Status = PaymentStatusRefunded
		return true, nil
	default:
		return false, errors.Wrap(ErrInvalidTransition, "refund from "+string(p.Status))
	}
}
