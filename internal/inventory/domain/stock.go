// Package domain defines the core inventory domain entities and types.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/errors"
)

// StockLedgerEntry is the authoritative per-SKU quantity record. All mutations
// go through the reservation manager using optimistic concurrency: every write
// bumps Version and is conditioned on the version read at the start of the
// read-modify-write cycle.
type StockLedgerEntry struct {
	ID               uuid.UUID
	SkuCode          string
	Quantity         int64
	ReservedQuantity int64
	Version          int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// AvailableStock returns the quantity not currently held by reservations.
func (e *StockLedgerEntry) AvailableStock() int64 {
	return e.Quantity - e.ReservedQuantity
}

// CanReserve reports whether qty more units can be reserved without breaking
// the 0 <= reserved <= quantity invariant.
func (e *StockLedgerEntry) CanReserve(qty int64) bool {
	return qty > 0 && e.ReservedQuantity+qty <= e.Quantity
}

// ReservationStatus represents the lifecycle of a stock reservation.
type ReservationStatus string

const (
	ReservationStatusReserved ReservationStatus = "RESERVED"
	ReservationStatusReleased ReservationStatus = "RELEASED"
)

// StockReservation is a provisional claim on inventory for one order line.
// Unique per (order, SKU); quantity is immutable after creation; the row
// transitions RESERVED -> RELEASED exactly once and is never deleted, which
// keeps an audit trail of every claim.
type StockReservation struct {
	ID        uuid.UUID
	OrderID   string
	SkuCode   string
	Quantity  int64
	Status    ReservationStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Domain-specific errors for inventory operations.
var (
	// ErrSkuNotFound indicates no ledger entry exists for the SKU.
	ErrSkuNotFound = errors.Wrap(errors.ErrNotFound, "sku not found")

	// ErrInsufficientStock indicates the requested quantity exceeds available stock.
	ErrInsufficientStock = errors.Wrap(errors.ErrConflict, "insufficient stock")

	// ErrVersionConflict indicates a concurrent writer updated the ledger entry
	// between read and write. Callers retry the read-modify-write cycle.
	ErrVersionConflict = errors.Wrap(errors.ErrConflict, "ledger version conflict")

	// ErrDuplicateReservation indicates a reservation already exists for the
	// (order, SKU) pair.
	ErrDuplicateReservation = errors.Wrap(errors.ErrConflict, "reservation already exists")

	// ErrSkuAlreadyExists indicates a ledger entry already exists for the SKU.
	ErrSkuAlreadyExists = errors.Wrap(errors.ErrConflict, "sku already exists")
)
