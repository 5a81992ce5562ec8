// Package repository provides data persistence implementations for inventory entities.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/inventory/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// PostgreSQLStockLedgerRepository handles stock ledger persistence for PostgreSQL
type PostgreSQLStockLedgerRepository struct {
	db *sql.DB
}

// NewPostgreSQLStockLedgerRepository creates a new PostgreSQLStockLedgerRepository
func NewPostgreSQLStockLedgerRepository(db *sql.DB) *PostgreSQLStockLedgerRepository {
	return &PostgreSQLStockLedgerRepository{
		db: db,
	}
}

// Create inserts a new ledger entry
func (r *PostgreSQLStockLedgerRepository) Create(ctx context.Context, entry *domain.StockLedgerEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO stock_ledger (id, sku_code, quantity, reserved_quantity, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, entry.ID, entry.SkuCode, entry.Quantity,
		entry.ReservedQuantity, entry.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrSkuAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create ledger entry")
	}
	return nil
}

// GetBySku retrieves a ledger entry by SKU code
func (r *PostgreSQLStockLedgerRepository) GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error) {
	var entry domain.StockLedgerEntry
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, sku_code, quantity, reserved_quantity, version, created_at, updated_at
			  FROM stock_ledger WHERE sku_code = $1`

	err := querier.QueryRowContext(ctx, query, skuCode).Scan(
		&entry.ID, &entry.SkuCode, &entry.Quantity, &entry.ReservedQuantity,
		&entry.Version, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSkuNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get ledger entry by sku")
	}

	return &entry, nil
}

// UpdateQuantities writes quantity and reserved_quantity with a compare-and-swap
// on the version read by the caller. Zero rows affected means a concurrent
// writer got in first and the caller must retry its read-modify-write cycle.
func (r *PostgreSQLStockLedgerRepository) UpdateQuantities(ctx context.Context, entry *domain.StockLedgerEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE stock_ledger
			  SET quantity = $1, reserved_quantity = $2, version = version + 1, updated_at = NOW()
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, entry.Quantity, entry.ReservedQuantity,
		entry.ID, entry.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update ledger entry")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	entry.Version++
	return nil
}

// PostgreSQLStockReservationRepository handles stock reservation persistence for PostgreSQL
type PostgreSQLStockReservationRepository struct {
	db *sql.DB
}

// NewPostgreSQLStockReservationRepository creates a new PostgreSQLStockReservationRepository
func NewPostgreSQLStockReservationRepository(db *sql.DB) *PostgreSQLStockReservationRepository {
	return &PostgreSQLStockReservationRepository{
		db: db,
	}
}

// Create inserts a new reservation
func (r *PostgreSQLStockReservationRepository) Create(ctx context.Context, reservation *domain.StockReservation) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO stock_reservations (id, order_id, sku_code, quantity, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, reservation.ID, reservation.OrderID,
		reservation.SkuCode, reservation.Quantity, reservation.Status)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrDuplicateReservation
		}
		return apperrors.Wrap(err, "failed to create reservation")
	}
	return nil
}

// GetReservedByOrder retrieves the RESERVED rows for an order
func (r *PostgreSQLStockReservationRepository) GetReservedByOrder(ctx context.Context, orderID string) ([]*domain.StockReservation, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, sku_code, quantity, status, created_at, updated_at
			  FROM stock_reservations
			  WHERE order_id = $1 AND status = $2
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, orderID, domain.ReservationStatusReserved)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get reservations by order")
	}
	defer rows.Close() //nolint:errcheck

	var reservations []*domain.StockReservation
	for rows.Next() {
		var reservation domain.StockReservation

		err := rows.Scan(&reservation.ID, &reservation.OrderID, &reservation.SkuCode,
			&reservation.Quantity, &reservation.Status, &reservation.CreatedAt, &reservation.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reservation")
		}

		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate reservations")
	}

	return reservations, nil
}

// MarkReleased flips a reservation to RELEASED. The update is conditioned on
// the current status so the transition happens exactly once; the returned bool
// reports whether this call performed the flip.
func (r *PostgreSQLStockReservationRepository) MarkReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE stock_reservations
			  SET status = $1, updated_at = NOW()
			  WHERE id = $2 AND status = $3`

	result, err := querier.ExecContext(ctx, query,
		domain.ReservationStatusReleased, id, domain.ReservationStatusReserved)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark reservation released")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected > 0, nil
}
