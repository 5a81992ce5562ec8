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

// MySQLStockLedgerRepository handles stock ledger persistence for MySQL
type MySQLStockLedgerRepository struct {
	db *sql.DB
}

// NewMySQLStockLedgerRepository creates a new MySQLStockLedgerRepository
func NewMySQLStockLedgerRepository(db *sql.DB) *MySQLStockLedgerRepository {
	return &MySQLStockLedgerRepository{
		db: db,
	}
}

// Create inserts a new ledger entry
func (r *MySQLStockLedgerRepository) Create(ctx context.Context, entry *domain.StockLedgerEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO stock_ledger (id, sku_code, quantity, reserved_quantity, version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, entry.ID.String(), entry.SkuCode, entry.Quantity,
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
func (r *MySQLStockLedgerRepository) GetBySku(ctx context.Context, skuCode string) (*domain.StockLedgerEntry, error) {
	var entry domain.StockLedgerEntry
	var id string
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, sku_code, quantity, reserved_quantity, version, created_at, updated_at
			  FROM stock_ledger WHERE sku_code = ?`

	err := querier.QueryRowContext(ctx, query, skuCode).Scan(
		&id, &entry.SkuCode, &entry.Quantity, &entry.ReservedQuantity,
		&entry.Version, &entry.CreatedAt, &entry.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSkuNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get ledger entry by sku")
	}

	entry.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse ledger entry id")
	}

	return &entry, nil
}

// UpdateQuantities writes quantity and reserved_quantity with a compare-and-swap
// on the version read by the caller.
func (r *MySQLStockLedgerRepository) UpdateQuantities(ctx context.Context, entry *domain.StockLedgerEntry) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE stock_ledger
			  SET quantity = ?, reserved_quantity = ?, version = version + 1, updated_at = NOW()
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, entry.Quantity, entry.ReservedQuantity,
		entry.ID.String(), entry.Version)
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

// MySQLStockReservationRepository handles stock reservation persistence for MySQL
type MySQLStockReservationRepository struct {
	db *sql.DB
}

// NewMySQLStockReservationRepository creates a new MySQLStockReservationRepository
func NewMySQLStockReservationRepository(db *sql.DB) *MySQLStockReservationRepository {
	return &MySQLStockReservationRepository{
		db: db,
	}
}

// Create inserts a new reservation
func (r *MySQLStockReservationRepository) Create(ctx context.Context, reservation *domain.StockReservation) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO stock_reservations (id, order_id, sku_code, quantity, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, reservation.ID.String(), reservation.OrderID,
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
func (r *MySQLStockReservationRepository) GetReservedByOrder(ctx context.Context, orderID string) ([]*domain.StockReservation, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, sku_code, quantity, status, created_at, updated_at
			  FROM stock_reservations
			  WHERE order_id = ? AND status = ?
			  ORDER BY created_at ASC`

	rows, err := querier.QueryContext(ctx, query, orderID, domain.ReservationStatusReserved)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to get reservations by order")
	}
	defer rows.Close() //nolint:errcheck

	var reservations []*domain.StockReservation
	for rows.Next() {
		var reservation domain.StockReservation
		var id string

		err := rows.Scan(&id, &reservation.OrderID, &reservation.SkuCode,
			&reservation.Quantity, &reservation.Status, &reservation.CreatedAt, &reservation.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan reservation")
		}

		reservation.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to parse reservation id")
		}

		reservations = append(reservations, &reservation)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate reservations")
	}

	return reservations, nil
}

// MarkReleased flips a reservation to RELEASED exactly once; the returned bool
// reports whether this call performed the flip.
func (r *MySQLStockReservationRepository) MarkReleased(ctx context.Context, id uuid.UUID) (bool, error) {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE stock_reservations
			  SET status = ?, updated_at = NOW()
			  WHERE id = ? AND status = ?`

	result, err := querier.ExecContext(ctx, query,
		domain.ReservationStatusReleased, id.String(), domain.ReservationStatusReserved)
	if err != nil {
		return false, apperrors.Wrap(err, "failed to mark reservation released")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, apperrors.Wrap(err, "failed to read affected rows")
	}

	return affected > 0, nil
}
