// Package repository provides data persistence implementations for saga state.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/saga/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// PostgreSQLSagaRepository handles saga state persistence for PostgreSQL
type PostgreSQLSagaRepository struct {
	db *sql.DB
}

// NewPostgreSQLSagaRepository creates a new PostgreSQLSagaRepository
func NewPostgreSQLSagaRepository(db *sql.DB) *PostgreSQLSagaRepository {
	return &PostgreSQLSagaRepository{
		db: db,
	}
}

// Create opens a saga for an order
func (r *PostgreSQLSagaRepository) Create(ctx context.Context, saga *domain.SagaState) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO saga_states (order_id, inventory_released, payment_refunded, created_at, updated_at)
			  VALUES ($1, $2, $3, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, saga.OrderID, saga.InventoryReleased, saga.PaymentRefunded)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrSagaAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create saga")
	}
	return nil
}

// GetByOrderID retrieves a saga by order ID
func (r *PostgreSQLSagaRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error) {
	var saga domain.SagaState
	querier := database.GetTx(ctx, r.db)

	query := `SELECT order_id, inventory_released, payment_refunded, created_at, updated_at
			  FROM saga_states WHERE order_id = $1`

	err := querier.QueryRowContext(ctx, query, orderID).Scan(
		&saga.OrderID, &saga.InventoryReleased, &saga.PaymentRefunded,
		&saga.CreatedAt, &saga.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSagaNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get saga")
	}

	return &saga, nil
}

// SetInventoryReleased flips the inventory flag. The flag is monotonic so
// replays and concurrent sweeps are harmless.
func (r *PostgreSQLSagaRepository) SetInventoryReleased(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "inventory_released")
}

// SetPaymentRefunded flips the payment flag.
func (r *PostgreSQLSagaRepository) SetPaymentRefunded(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "payment_refunded")
}

func (r *PostgreSQLSagaRepository) setFlag(ctx context.Context, orderID, column string) error {
	querier := database.GetTx(ctx, r.db)

	// column is one of two constants above, never user input.
	query := `UPDATE saga_states SET ` + column + ` = TRUE, updated_at = NOW() WHERE order_id = $1`

	result, err := querier.ExecContext(ctx, query, orderID)
	if err != nil {
		return apperrors.Wrap(err, "failed to update saga flag")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrSagaNotFound
	}
	return nil
}

// ListStale returns open sagas created before the cutoff, oldest first. Used
// by the reconciliation sweep to re-drive stuck compensations.
func (r *PostgreSQLSagaRepository) ListStale(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.SagaState, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT order_id, inventory_released, payment_refunded, created_at, updated_at
			  FROM saga_states
			  WHERE (inventory_released = FALSE OR payment_refunded = FALSE)
			    AND created_at < $1
			  ORDER BY created_at ASC
			  LIMIT $2`

	rows, err := querier.QueryContext(ctx, query, cutoff, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to list stale sagas")
	}
	defer rows.Close() //nolint:errcheck

	var sagas []*domain.SagaState
	for rows.Next() {
		var saga domain.SagaState

		err := rows.Scan(&saga.OrderID, &saga.InventoryReleased, &saga.PaymentRefunded,
			&saga.CreatedAt, &saga.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, "failed to scan saga")
		}

		sagas = append(sagas, &saga)
	}

	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(err, "failed to iterate sagas")
	}

	return sagas, nil
}
