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

// MySQLSagaRepository handles saga state persistence for MySQL
type MySQLSagaRepository struct {
	db *sql.DB
}

// NewMySQLSagaRepository creates a new MySQLSagaRepository
func NewMySQLSagaRepository(db *sql.DB) *MySQLSagaRepository {
	return &MySQLSagaRepository{
		db: db,
	}
}

// Create opens a saga for an order
func (r *MySQLSagaRepository) Create(ctx context.Context, saga *domain.SagaState) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO saga_states (order_id, inventory_released, payment_refunded, created_at, updated_at)
			  VALUES (?, ?, ?, NOW(), NOW())`

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
func (r *MySQLSagaRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.SagaState, error) {
	var saga domain.SagaState
	querier := database.GetTx(ctx, r.db)

	query := `SELECT order_id, inventory_released, payment_refunded, created_at, updated_at
			  FROM saga_states WHERE order_id = ?`

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
func (r *MySQLSagaRepository) SetInventoryReleased(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "inventory_released")
}

// SetPaymentRefunded flips the payment flag.
func (r *MySQLSagaRepository) SetPaymentRefunded(ctx context.Context, orderID string) error {
	return r.setFlag(ctx, orderID, "payment_refunded")
}

func (r *MySQLSagaRepository) setFlag(ctx context.Context, orderID, column string) error {
	querier := database.GetTx(ctx, r.db)

	// column is one of two constants above, never user input.
	query := `UPDATE saga_states SET ` + column + ` = TRUE, updated_at = NOW() WHERE order_id = ?`

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

// ListStale returns open sagas created before the cutoff, oldest first.
func (r *MySQLSagaRepository) ListStale(
	ctx context.Context,
	cutoff time.Time,
	limit int,
) ([]*domain.SagaState, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT order_id, inventory_released, payment_refunded, created_at, updated_at
			  FROM saga_states
			  WHERE (inventory_released = FALSE OR payment_refunded = FALSE)
			    AND created_at < ?
			  ORDER BY created_at ASC
			  LIMIT ?`

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
