// Package repository provides data persistence implementations for orders.
package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/order/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// PostgreSQLOrderRepository handles order persistence for PostgreSQL
type PostgreSQLOrderRepository struct {
	db *sql.DB
}

// NewPostgreSQLOrderRepository creates a new PostgreSQLOrderRepository
func NewPostgreSQLOrderRepository(db *sql.DB) *PostgreSQLOrderRepository {
	return &PostgreSQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order
func (r *PostgreSQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (id, payment_id, amount, currency, status, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, order.ID, order.PaymentID, order.Amount,
		order.Currency, order.Status)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrOrderAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create order")
	}
	return nil
}

// GetByID retrieves an order by ID
func (r *PostgreSQLOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, payment_id, amount, currency, status, created_at, updated_at
			  FROM orders WHERE id = $1`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &order.PaymentID, &order.Amount, &order.Currency,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order")
	}

	return &order, nil
}

// UpdateStatus sets the order status.
func (r *PostgreSQLOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2`

	result, err := querier.ExecContext(ctx, query, status, id)
	if err != nil {
		return apperrors.Wrap(err, "failed to update order status")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}
