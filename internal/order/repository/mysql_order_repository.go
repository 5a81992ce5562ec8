package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/order/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// MySQLOrderRepository handles order persistence for MySQL
type MySQLOrderRepository struct {
	db *sql.DB
}

// NewMySQLOrderRepository creates a new MySQLOrderRepository
func NewMySQLOrderRepository(db *sql.DB) *MySQLOrderRepository {
	return &MySQLOrderRepository{
		db: db,
	}
}

// Create inserts a new order
func (r *MySQLOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO orders (id, payment_id, amount, currency, status, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, order.ID, order.PaymentID.String(), order.Amount,
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
func (r *MySQLOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	var order domain.Order
	var paymentID string
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, payment_id, amount, currency, status, created_at, updated_at
			  FROM orders WHERE id = ?`

	err := querier.QueryRowContext(ctx, query, id).Scan(
		&order.ID, &paymentID, &order.Amount, &order.Currency,
		&order.Status, &order.CreatedAt, &order.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrOrderNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get order")
	}

	order.PaymentID, err = uuid.Parse(paymentID)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse payment id")
	}

	return &order, nil
}

// UpdateStatus sets the order status.
func (r *MySQLOrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE orders SET status = ?, updated_at = NOW() WHERE id = ?`

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
