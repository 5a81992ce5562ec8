package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/payment/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// MySQLPaymentRepository handles payment persistence for MySQL
type MySQLPaymentRepository struct {
	db *sql.DB
}

// NewMySQLPaymentRepository creates a new MySQLPaymentRepository
func NewMySQLPaymentRepository(db *sql.DB) *MySQLPaymentRepository {
	return &MySQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment
func (r *MySQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payments (id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, payment.ID.String(), payment.OrderID, payment.Amount,
		payment.Currency, payment.Status, payment.ProviderRef, payment.Version)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrPaymentAlreadyExists
		}
		return apperrors.Wrap(err, "failed to create payment")
	}
	return nil
}

// GetByID retrieves a payment by ID
func (r *MySQLPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at
			  FROM payments WHERE id = ?`

	return r.scanPayment(querier.QueryRowContext(ctx, query, id.String()))
}

// GetByOrderID retrieves a payment by order ID
func (r *MySQLPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at
			  FROM payments WHERE order_id = ?`

	return r.scanPayment(querier.QueryRowContext(ctx, query, orderID))
}

// Update writes status and provider_ref with a compare-and-swap on the
// version read by the caller.
func (r *MySQLPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE payments
			  SET status = ?, provider_ref = ?, version = version + 1, updated_at = NOW()
			  WHERE id = ? AND version = ?`

	result, err := querier.ExecContext(ctx, query, payment.Status, payment.ProviderRef,
		payment.ID.String(), payment.Version)
	if err != nil {
		return apperrors.Wrap(err, "failed to update payment")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrap(err, "failed to read affected rows")
	}
	if affected == 0 {
		return domain.ErrVersionConflict
	}

	payment.Version++
	return nil
}

func (r *MySQLPaymentRepository) scanPayment(row *sql.Row) (*domain.Payment, error) {
	var payment domain.Payment
	var id string

	err := row.Scan(
		&id, &payment.OrderID, &payment.Amount, &payment.Currency,
		&payment.Status, &payment.ProviderRef, &payment.Version,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get payment")
	}

	payment.ID, err = uuid.Parse(id)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to parse payment id")
	}

	return &payment, nil
}
