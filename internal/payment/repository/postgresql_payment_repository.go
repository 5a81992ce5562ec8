// Package repository provides data persistence implementations for payment entities.
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

// PostgreSQLPaymentRepository handles payment persistence for PostgreSQL
type PostgreSQLPaymentRepository struct {
	db *sql.DB
}

// NewPostgreSQLPaymentRepository creates a new PostgreSQLPaymentRepository
func NewPostgreSQLPaymentRepository(db *sql.DB) *PostgreSQLPaymentRepository {
	return &PostgreSQLPaymentRepository{
		db: db,
	}
}

// Create inserts a new payment
func (r *PostgreSQLPaymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO payments (id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, payment.ID, payment.OrderID, payment.Amount,
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
func (r *PostgreSQLPaymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at
			  FROM payments WHERE id = $1`

	return r.scanPayment(querier.QueryRowContext(ctx, query, id))
}

// GetByOrderID retrieves a payment by order ID
func (r *PostgreSQLPaymentRepository) GetByOrderID(ctx context.Context, orderID string) (*domain.Payment, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, order_id, amount, currency, status, provider_ref, version, created_at, updated_at
			  FROM payments WHERE order_id = $1`

	return r.scanPayment(querier.QueryRowContext(ctx, query, orderID))
}

// Update writes status and provider_ref with a compare-and-swap on the
// version read by the caller.
func (r *PostgreSQLPaymentRepository) Update(ctx context.Context, payment *domain.Payment) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE payments
			  SET status = $1, provider_ref = $2, version = version + 1, updated_at = NOW()
			  WHERE id = $3 AND version = $4`

	result, err := querier.ExecContext(ctx, query, payment.Status, payment.ProviderRef,
		payment.ID, payment.Version)
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

func (r *PostgreSQLPaymentRepository) scanPayment(row *sql.Row) (*domain.Payment, error) {
	var payment domain.Payment

	err := row.Scan(
		&payment.ID, &payment.OrderID, &payment.Amount, &payment.Currency,
		&payment.Status, &payment.ProviderRef, &payment.Version,
		&payment.CreatedAt, &payment.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrPaymentNotFound
		}
		return nil, apperrors.Wrap(err, "failed to get payment")
	}

	return &payment, nil
}
