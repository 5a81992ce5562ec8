// Package repository provides data persistence implementations for processed-event markers.
package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/inbox/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// PostgreSQLProcessedEventRepository handles processed-event persistence for PostgreSQL
type PostgreSQLProcessedEventRepository struct {
	db *sql.DB
}

// NewPostgreSQLProcessedEventRepository creates a new PostgreSQLProcessedEventRepository
func NewPostgreSQLProcessedEventRepository(db *sql.DB) *PostgreSQLProcessedEventRepository {
	return &PostgreSQLProcessedEventRepository{
		db: db,
	}
}

// Create inserts a marker for (event, consumer group). A duplicate insert
// returns domain.ErrAlreadyProcessed, which is how the guard detects replays.
func (r *PostgreSQLProcessedEventRepository) Create(ctx context.Context, eventID uuid.UUID, consumerGroup string) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO processed_events (event_id, consumer_group, processed_at)
			  VALUES ($1, $2, NOW())`

	_, err := querier.ExecContext(ctx, query, eventID, consumerGroup)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadyProcessed
		}
		return apperrors.Wrap(err, "failed to create processed event marker")
	}
	return nil
}
