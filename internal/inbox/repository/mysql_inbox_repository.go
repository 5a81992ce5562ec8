package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/inbox/domain"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// MySQLProcessedEventRepository handles processed-event persistence for MySQL
type MySQLProcessedEventRepository struct {
	db *sql.DB
}

// NewMySQLProcessedEventRepository creates a new MySQLProcessedEventRepository
func NewMySQLProcessedEventRepository(db *sql.DB) *MySQLProcessedEventRepository {
	return &MySQLProcessedEventRepository{
		db: db,
	}
}

// Create inserts a marker for (event, consumer group). A duplicate insert
// returns domain.ErrAlreadyProcessed.
func (r *MySQLProcessedEventRepository) Create(ctx context.Context, eventID uuid.UUID, consumerGroup string) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO processed_events (event_id, consumer_group, processed_at)
			  VALUES (?, ?, NOW())`

	_, err := querier.ExecContext(ctx, query, eventID.String(), consumerGroup)
	if err != nil {
		if database.IsUniqueViolation(err) {
			return domain.ErrAlreadyProcessed
		}
		return apperrors.Wrap(err, "failed to create processed event marker")
	}
	return nil
}
