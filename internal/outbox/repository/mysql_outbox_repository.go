package repository

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/database"
	"github.com/allisson/fulfillment/internal/outbox/domain"
)

// MySQLOutboxEventRepository handles outbox event persistence for MySQL
type MySQLOutboxEventRepository struct {
	db *sql.DB
}

// NewMySQLOutboxEventRepository creates a new MySQLOutboxEventRepository
func NewMySQLOutboxEventRepository(db *sql.DB) *MySQLOutboxEventRepository {
	return &MySQLOutboxEventRepository{
		db: db,
	}
}

// Create inserts a new outbox event
func (r *MySQLOutboxEventRepository) Create(ctx context.Context, event *domain.OutboxEvent) error {
	querier := database.GetTx(ctx, r.db)

	query := `INSERT INTO outbox_events (id, aggregate_id, event_type, topic, payload, status, retries, last_error, processed_at, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NOW(), NOW())`

	_, err := querier.ExecContext(ctx, query, event.ID.String(), event.AggregateID, event.EventType, event.Topic,
		event.Payload, event.Status, event.Retries, event.LastError, event.ProcessedAt)

	return err
}

// GetPendingEvents retrieves pending events with limit
func (r *MySQLOutboxEventRepository) GetPendingEvents(
	ctx context.Context,
	limit int,
) ([]*domain.OutboxEvent, error) {
	querier := database.GetTx(ctx, r.db)

	query := `SELECT id, aggregate_id, event_type, topic, payload, status, retries, last_error, processed_at, created_at, updated_at
			  FROM outbox_events
			  WHERE status = ?
			  ORDER BY created_at ASC
			  LIMIT ?
			  FOR UPDATE SKIP LOCKED`

	rows, err := querier.QueryContext(ctx, query, domain.OutboxEventStatusPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close() //nolint:errcheck

	var events []*domain.OutboxEvent
	for rows.Next() {
		var event domain.OutboxEvent
		var id string

		err := rows.Scan(&id, &event.AggregateID, &event.EventType, &event.Topic, &event.Payload,
			&event.Status, &event.Retries, &event.LastError, &event.ProcessedAt, &event.CreatedAt, &event.UpdatedAt)
		if err != nil {
			return nil, err
		}

		event.ID, err = uuid.Parse(id)
		if err != nil {
			return nil, err
		}

		events = append(events, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

// MarkProcessed flips the event to processed, conditioned on the current
// status so concurrent relay replicas stay idempotent.
func (r *MySQLOutboxEventRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET status = ?, processed_at = NOW(), updated_at = NOW()
			  WHERE id = ? AND status = ?`

	_, err := querier.ExecContext(ctx, query,
		domain.OutboxEventStatusProcessed, id.String(), domain.OutboxEventStatusPending)

	return err
}

// RecordFailedAttempt increments the retry counter and stores the last publish
// error. The event stays pending and is retried on the next tick.
func (r *MySQLOutboxEventRepository) RecordFailedAttempt(ctx context.Context, id uuid.UUID, lastError string) error {
	querier := database.GetTx(ctx, r.db)

	query := `UPDATE outbox_events
			  SET retries = retries + 1, last_error = ?, updated_at = NOW()
			  WHERE id = ?`

	_, err := querier.ExecContext(ctx, query, lastError, id.String())

	return err
}
