// Package domain defines the core outbox domain entities and types.
package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// OutboxEventStatus represents the status of an outbox event
type OutboxEventStatus string

const (
	OutboxEventStatusPending   OutboxEventStatus = "pending"
	OutboxEventStatusProcessed OutboxEventStatus = "processed"
)

// OutboxEvent represents an event in the transactional outbox pattern. It is
// written in the same local transaction as the state change it announces and
// relayed to the bus afterwards. The payload is write-once; status only moves
// pending -> processed, and only after the broker acknowledged the publish.
// Retries and LastError record failed publish attempts for observability; a
// failed event stays pending and is retried on the next relay tick.
type OutboxEvent struct {
	ID          uuid.UUID
	AggregateID string
	EventType   string
	Topic       string
	Payload     string
	Status      OutboxEventStatus
	Retries     int
	LastError   *string
	ProcessedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewOutboxEvent builds a pending outbox event with a serialized payload.
// AggregateID becomes the bus partition key, preserving per-aggregate ordering.
func NewOutboxEvent(aggregateID, eventType, topic string, payload any) (*OutboxEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal outbox payload")
	}

	return &OutboxEvent{
		ID:          uuid.Must(uuid.NewV7()),
		AggregateID: aggregateID,
		EventType:   eventType,
		Topic:       topic,
		Payload:     string(data),
		Status:      OutboxEventStatusPending,
	}, nil
}
