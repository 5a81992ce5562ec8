// Package domain defines the processed-event marker used to deduplicate
// at-least-once deliveries.
package domain

import (
	"time"

	"github.com/google/uuid"

	"github.com/allisson/fulfillment/internal/errors"
)

// ProcessedEvent marks one event as handled by one consumer group. The row is
// inserted in the same transaction as the event's effect, before the effect is
// externally visible; its existence means "already applied".
type ProcessedEvent struct {
	EventID       uuid.UUID
	ConsumerGroup string
	ProcessedAt   time.Time
}

// ErrAlreadyProcessed indicates the event was handled before by this consumer
// group and its effect must not be applied again.
var ErrAlreadyProcessed = errors.Wrap(errors.ErrConflict, "event already processed")
