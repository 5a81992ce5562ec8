// Package eventbus provides the ordered, partitioned, at-least-once
// publish/subscribe channel used between services. Messages are keyed by an
// aggregate identifier (order id, SKU); ordering is guaranteed only among
// messages sharing a key within a partition.
package eventbus

import (
	"context"

	"github.com/google/uuid"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// Topic names used across services. Topics are partitioned by aggregate id.
const (
	TopicOrderCreated      = "order-created"
	TopicOrderPlaced       = "order-placed"
	TopicOrderCancel       = "order-cancel"
	TopicInventoryLock     = "inventory-lock"
	TopicInventoryReleased = "inventory-released"
	TopicPaymentSuccess    = "payment-success"
	TopicProductCreated    = "product-created"
	TopicRatingUpdated     = "rating-updated"

	TopicNotificationUrgent        = "notification-urgent"
	TopicNotificationTransactional = "notification-transactional"
	TopicNotificationBulk          = "notification-bulk"
)

// DLQSuffix is appended to a topic name to form its dead-letter topic.
const DLQSuffix = ".dlq"

// ErrBusUnavailable indicates the broker rejected or timed out a publish.
var ErrBusUnavailable = apperrors.Wrap(apperrors.ErrTransient, "event bus unavailable")

// Message is a single event on the bus. ID is the globally unique event
// identifier consumed by the processed-event guard; Key is the aggregate id
// used as the partition key.
type Message struct {
	ID    uuid.UUID
	Topic string
	Key   string
	Value []byte
}

// Publisher publishes messages to the bus. Implementations must not report
// success before the broker acknowledged the write; the outbox relay relies
// on this to avoid marking unsent events as processed.
type Publisher interface {
	Publish(ctx context.Context, msgs ...Message) error
	Close() error
}

// Delivery is a message fetched from a subscription together with the
// bookkeeping needed to commit its offset.
type Delivery struct {
	Message Message

	// raw holds driver-specific commit state (e.g. the kafka.Message).
	raw any
}

// Subscription is a single consumer-group binding to one topic. Fetch blocks
// until a message is available or ctx is done. Commit must be called only
// after the message's effect has been applied (or dead-lettered); an
// uncommitted delivery is redelivered after a crash, which is the intended
// at-least-once behavior.
type Subscription interface {
	Fetch(ctx context.Context) (*Delivery, error)
	Commit(ctx context.Context, d *Delivery) error
	Close() error
}

// Bus combines publishing with the ability to open subscriptions.
type Bus interface {
	Publisher
	Subscribe(topic, group string) (Subscription, error)
}
