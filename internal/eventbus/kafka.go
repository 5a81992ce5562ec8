package eventbus

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

// eventIDHeader carries the globally unique event id on the wire so consumers
// can deduplicate without parsing the payload.
const eventIDHeader = "event-id"

// KafkaBus implements Bus on top of segmentio/kafka-go. A single writer with a
// hash balancer routes each message by its Key, which keeps per-aggregate
// ordering within a partition.
type KafkaBus struct {
	brokers []string
	writer  *kafka.Writer

	mu     sync.Mutex
	closed bool
}

// NewKafkaBus creates a KafkaBus connected to the given brokers.
func NewKafkaBus(brokers []string) *KafkaBus {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchSize:    100,
	}

	return &KafkaBus{
		brokers: brokers,
		writer:  writer,
	}
}

// Publish writes the messages and returns only after the broker acknowledged
// them. Any broker error is reported as ErrBusUnavailable so callers treat it
// as transient.
func (b *KafkaBus) Publish(ctx context.Context, msgs ...Message) error {
	if len(msgs) == 0 {
		return nil
	}

	kafkaMsgs := make([]kafka.Message, len(msgs))
	for i, msg := range msgs {
		kafkaMsgs[i] = kafka.Message{
			Topic: msg.Topic,
			Key:   []byte(msg.Key),
			Value: msg.Value,
			Headers: []kafka.Header{
				{Key: eventIDHeader, Value: []byte(msg.ID.String())},
			},
		}
	}

	if err := b.writer.WriteMessages(ctx, kafkaMsgs...); err != nil {
		return apperrors.Wrap(ErrBusUnavailable, err.Error())
	}
	return nil
}

// Subscribe opens a reader bound to topic for the given consumer group.
func (b *KafkaBus) Subscribe(topic, group string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("kafka bus is closed")
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: b.brokers,
		Topic:   topic,
		GroupID: group,
	})

	return &kafkaSubscription{reader: reader, topic: topic}, nil
}

// Close closes the writer. Open subscriptions are closed independently.
func (b *KafkaBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	return b.writer.Close()
}

// kafkaSubscription wraps a kafka.Reader with explicit fetch/commit so the
// offset advances only after the guard and the effect both succeeded.
type kafkaSubscription struct {
	reader *kafka.Reader
	topic  string
}

func (s *kafkaSubscription) Fetch(ctx context.Context) (*Delivery, error) {
	kafkaMsg, err := s.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}

	msg := Message{
		Topic: s.topic,
		Key:   string(kafkaMsg.Key),
		Value: kafkaMsg.Value,
	}
	for _, header := range kafkaMsg.Headers {
		if header.Key == eventIDHeader {
			if id, parseErr := uuid.Parse(string(header.Value)); parseErr == nil {
				msg.ID = id
			}
			break
		}
	}

	return &Delivery{Message: msg, raw: kafkaMsg}, nil
}

func (s *kafkaSubscription) Commit(ctx context.Context, d *Delivery) error {
	kafkaMsg, ok := d.raw.(kafka.Message)
	if !ok {
		return errors.New("delivery does not belong to this subscription")
	}
	return s.reader.CommitMessages(ctx, kafkaMsg)
}

func (s *kafkaSubscription) Close() error {
	return s.reader.Close()
}
