package eventbus

import (
	"context"
	"errors"
	"sync"
)

// memoryBufferSize bounds each subscription's pending queue.
const memoryBufferSize = 1024

// MemoryBus is an in-process Bus used by tests and single-process development.
// Each (topic, group) pair gets one FIFO queue, so per-key ordering holds
// trivially: all keys of a topic share the queue.
type MemoryBus struct {
	mu     sync.Mutex
	subs   map[string]map[string]*memorySubscription // topic -> group -> subscription
	closed bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[string]*memorySubscription),
	}
}

// Publish delivers each message to every group subscribed to its topic.
// Messages published to a topic with no subscribers are dropped, matching a
// broker with no consumer group offsets to retain for.
func (b *MemoryBus) Publish(ctx context.Context, msgs ...Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return ErrBusUnavailable
	}

	for _, msg := range msgs {
		for _, sub := range b.subs[msg.Topic] {
			select {
			case sub.queue <- msg:
			default:
				return ErrBusUnavailable
			}
		}
	}
	return nil
}

// Subscribe creates (or returns the existing) subscription for the group on
// the topic.
func (b *MemoryBus) Subscribe(topic, group string) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, errors.New("memory bus is closed")
	}

	groups, ok := b.subs[topic]
	if !ok {
		groups = make(map[string]*memorySubscription)
		b.subs[topic] = groups
	}

	if sub, ok := groups[group]; ok {
		return sub, nil
	}

	sub := &memorySubscription{
		queue: make(chan Message, memoryBufferSize),
	}
	groups[group] = sub
	return sub, nil
}

// Close marks the bus closed; later publishes fail.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

type memorySubscription struct {
	queue chan Message
}

func (s *memorySubscription) Fetch(ctx context.Context) (*Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-s.queue:
		return &Delivery{Message: msg}, nil
	}
}

// Commit is a no-op: the in-memory queue already removed the message on fetch.
func (s *memorySubscription) Commit(ctx context.Context, d *Delivery) error {
	return nil
}

func (s *memorySubscription) Close() error {
	return nil
}
