package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ConsumerMetrics defines the interface for recording event consumer metrics.
// Tracks handled messages, handler durations and dead-lettered payloads per
// topic and consumer group.
type ConsumerMetrics interface {
	// RecordMessage records one handled delivery.
	// Status examples: "success", "error", "duplicate", "dead_lettered"
	RecordMessage(ctx context.Context, topic, group, status string)

	// RecordHandlerDuration records the time spent applying one delivery.
	RecordHandlerDuration(ctx context.Context, topic, group string, duration time.Duration)
}

type consumerMetrics struct {
	messageCounter metric.Int64Counter
	durationHisto  metric.Float64Histogram
}

// NewConsumerMetrics creates a ConsumerMetrics implementation using the
// provided meter provider. The namespace prefixes all metric names.
func NewConsumerMetrics(meterProvider metric.MeterProvider, namespace string) (ConsumerMetrics, error) {
	meter := meterProvider.Meter(namespace)

	messageCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_consumer_messages_total", namespace),
		metric.WithDescription("Total number of consumed messages"),
		metric.WithUnit("{message}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create message counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_consumer_handler_duration_seconds", namespace),
		metric.WithDescription("Duration of message handlers in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create handler duration histogram: %w", err)
	}

	return &consumerMetrics{
		messageCounter: messageCounter,
		durationHisto:  durationHisto,
	}, nil
}

// RecordMessage increments the message counter with topic, group and status labels.
func (c *consumerMetrics) RecordMessage(ctx context.Context, topic, group, status string) {
	c.messageCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("group", group),
			attribute.String("status", status),
		),
	)
}

// RecordHandlerDuration records the handler duration with topic and group labels.
func (c *consumerMetrics) RecordHandlerDuration(ctx context.Context, topic, group string, duration time.Duration) {
	c.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("topic", topic),
			attribute.String("group", group),
		),
	)
}

// NoOpConsumerMetrics is a no-op implementation of ConsumerMetrics for when metrics are disabled.
type NoOpConsumerMetrics struct{}

// NewNoOpConsumerMetrics creates a no-op ConsumerMetrics implementation.
func NewNoOpConsumerMetrics() ConsumerMetrics {
	return &NoOpConsumerMetrics{}
}

// RecordMessage does nothing when metrics are disabled.
func (n *NoOpConsumerMetrics) RecordMessage(ctx context.Context, topic, group, status string) {
	// No-op
}

// RecordHandlerDuration does nothing when metrics are disabled.
func (n *NoOpConsumerMetrics) RecordHandlerDuration(
	ctx context.Context,
	topic, group string,
	duration time.Duration,
) {
	// No-op
}
