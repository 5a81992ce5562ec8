package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// assertBizMetricLine checks that the Prometheus output contains a business metric
// matching the given name, partial label pattern, and value. Uses regex to handle
// extra OTel scope labels injected by the Prometheus exporter.
func assertBizMetricLine(t *testing.T, output, name, labels, value string) {
	t.Helper()
	pattern := name + `\{[^}]*` + labels + `[^}]*\} ` + value
	assert.Regexp(t, pattern, output)
}

func TestNewBusinessMetrics(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	businessMetrics, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")

	require.NoError(t, err)
	assert.NotNil(t, businessMetrics)
}

func TestBusinessMetrics_RecordOperation(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulOperation", func(t *testing.T) {
		bm.RecordOperation(context.Background(), "inventory", "lock_stock", "success")
	})

	t.Run("Success_RecordFailedOperation", func(t *testing.T) {
		bm.RecordOperation(context.Background(), "inventory", "lock_stock", "error")
	})

	t.Run("Success_RecordMultipleDomains", func(t *testing.T) {
		bm.RecordOperation(context.Background(), "inventory", "release_stock", "success")
		bm.RecordOperation(context.Background(), "payment", "refund", "success")
		bm.RecordOperation(context.Background(), "saga", "compensate", "error")
	})
}

func TestBusinessMetrics_RecordDuration(t *testing.T) {
	provider, err := NewProvider("test_app")
	require.NoError(t, err)

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "test_app")
	require.NoError(t, err)

	t.Run("Success_RecordSuccessfulDuration", func(t *testing.T) {
		bm.RecordDuration(context.Background(), "inventory", "lock_stock", 123*time.Millisecond, "success")
	})

	t.Run("Success_RecordFailedDuration", func(t *testing.T) {
		bm.RecordDuration(context.Background(), "payment", "refund", 456*time.Millisecond, "error")
	})
}

func TestNewNoOpBusinessMetrics(t *testing.T) {
	noOpMetrics := NewNoOpBusinessMetrics()

	assert.NotNil(t, noOpMetrics)
	assert.IsType(t, &NoOpBusinessMetrics{}, noOpMetrics)

	t.Run("NoOp_RecordOperationDoesNotPanic", func(t *testing.T) {
		noOpMetrics.RecordOperation(context.Background(), "inventory", "lock_stock", "success")
	})

	t.Run("NoOp_RecordDurationDoesNotPanic", func(t *testing.T) {
		noOpMetrics.RecordDuration(context.Background(), "payment", "refund", 100*time.Millisecond, "success")
	})
}

func TestBusinessMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("integration_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	bm, err := NewBusinessMetrics(provider.MeterProvider(), "integration_test")
	require.NoError(t, err)

	ctx := context.Background()

	bm.RecordOperation(ctx, "inventory", "lock_stock", "success")
	bm.RecordOperation(ctx, "inventory", "lock_stock", "success")
	bm.RecordOperation(ctx, "inventory", "lock_stock", "error")
	bm.RecordOperation(ctx, "payment", "refund", "success")

	bm.RecordDuration(ctx, "inventory", "lock_stock", 50*time.Millisecond, "success")
	bm.RecordDuration(ctx, "inventory", "lock_stock", 60*time.Millisecond, "success")
	bm.RecordDuration(ctx, "payment", "refund", 20*time.Millisecond, "success")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()

	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="inventory".*operation="lock_stock".*status="success"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operations_total`,
		`domain="inventory".*operation="lock_stock".*status="error"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`integration_test_operation_duration_seconds_count`,
		`domain="inventory".*operation="lock_stock".*status="success"`,
		`2`,
	)
}

func TestConsumerMetrics_Integration(t *testing.T) {
	provider, err := NewProvider("consumer_test")
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, provider.Shutdown(context.Background()))
	}()

	cm, err := NewConsumerMetrics(provider.MeterProvider(), "consumer_test")
	require.NoError(t, err)

	ctx := context.Background()

	cm.RecordMessage(ctx, "order-cancel", "fulfillment", "success")
	cm.RecordMessage(ctx, "order-cancel", "fulfillment", "success")
	cm.RecordMessage(ctx, "order-cancel", "fulfillment", "dead_lettered")
	cm.RecordHandlerDuration(ctx, "order-cancel", "fulfillment", 30*time.Millisecond)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	provider.Handler().ServeHTTP(w, req)

	output := w.Body.String()

	assertBizMetricLine(
		t,
		output,
		`consumer_test_consumer_messages_total`,
		`group="fulfillment".*status="success".*topic="order-cancel"`,
		`2`,
	)
	assertBizMetricLine(
		t,
		output,
		`consumer_test_consumer_messages_total`,
		`group="fulfillment".*status="dead_lettered".*topic="order-cancel"`,
		`1`,
	)
	assertBizMetricLine(
		t,
		output,
		`consumer_test_consumer_handler_duration_seconds_count`,
		`group="fulfillment".*topic="order-cancel"`,
		`1`,
	)
}
