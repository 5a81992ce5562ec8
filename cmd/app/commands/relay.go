package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/allisson/fulfillment/internal/app"
	"github.com/allisson/fulfillment/internal/config"
)

// RunRelay starts the outbox relay that publishes committed events to the
// event bus. Safe to run with multiple replicas; pending rows are selected
// with row locks. Blocks until receiving SIGINT/SIGTERM.
func RunRelay(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting outbox relay",
		slog.String("version", version),
		slog.Duration("interval", cfg.OutboxRelayInterval),
		slog.Int("batch_size", cfg.OutboxRelayBatchSize),
	)

	defer closeContainer(container, logger)

	relay, err := container.Relay()
	if err != nil {
		return fmt.Errorf("failed to initialize relay: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := relay.Start(ctx); err != nil {
		return fmt.Errorf("relay error: %w", err)
	}

	logger.Info("relay stopped")
	return nil
}
