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

// RunWorker starts the event consumer worker pools. Blocks until receiving
// SIGINT/SIGTERM; in-flight handlers finish their transactions before exit
// and uncommitted deliveries are redelivered on the next start.
func RunWorker(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting worker",
		slog.String("version", version),
		slog.String("consumer_group", cfg.BusConsumerGroup),
		slog.Int("workers_urgent", cfg.WorkersUrgent),
		slog.Int("workers_transactional", cfg.WorkersTransactional),
		slog.Int("workers_bulk", cfg.WorkersBulk),
	)

	defer closeContainer(container, logger)

	consumer, err := container.Consumer()
	if err != nil {
		return fmt.Errorf("failed to initialize consumer: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := consumer.Start(ctx); err != nil {
		return fmt.Errorf("consumer error: %w", err)
	}

	logger.Info("worker stopped")
	return nil
}
