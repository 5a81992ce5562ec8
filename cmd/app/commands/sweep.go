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

// RunSweep starts the saga reconciliation sweep that re-drives stuck
// cancellation sagas until both compensations complete. Blocks until
// receiving SIGINT/SIGTERM.
func RunSweep(ctx context.Context, version string) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)

	logger := container.Logger()
	logger.Info("starting saga sweep",
		slog.String("version", version),
		slog.Duration("interval", cfg.SagaSweepInterval),
		slog.Duration("cutoff", cfg.SagaSweepCutoff),
	)

	defer closeContainer(container, logger)

	sweeper, err := container.Sweeper()
	if err != nil {
		return fmt.Errorf("failed to initialize sweeper: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := sweeper.Start(ctx); err != nil {
		return fmt.Errorf("sweeper error: %w", err)
	}

	logger.Info("sweep stopped")
	return nil
}
