// Package main provides the entry point for the application with CLI commands.
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/allisson/fulfillment/cmd/app/commands"
)

const version = "1.0.0"

func main() {
	cmd := &cli.Command{
		Name:    "app",
		Usage:   "Order fulfillment platform",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "server",
				Usage: "Start the HTTP API server",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunServer(ctx, version)
				},
			},
			{
				Name:  "worker",
				Usage: "Start the event consumer worker pools",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunWorker(ctx, version)
				},
			},
			{
				Name:  "relay",
				Usage: "Start the outbox relay",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunRelay(ctx, version)
				},
			},
			{
				Name:  "sweep",
				Usage: "Start the saga reconciliation sweep",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunSweep(ctx, version)
				},
			},
			{
				Name:  "migrate",
				Usage: "Run database migrations",
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunMigrations()
				},
			},
			{
				Name:  "create-ledger-entry",
				Usage: "Provision a stock ledger entry for a SKU",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "sku",
						Aliases:  []string{"s"},
						Required: true,
						Usage:    "SKU code (e.g., SKU-BLUE-SHIRT-M)",
					},
					&cli.IntFlag{
						Name:     "quantity",
						Aliases:  []string{"q"},
						Required: true,
						Usage:    "Initial on-hand quantity",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return commands.RunCreateLedgerEntry(ctx, cmd.String("sku"), cmd.Int("quantity"))
				},
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.Any("error", err))
		os.Exit(1)
	}
}
