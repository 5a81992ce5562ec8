package commands

import (
	"context"
	"fmt"

	"github.com/allisson/fulfillment/internal/app"
	"github.com/allisson/fulfillment/internal/config"

	inventoryUsecase "github.com/allisson/fulfillment/internal/inventory/usecase"
)

// RunCreateLedgerEntry provisions a stock ledger entry for a SKU. Normally
// entries arrive through product-created events; this command covers
// bootstrapping and manual stock corrections.
func RunCreateLedgerEntry(ctx context.Context, skuCode string, quantity int64) error {
	cfg := config.Load()

	container := app.NewContainer(cfg)
	logger := container.Logger()

	defer closeContainer(container, logger)

	inventoryUseCase, err := container.InventoryUseCase()
	if err != nil {
		return fmt.Errorf("failed to initialize inventory use case: %w", err)
	}

	entry, err := inventoryUseCase.CreateLedgerEntry(ctx, inventoryUsecase.CreateLedgerEntryInput{
		SkuCode:  skuCode,
		Quantity: quantity,
	})
	if err != nil {
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	fmt.Printf("Ledger entry created\n")
	fmt.Printf("  ID:       %s\n", entry.ID)
	fmt.Printf("  SKU:      %s\n", entry.SkuCode)
	fmt.Printf("  Quantity: %d\n", entry.Quantity)
	return nil
}
