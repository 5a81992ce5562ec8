package dto

import (
	"github.com/allisson/fulfillment/internal/inventory/domain"
	"github.com/allisson/fulfillment/internal/inventory/usecase"
)

// ToOrderItems converts lock request items to use case order items
func ToOrderItems(items []LockStockItem) []usecase.OrderItem {
	out := make([]usecase.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, usecase.OrderItem{
			SkuCode:  item.SkuCode,
			Quantity: item.Quantity,
		})
	}
	return out
}

// ToStockLedgerEntryResponse converts a domain ledger entry to its API representation
func ToStockLedgerEntryResponse(entry *domain.StockLedgerEntry) StockLedgerEntryResponse {
	return StockLedgerEntryResponse{
		SkuCode:          entry.SkuCode,
		Quantity:         entry.Quantity,
		ReservedQuantity: entry.ReservedQuantity,
		AvailableStock:   entry.AvailableStock(),
		UpdatedAt:        entry.UpdatedAt,
	}
}
