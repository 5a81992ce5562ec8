package dto

import (
	"time"
)

// LockStockResponse represents the API response for a successful lock
type LockStockResponse struct {
	OrderID string `json:"order_id"`
	Locked  bool   `json:"locked"`
}

// ReleaseStockResponse represents the API response for a release request
type ReleaseStockResponse struct {
	OrderID  string `json:"order_id"`
	Released bool   `json:"released"`
}

// StockLedgerEntryResponse represents the API response for a ledger lookup
type StockLedgerEntryResponse struct {
	SkuCode          string    `json:"sku_code"`
	Quantity         int64     `json:"quantity"`
	ReservedQuantity int64     `json:"reserved_quantity"`
	AvailableStock   int64     `json:"available_stock"`
	UpdatedAt        time.Time `json:"updated_at"`
}
