// Package dto provides data transfer objects for the inventory HTTP layer.
package dto

import (
	validation "github.com/jellydator/validation"

	appValidation "github.com/allisson/fulfillment/internal/validation"
)

// LockStockItem is one order line in a lock request
type LockStockItem struct {
	SkuCode  string `json:"sku_code"`
	Quantity int64  `json:"quantity"`
}

// Validate validates a single lock item
func (i LockStockItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.SkuCode,
			validation.Required.Error("sku_code is required"),
			appValidation.SkuCode,
		),
		validation.Field(&i.Quantity,
			validation.Required.Error("quantity is required"),
			validation.Min(1).Error("quantity must be at least 1"),
		),
	)
}

// LockStockRequest represents the API request for locking stock
type LockStockRequest struct {
	OrderID string          `json:"order_id"`
	Items   []LockStockItem `json:"items"`
}

// Validate validates the LockStockRequest
func (r *LockStockRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.OrderID,
			validation.Required.Error("order_id is required"),
			appValidation.NotBlank,
		),
		validation.Field(&r.Items,
			validation.Required.Error("items is required"),
			validation.Length(1, 100).Error("items must contain between 1 and 100 entries"),
		),
	)
	return appValidation.WrapValidationError(err)
}

// ReleaseStockRequest represents the API request for releasing an order's stock
type ReleaseStockRequest struct {
	OrderID string `json:"order_id"`
}

// Validate validates the ReleaseStockRequest
func (r *ReleaseStockRequest) Validate() error {
	err := validation.ValidateStruct(r,
		validation.Field(&r.OrderID,
			validation.Required.Error("order_id is required"),
			appValidation.NotBlank,
		),
	)
	return appValidation.WrapValidationError(err)
}
