// Package dto contains request and response payloads for order endpoints.
package dto

import (
	validation "github.com/jellydator/validation"

	"github.com/allisson/fulfillment/internal/order/usecase"

	appValidation "github.com/allisson/fulfillment/internal/validation"
)

// CheckoutItemRequest is one order line of a checkout request.
type CheckoutItemRequest struct {
	SkuCode  string `json:"sku_code"`
	Quantity int64  `json:"quantity"`
}

// CheckoutRequest represents the request body for checkout.
type CheckoutRequest struct {
	Items    []CheckoutItemRequest `json:"items"`
	Amount   int64                 `json:"amount"`
	Currency string                `json:"currency"`
}

// Validate validates the checkout request.
func (r CheckoutRequest) Validate() error {
	err := validation.ValidateStruct(&r,
		validation.Field(&r.Items,
			validation.Required.Error("items is required"),
			validation.Length(1, 100).Error("items must contain between 1 and 100 lines"),
		),
		validation.Field(&r.Amount,
			validation.Required.Error("amount is required"),
			validation.Min(1).Error("amount must be at least 1"),
		),
		validation.Field(&r.Currency,
			validation.Required.Error("currency is required"),
			appValidation.Currency,
		),
	)
	return appValidation.WrapValidationError(err)
}

// ToCheckoutInput converts the request to a usecase input.
func (r CheckoutRequest) ToCheckoutInput() usecase.CheckoutInput {
	items := make([]usecase.CheckoutItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, usecase.CheckoutItem{
			SkuCode:  item.SkuCode,
			Quantity: item.Quantity,
		})
	}
	return usecase.CheckoutInput{
		Items:    items,
		Amount:   r.Amount,
		Currency: r.Currency,
	}
}
