// Package validation provides custom validation rules for the application.
package validation

import (
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/fulfillment/internal/errors"
)

var (
	// skuCodeRegex matches SKU codes: uppercase letters, digits, dashes and underscores.
	skuCodeRegex = regexp.MustCompile(`^[A-Z0-9][A-Z0-9_\-]{0,63}$`)
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// SkuCode validates a stock keeping unit code format
var SkuCode = validation.NewStringRuleWithError(
	func(s string) bool {
		return skuCodeRegex.MatchString(s)
	},
	validation.NewError("validation_sku_code", "must be a valid SKU code"),
)

// Currency validates a 3-letter ISO currency code
var Currency = validation.NewStringRuleWithError(
	func(s string) bool {
		if len(s) != 3 {
			return false
		}
		for _, r := range s {
			if r < 'A' || r > 'Z' {
				return false
			}
		}
		return true
	},
	validation.NewError("validation_currency", "must be a 3-letter ISO currency code"),
)
