// Package pricing combines subtotal, discount and tax into the amount
// payable. Every input is already rounded to the minor unit by its producer;
// the totalizer performs exact integer arithmetic and introduces no rounding
// of its own.
package pricing

import (
	"errors"

	"github.com/dosahub/backend-pos/internal/money"
	"github.com/dosahub/backend-pos/internal/tax"
)

// ErrNegativeTotal indicates a discount that exceeds the subtotal reached the
// totalizer. The coupon resolver clamps flat discounts, so this is a caller
// bug rather than a recoverable condition.
var ErrNegativeTotal = errors.New("pricing: total would be negative")

// Summary aggregates the computed pricing components for one cart.
type Summary struct {
	Subtotal money.Money
	Discount money.Money
	TaxTotal money.Money
	Total    money.Money
}

// Total computes subtotal - discount + taxTotal. The result is asserted, not
// clamped, to be non-negative.
func Total(subtotal, discount, taxTotal money.Money) (money.Money, error) {
	total := subtotal - discount + taxTotal
	if total < 0 {
		return 0, ErrNegativeTotal
	}
	return total, nil
}

// Summarize builds the full summary for a priced cart.
func Summarize(subtotal, discount money.Money, taxes tax.Breakdown) (Summary, error) {
	total, err := Total(subtotal, discount, taxes.Total)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		Subtotal: subtotal,
		Discount: discount,
		TaxTotal: taxes.Total,
		Total:    total,
	}, nil
}
