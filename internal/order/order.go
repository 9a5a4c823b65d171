// Package order freezes a priced cart into an immutable finalized order and
// hands it to caller-supplied sinks. Printing and persistence live behind the
// Sink interface so device failures stay outside the pricing logic.
package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dosahub/backend-pos/internal/cart"
	"github.com/dosahub/backend-pos/internal/money"
	"github.com/dosahub/backend-pos/internal/pricing"
	"github.com/dosahub/backend-pos/internal/tax"
)

var (
	// ErrEmptyCart is returned when finalize is attempted with no lines.
	ErrEmptyCart = errors.New("order: cart has no items")
	// ErrInvalidPayment is returned for an unrecognized payment method.
	ErrInvalidPayment = errors.New("order: invalid payment method")
)

// Payment methods accepted at the register.
const (
	PaymentCash = "cash"
	PaymentCard = "card"
	PaymentUPI  = "upi"
)

// ParsePaymentMethod normalizes and validates the payment method.
func ParsePaymentMethod(value string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case PaymentCash:
		return PaymentCash, nil
	case PaymentCard:
		return PaymentCard, nil
	case PaymentUPI:
		return PaymentUPI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPayment, value)
	}
}

// FinalizedOrder is the immutable record produced by one checkout. The cart
// it was built from is cleared afterwards; a new checkout starts a new cart.
type FinalizedOrder struct {
	Number        string
	Lines         []cart.Line
	Subtotal      money.Money
	Discount      money.Money
	CouponCode    string
	TaxLines      []tax.Line
	TaxTotal      money.Money
	Total         money.Money
	PaymentMethod string
	PlacedAt      time.Time
}

// NewNumber generates an order number such as ORD-20260831-3F2A9C1B.
func NewNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), suffix)
}

// Finalize freezes the cart into a FinalizedOrder. It requires at least one
// line and a valid payment method; the cart itself is left untouched so the
// caller can correct and retry on error.
func Finalize(c *cart.Cart, taxes tax.Breakdown, sum pricing.Summary, paymentMethod string, now time.Time) (FinalizedOrder, error) {
	if c == nil || c.Len() == 0 {
		return FinalizedOrder{}, ErrEmptyCart
	}
	method, err := ParsePaymentMethod(paymentMethod)
	if err != nil {
		return FinalizedOrder{}, err
	}
	couponCode := ""
	if applied, ok := c.AppliedCoupon(); ok {
		couponCode = applied.Coupon.Code
	}
	taxLines := make([]tax.Line, len(taxes.Lines))
	copy(taxLines, taxes.Lines)
	return FinalizedOrder{
		Number:        NewNumber(now),
		Lines:         c.Lines(),
		Subtotal:      sum.Subtotal,
		Discount:      sum.Discount,
		CouponCode:    couponCode,
		TaxLines:      taxLines,
		TaxTotal:      sum.TaxTotal,
		Total:         sum.Total,
		PaymentMethod: method,
		PlacedAt:      now.UTC(),
	}, nil
}

// Sink receives a finalized order for an external side effect such as
// persistence or printing. A sink failure never retracts the order; the
// caller retries the sink call alone.
type Sink interface {
	Deliver(ctx context.Context, o FinalizedOrder) error
}
