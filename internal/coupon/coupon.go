// Package coupon resolves discount codes against the coupon catalog and
// prices them for the current cart subtotal.
package coupon

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dosahub/backend-pos/internal/money"
)

var (
	// ErrNotFound is returned when the code does not match any catalog entry.
	ErrNotFound = errors.New("coupon not found")
	// ErrBelowMinimum is returned when the subtotal does not meet the
	// coupon's minimum order amount.
	ErrBelowMinimum = errors.New("coupon minimum order amount not met")
)

// Kind is the tagged discount variant of a coupon.
type Kind int

const (
	// Flat discounts a fixed amount, clamped to the subtotal.
	Flat Kind = iota
	// Percentage discounts a rate of the subtotal, rounded half-up.
	Percentage
)

func (k Kind) String() string {
	switch k {
	case Flat:
		return "flat"
	case Percentage:
		return "percentage"
	default:
		return "unknown"
	}
}

// ParseKind converts the catalog wire value into a Kind.
func ParseKind(value string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "flat", "fixed":
		return Flat, nil
	case "percentage", "percent":
		return Percentage, nil
	default:
		return 0, fmt.Errorf("unknown coupon kind %q", value)
	}
}

// Coupon is one immutable catalog entry. Value holds minor units for Flat
// coupons and basis points for Percentage coupons.
type Coupon struct {
	Code           string
	Kind           Kind
	Value          int64
	MinOrderAmount money.Money
	Categories     []string
	Description    string
}

// Applied is the discount snapshot for a coupon priced against one specific
// subtotal. It becomes stale the moment the subtotal changes and must be
// re-resolved before totalizing.
type Applied struct {
	Coupon   Coupon
	Discount money.Money
}

// Catalog is the external read-only coupon source.
type Catalog interface {
	// Lookup returns the coupon for the code, matching case-insensitively.
	Lookup(ctx context.Context, code string) (Coupon, error)
}

// Normalize canonicalizes a coupon code for case-insensitive matching.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Resolve validates the code against the catalog and prices it for the
// provided subtotal. A successful resolution replaces any previously applied
// coupon; callers keep their prior state when an error is returned.
func Resolve(ctx context.Context, code string, subtotal money.Money, catalog Catalog) (Applied, error) {
	if catalog == nil {
		return Applied{}, errors.New("coupon: catalog not configured")
	}
	c, err := catalog.Lookup(ctx, Normalize(code))
	if err != nil {
		return Applied{}, err
	}
	if subtotal < c.MinOrderAmount {
		return Applied{}, fmt.Errorf("%w: requires %s", ErrBelowMinimum, money.Format(c.MinOrderAmount))
	}
	return Applied{Coupon: c, Discount: Discount(c, subtotal)}, nil
}

// Discount computes the discount amount for the coupon at the given subtotal.
// Flat coupons never exceed the subtotal so the payable total cannot go
// negative downstream.
func Discount(c Coupon, subtotal money.Money) money.Money {
	if subtotal <= 0 {
		return 0
	}
	switch c.Kind {
	case Percentage:
		return money.ApplyBps(subtotal, c.Value)
	default:
		if c.Value > subtotal {
			return subtotal
		}
		if c.Value < 0 {
			return 0
		}
		return c.Value
	}
}
