// Package tax computes the tax owed on a priced cart under the configured
// policy. Rates are carried in basis points so 5% GST is 500 and each half of
// a 2.5% + 2.5% CGST/SGST split is 250.
package tax

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dosahub/backend-pos/internal/money"
)

// Base selects the amount tax percentages are computed on. The two screens of
// the original register disagreed on this, so it is an explicit deployment
// choice rather than a hard-coded rule.
type Base int

const (
	// PreDiscount taxes the subtotal before any coupon discount.
	PreDiscount Base = iota
	// PostDiscount taxes the subtotal after the coupon discount.
	PostDiscount
)

// ParseBase converts the configured base selection.
func ParseBase(value string) (Base, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "pre", "pre-discount", "pre_discount", "prediscount":
		return PreDiscount, nil
	case "post", "post-discount", "post_discount", "postdiscount":
		return PostDiscount, nil
	default:
		return 0, fmt.Errorf("tax: unknown base %q", value)
	}
}

// Component is one named rate within a policy.
type Component struct {
	Name    string
	RateBps int64
}

// Policy is either a single rate applied once or a split pair applied
// independently to the same base, never compounded.
type Policy struct {
	Components []Component
}

// Single builds a one-line policy such as 5% GST.
func Single(name string, rateBps int64) Policy {
	return Policy{Components: []Component{{Name: name, RateBps: rateBps}}}
}

// Split builds the two-line CGST/SGST style policy.
func Split(name1 string, rate1 int64, name2 string, rate2 int64) Policy {
	return Policy{Components: []Component{
		{Name: name1, RateBps: rate1},
		{Name: name2, RateBps: rate2},
	}}
}

// FromConfig assembles a policy from deployment configuration. Mode "single"
// expects one rate, "split" expects two.
func FromConfig(mode string, names []string, ratesBps []int64) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "single":
		if len(ratesBps) != 1 {
			return Policy{}, fmt.Errorf("tax: single mode expects 1 rate, got %d", len(ratesBps))
		}
		name := "GST"
		if len(names) > 0 && names[0] != "" {
			name = names[0]
		}
		return Single(name, ratesBps[0]), nil
	case "split":
		if len(ratesBps) != 2 {
			return Policy{}, fmt.Errorf("tax: split mode expects 2 rates, got %d", len(ratesBps))
		}
		n1, n2 := "CGST", "SGST"
		if len(names) > 1 {
			if names[0] != "" {
				n1 = names[0]
			}
			if names[1] != "" {
				n2 = names[1]
			}
		}
		return Split(n1, ratesBps[0], n2, ratesBps[1]), nil
	default:
		return Policy{}, fmt.Errorf("tax: unknown mode %q", mode)
	}
}

// Validate reports whether the policy is usable.
func (p Policy) Validate() error {
	if len(p.Components) == 0 {
		return errors.New("tax: policy has no components")
	}
	for _, c := range p.Components {
		if c.RateBps < 0 {
			return fmt.Errorf("tax: negative rate for %s", c.Name)
		}
	}
	return nil
}

// Line is one itemized tax amount on a receipt.
type Line struct {
	Name    string
	RateBps int64
	Amount  money.Money
}

// Breakdown lists the itemized tax lines plus the total for convenience.
// Receipts show the lines; the totalizer consumes the scalar.
type Breakdown struct {
	Lines []Line
	Total money.Money
}

// Compute prices every component of the policy against the same taxable
// base, rounding each line half-up to the minor unit independently.
func Compute(base money.Money, policy Policy) Breakdown {
	if base < 0 {
		base = 0
	}
	out := Breakdown{Lines: make([]Line, 0, len(policy.Components))}
	for _, c := range policy.Components {
		amount := money.ApplyBps(base, c.RateBps)
		out.Lines = append(out.Lines, Line{Name: c.Name, RateBps: c.RateBps, Amount: amount})
		out.Total += amount
	}
	return out
}
