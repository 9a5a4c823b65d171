// Package money provides fixed-point currency arithmetic in minor units.
// Amounts are stored as integer paise so that pricing math stays exact and
// deterministic; formatting to rupees happens only at the display edge.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Money represents a monetary value stored in minor units (paise).
type Money = int64

// ErrInvalidAmount is returned when a major-unit string cannot be parsed.
var ErrInvalidAmount = errors.New("money: invalid amount")

// ApplyBps computes amount*bps/10000 rounded half-up to the nearest minor
// unit. Rates are carried in basis points so 2.5% is 250.
func ApplyBps(amount Money, bps int64) Money {
	if amount <= 0 || bps <= 0 {
		return 0
	}
	return (amount*bps + 5000) / 10000
}

// FromMajor parses a major-unit decimal string such as "90" or "140.50" into
// minor units. At most two fractional digits are accepted.
func FromMajor(value string) (Money, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0, ErrInvalidAmount
	}
	negative := false
	if strings.HasPrefix(trimmed, "-") {
		negative = true
		trimmed = trimmed[1:]
	}
	whole, frac, _ := strings.Cut(trimmed, ".")
	if whole == "" {
		whole = "0"
	}
	// ParseInt admits a sign, so digits are checked first: the sign is only
	// legal as the leading character of the whole string.
	if !digitsOnly(whole) || (frac != "" && !digitsOnly(frac)) {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	major, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	var minor int64
	switch len(frac) {
	case 0:
	case 1:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
		minor = d * 10
	case 2:
		d, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
		}
		minor = d
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, value)
	}
	total := major*100 + minor
	if negative {
		total = -total
	}
	return total, nil
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Format renders the amount in major units with a rupee sign, e.g. ₹141.75.
func Format(amount Money) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s₹%d.%02d", sign, amount/100, amount%100)
}
