package order

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dosahub/backend-pos/internal/cart"
	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/pricing"
	"github.com/dosahub/backend-pos/internal/tax"
)

func pricedCart(t *testing.T) (*cart.Cart, tax.Breakdown, pricing.Summary) {
	t.Helper()
	c := cart.New()
	c.AddItem("dosa", "Masala Dosa", 9000)
	c.AddItem("coffee", "Coffee", 2500)
	c.AddItem("coffee", "Coffee", 2500)
	c.AttachCoupon(coupon.Applied{Coupon: coupon.Coupon{Code: "TEA5", Kind: coupon.Flat, Value: 500}, Discount: 500})

	taxes := tax.Compute(13500, tax.Single("GST", 500))
	sum, err := pricing.Summarize(c.Subtotal(), 500, taxes)
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	return c, taxes, sum
}

func TestFinalize(t *testing.T) {
	c, taxes, sum := pricedCart(t)
	now := time.Date(2026, 8, 31, 12, 30, 0, 0, time.UTC)

	o, err := Finalize(c, taxes, sum, "UPI", now)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if !strings.HasPrefix(o.Number, "ORD-20260831-") {
		t.Fatalf("unexpected order number %q", o.Number)
	}
	if o.Total != 14175 {
		t.Fatalf("expected total 14175, got %d", o.Total)
	}
	if o.Subtotal-o.Discount+o.TaxTotal != o.Total {
		t.Fatal("finalized components must reconcile exactly")
	}
	if o.CouponCode != "TEA5" {
		t.Fatalf("expected coupon code on record, got %q", o.CouponCode)
	}
	if o.PaymentMethod != PaymentUPI {
		t.Fatalf("expected normalized payment method, got %q", o.PaymentMethod)
	}
	if len(o.Lines) != 2 || len(o.TaxLines) != 1 {
		t.Fatalf("expected 2 lines and 1 tax line, got %d/%d", len(o.Lines), len(o.TaxLines))
	}
	if !o.PlacedAt.Equal(now) {
		t.Fatalf("expected timestamp %v, got %v", now, o.PlacedAt)
	}
}

func TestFinalizeEmptyCart(t *testing.T) {
	if _, err := Finalize(cart.New(), tax.Breakdown{}, pricing.Summary{}, "cash", time.Now()); !errors.Is(err, ErrEmptyCart) {
		t.Fatalf("expected ErrEmptyCart, got %v", err)
	}
}

func TestFinalizeInvalidPaymentLeavesCartUsable(t *testing.T) {
	c, taxes, sum := pricedCart(t)
	if _, err := Finalize(c, taxes, sum, "barter", time.Now()); !errors.Is(err, ErrInvalidPayment) {
		t.Fatalf("expected ErrInvalidPayment, got %v", err)
	}
	if c.Len() != 2 {
		t.Fatal("failed finalize must not mutate the cart")
	}
}

func TestFinalizedOrderIsDetachedFromCart(t *testing.T) {
	c, taxes, sum := pricedCart(t)
	o, err := Finalize(c, taxes, sum, "cash", time.Now())
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	c.Clear()
	if len(o.Lines) != 2 {
		t.Fatal("clearing the cart must not touch the finalized record")
	}
}

func TestNewNumberUnique(t *testing.T) {
	now := time.Now()
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		n := NewNumber(now)
		if seen[n] {
			t.Fatalf("duplicate order number %s", n)
		}
		seen[n] = true
	}
}

func TestParsePaymentMethod(t *testing.T) {
	for in, want := range map[string]string{" Cash ": PaymentCash, "CARD": PaymentCard, "upi": PaymentUPI} {
		got, err := ParsePaymentMethod(in)
		if err != nil {
			t.Fatalf("ParsePaymentMethod(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParsePaymentMethod(%q) = %q, want %q", in, got, want)
		}
	}
}
