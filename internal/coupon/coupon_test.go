package coupon

import (
	"context"
	"errors"
	"testing"
)

type stubCatalog struct {
	coupons map[string]Coupon
}

func (s *stubCatalog) Lookup(_ context.Context, code string) (Coupon, error) {
	c, ok := s.coupons[code]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func demoCatalog() *stubCatalog {
	return &stubCatalog{coupons: map[string]Coupon{
		"TEA5":    {Code: "TEA5", Kind: Flat, Value: 500},
		"FLAT50":  {Code: "FLAT50", Kind: Flat, Value: 5000},
		"SAVE10":  {Code: "SAVE10", Kind: Percentage, Value: 1000},
		"SAVE100": {Code: "SAVE100", Kind: Flat, Value: 10000, MinOrderAmount: 20000},
	}}
}

func TestResolveFlat(t *testing.T) {
	applied, err := Resolve(context.Background(), "TEA5", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if applied.Discount != 500 {
		t.Fatalf("expected 500 discount, got %d", applied.Discount)
	}
}

func TestResolvePercentageRoundsHalfUp(t *testing.T) {
	applied, err := Resolve(context.Background(), "SAVE10", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if applied.Discount != 1400 {
		t.Fatalf("expected 1400 discount, got %d", applied.Discount)
	}
}

func TestResolveCaseInsensitive(t *testing.T) {
	applied, err := Resolve(context.Background(), "  save10 ", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if applied.Coupon.Code != "SAVE10" {
		t.Fatalf("expected SAVE10, got %s", applied.Coupon.Code)
	}
}

func TestResolveNotFound(t *testing.T) {
	_, err := Resolve(context.Background(), "NOPE", 14000, demoCatalog())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveBelowMinimum(t *testing.T) {
	_, err := Resolve(context.Background(), "SAVE100", 14000, demoCatalog())
	if !errors.Is(err, ErrBelowMinimum) {
		t.Fatalf("expected ErrBelowMinimum, got %v", err)
	}
}

func TestFlatDiscountClampsToSubtotal(t *testing.T) {
	applied, err := Resolve(context.Background(), "FLAT50", 3000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if applied.Discount != 3000 {
		t.Fatalf("flat discount should clamp to subtotal, got %d", applied.Discount)
	}
}

func TestResolveIdempotentForSameSubtotal(t *testing.T) {
	first, err := Resolve(context.Background(), "SAVE10", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	second, err := Resolve(context.Background(), "SAVE10", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if first.Discount != second.Discount {
		t.Fatalf("re-resolving with unchanged subtotal must not change the discount: %d vs %d", first.Discount, second.Discount)
	}
}

func TestResolveRecomputesAfterSubtotalChange(t *testing.T) {
	before, err := Resolve(context.Background(), "SAVE10", 14000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	after, err := Resolve(context.Background(), "SAVE10", 19000, demoCatalog())
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if before.Discount == after.Discount {
		t.Fatal("discount snapshot should track the new subtotal")
	}
	if after.Discount != 1900 {
		t.Fatalf("expected 1900, got %d", after.Discount)
	}
}

func TestParseKind(t *testing.T) {
	cases := map[string]Kind{"flat": Flat, "fixed": Flat, "percentage": Percentage, "Percent": Percentage}
	for in, want := range cases {
		got, err := ParseKind(in)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseKind(%q) = %v, want %v", in, got, want)
		}
	}
	if _, err := ParseKind("bogo"); err == nil {
		t.Fatal("expected error for unknown kind")
	}
}
