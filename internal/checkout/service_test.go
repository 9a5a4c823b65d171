package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/events"
	"github.com/dosahub/backend-pos/internal/order"
	"github.com/dosahub/backend-pos/internal/printer"
	"github.com/dosahub/backend-pos/internal/tax"
)

type stubCatalog struct {
	coupons map[string]coupon.Coupon
	err     error
}

func (s stubCatalog) Lookup(_ context.Context, code string) (coupon.Coupon, error) {
	if s.err != nil {
		return coupon.Coupon{}, s.err
	}
	c, ok := s.coupons[code]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return c, nil
}

type stubSink struct {
	mu     sync.Mutex
	orders []order.FinalizedOrder
	err    error
}

func (s *stubSink) Deliver(_ context.Context, o order.FinalizedOrder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.orders = append(s.orders, o)
	return nil
}

type stubPrints struct {
	mu   sync.Mutex
	jobs []printer.Job
}

func (s *stubPrints) EnqueuePrint(_ context.Context, job printer.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, job)
	return nil
}

func testCatalog() stubCatalog {
	return stubCatalog{coupons: map[string]coupon.Coupon{
		"TEA5":    {Code: "TEA5", Kind: coupon.Flat, Value: 500},
		"SAVE10":  {Code: "SAVE10", Kind: coupon.Percentage, Value: 1000},
		"SAVE100": {Code: "SAVE100", Kind: coupon.Flat, Value: 10000, MinOrderAmount: 20000},
	}}
}

func newTestService(t *testing.T, policy tax.Policy, base tax.Base) (*Service, *stubSink, *stubPrints) {
	t.Helper()
	sink := &stubSink{}
	prints := &stubPrints{}
	svc := &Service{
		Sessions: NewSessionStore(time.Hour),
		Catalog:  testCatalog(),
		Policy:   policy,
		Base:     base,
		Orders:   sink,
		Prints:   prints,
		Logger:   zerolog.Nop(),
	}
	return svc, sink, prints
}

func TestFinalizeFlatCouponPostDiscountTax(t *testing.T) {
	svc, sink, prints := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, err := svc.Open(ctx)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := svc.AddItem(ctx, q.SessionID, "dosa", "Masala Dosa", 9000); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.AddItem(ctx, q.SessionID, "coffee", "Filter Coffee", 5000); err != nil {
		t.Fatalf("add item: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, q.SessionID, "tea5"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	o, err := svc.Finalize(ctx, q.SessionID, "UPI")
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if o.Subtotal != 14000 || o.Discount != 500 || o.TaxTotal != 675 || o.Total != 14175 {
		t.Fatalf("unexpected amounts: subtotal=%d discount=%d tax=%d total=%d", o.Subtotal, o.Discount, o.TaxTotal, o.Total)
	}
	if o.CouponCode != "TEA5" {
		t.Fatalf("coupon code = %q", o.CouponCode)
	}
	if o.PaymentMethod != order.PaymentUPI {
		t.Fatalf("payment method = %q", o.PaymentMethod)
	}
	if len(sink.orders) != 1 {
		t.Fatalf("sink received %d orders", len(sink.orders))
	}
	if len(prints.jobs) != 2 {
		t.Fatalf("expected receipt and kot jobs, got %d", len(prints.jobs))
	}
	kinds := map[string]bool{}
	for _, j := range prints.jobs {
		kinds[j.Kind] = true
		if j.OrderNumber != o.Number {
			t.Fatalf("print job for order %q, want %q", j.OrderNumber, o.Number)
		}
	}
	if !kinds[printer.KindReceipt] || !kinds[printer.KindKOT] {
		t.Fatalf("missing ticket kinds: %v", kinds)
	}

	after, err := svc.Quote(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("quote after finalize: %v", err)
	}
	if after.Subtotal != 0 || len(after.Lines) != 0 || after.Coupon != nil {
		t.Fatalf("cart not cleared after finalize: %+v", after)
	}
}

func TestQuotePercentageCoupon(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "thali", "Veg Thali", 14000)
	got, err := svc.ApplyCoupon(ctx, q.SessionID, "SAVE10")
	if err != nil {
		t.Fatalf("apply coupon: %v", err)
	}
	if got.Discount != 1400 || got.TaxTotal != 630 || got.Total != 13230 {
		t.Fatalf("unexpected quote: discount=%d tax=%d total=%d", got.Discount, got.TaxTotal, got.Total)
	}
	if got.Coupon == nil || got.Coupon.Code != "SAVE10" {
		t.Fatalf("quote coupon = %+v", got.Coupon)
	}
}

func TestQuoteSplitTaxPreDiscount(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Split("CGST 2.5%", 250, "SGST 2.5%", 250), tax.PreDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "biryani", "Veg Biryani", 20000)
	got, err := svc.Quote(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if len(got.TaxLines) != 2 {
		t.Fatalf("expected 2 tax lines, got %d", len(got.TaxLines))
	}
	if got.TaxLines[0].Amount != 500 || got.TaxLines[1].Amount != 500 {
		t.Fatalf("tax lines = %+v", got.TaxLines)
	}
	if got.TaxTotal != 1000 || got.Total != 21000 {
		t.Fatalf("tax=%d total=%d", got.TaxTotal, got.Total)
	}
}

func TestApplyCouponBelowMinimumKeepsQuote(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	var rejected []events.Event
	svc.Events = &events.Bus{Notifiers: []events.Notifier{
		events.NotifierFunc(func(_ context.Context, ev events.Event) error {
			if ev.Topic == events.TopicCouponRejected {
				rejected = append(rejected, ev)
			}
			return nil
		}),
	}}
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "idli", "Idli", 14000)
	_, err := svc.ApplyCoupon(ctx, q.SessionID, "SAVE100")
	if !errors.Is(err, coupon.ErrBelowMinimum) {
		t.Fatalf("err = %v, want below minimum", err)
	}
	if len(rejected) != 1 || rejected[0].Subject != "SAVE100" {
		t.Fatalf("rejected events = %+v", rejected)
	}

	got, err := svc.Quote(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if got.Coupon != nil || got.Discount != 0 {
		t.Fatalf("failed apply mutated quote: %+v", got)
	}
}

func TestApplyCouponReplacesPrevious(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "vada", "Medu Vada", 14000)
	svc.ApplyCoupon(ctx, q.SessionID, "TEA5")
	got, err := svc.ApplyCoupon(ctx, q.SessionID, "SAVE10")
	if err != nil {
		t.Fatalf("apply second coupon: %v", err)
	}
	if got.Coupon == nil || got.Coupon.Code != "SAVE10" || got.Discount != 1400 {
		t.Fatalf("second coupon did not replace first: %+v", got)
	}
}

func TestApplyOverdiscountingCouponDoesNotStick(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	// A fat-fingered catalog row: 150% off, discounting past the subtotal.
	svc.Catalog = stubCatalog{coupons: map[string]coupon.Coupon{
		"TEA5":    {Code: "TEA5", Kind: coupon.Flat, Value: 500},
		"MEGA150": {Code: "MEGA150", Kind: coupon.Percentage, Value: 15000},
	}}
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "chai", "Masala Chai", 1500)

	if _, err := svc.ApplyCoupon(ctx, q.SessionID, "MEGA150"); err == nil {
		t.Fatal("expected error applying a coupon that discounts past the subtotal")
	}
	got, err := svc.Quote(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("quote after rejected apply: %v", err)
	}
	if got.Coupon != nil || got.Total != 1575 {
		t.Fatalf("session still carries the rejected coupon: %+v", got)
	}

	// With a coupon already attached the previous snapshot is restored.
	if _, err := svc.ApplyCoupon(ctx, q.SessionID, "TEA5"); err != nil {
		t.Fatalf("apply flat coupon: %v", err)
	}
	if _, err := svc.ApplyCoupon(ctx, q.SessionID, "MEGA150"); err == nil {
		t.Fatal("expected error replacing with the oversized coupon")
	}
	got, err = svc.Quote(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("quote after rejected replacement: %v", err)
	}
	if got.Coupon == nil || got.Coupon.Code != "TEA5" || got.Discount != 500 {
		t.Fatalf("previous coupon not restored: %+v", got)
	}
}

func TestStaleCouponDetachedOnRequote(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "meal-a", "Meals", 12000)
	svc.AddItem(ctx, q.SessionID, "meal-b", "Special Meals", 9000)
	if _, err := svc.ApplyCoupon(ctx, q.SessionID, "SAVE100"); err != nil {
		t.Fatalf("apply coupon: %v", err)
	}

	got, err := svc.RemoveItem(ctx, q.SessionID, "meal-b")
	if err != nil {
		t.Fatalf("remove item: %v", err)
	}
	if got.Coupon != nil || got.Discount != 0 {
		t.Fatalf("stale coupon kept: %+v", got)
	}
	if len(got.Notices) != 1 {
		t.Fatalf("expected a detach notice, got %v", got.Notices)
	}
}

func TestCouponDiscountTracksSubtotal(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "uttapam", "Onion Uttapam", 10000)
	svc.ApplyCoupon(ctx, q.SessionID, "SAVE10")
	got, err := svc.AddItem(ctx, q.SessionID, "lassi", "Sweet Lassi", 6000)
	if err != nil {
		t.Fatalf("add item: %v", err)
	}
	if got.Discount != 1600 {
		t.Fatalf("discount not recomputed: %d", got.Discount)
	}
}

func TestFinalizeEmptyCart(t *testing.T) {
	svc, sink, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	_, err := svc.Finalize(ctx, q.SessionID, "cash")
	if !errors.Is(err, order.ErrEmptyCart) {
		t.Fatalf("err = %v, want empty cart", err)
	}
	if len(sink.orders) != 0 {
		t.Fatalf("sink received order from empty cart")
	}

	// Session remains usable after the refusal.
	if _, err := svc.AddItem(ctx, q.SessionID, "tea", "Chai", 1500); err != nil {
		t.Fatalf("add item after refusal: %v", err)
	}
}

func TestFinalizeInvalidPaymentLeavesCart(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "tea", "Chai", 1500)
	_, err := svc.Finalize(ctx, q.SessionID, "cheque")
	if !errors.Is(err, order.ErrInvalidPayment) {
		t.Fatalf("err = %v, want invalid payment", err)
	}
	got, _ := svc.Quote(ctx, q.SessionID)
	if got.Subtotal != 1500 {
		t.Fatalf("cart mutated by failed finalize: %+v", got)
	}
}

func TestFinalizeSinkFailureAndRetry(t *testing.T) {
	svc, sink, prints := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "pongal", "Ven Pongal", 8000)

	sink.err = errors.New("pg down")
	o, err := svc.Finalize(ctx, q.SessionID, "card")
	if !errors.Is(err, ErrSinkFailure) {
		t.Fatalf("err = %v, want sink failure", err)
	}
	if o.Number == "" {
		t.Fatalf("finalized order has no number")
	}
	if len(prints.jobs) != 0 {
		t.Fatalf("prints scheduled before order stored")
	}
	got, _ := svc.Quote(ctx, q.SessionID)
	if got.Subtotal != 0 {
		t.Fatalf("cart not cleared despite committed order")
	}

	sink.err = nil
	retried, err := svc.RetrySink(ctx, q.SessionID)
	if err != nil {
		t.Fatalf("retry sink: %v", err)
	}
	if retried.Number != o.Number {
		t.Fatalf("retry stored %q, want %q", retried.Number, o.Number)
	}
	if len(sink.orders) != 1 || len(prints.jobs) != 2 {
		t.Fatalf("sink=%d prints=%d after retry", len(sink.orders), len(prints.jobs))
	}

	if _, err := svc.RetrySink(ctx, q.SessionID); !errors.Is(err, ErrNothingPending) {
		t.Fatalf("second retry err = %v, want nothing pending", err)
	}
}

func TestUnknownSession(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	if _, err := svc.Quote(context.Background(), "nope"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want session not found", err)
	}
}

func TestCatalogOutageSurfacesError(t *testing.T) {
	svc, _, _ := newTestService(t, tax.Single("GST 5%", 500), tax.PostDiscount)
	ctx := context.Background()

	q, _ := svc.Open(ctx)
	svc.AddItem(ctx, q.SessionID, "tea", "Chai", 1500)
	svc.ApplyCoupon(ctx, q.SessionID, "TEA5")

	svc.Catalog = stubCatalog{err: errors.New("catalog timeout")}
	if _, err := svc.Quote(ctx, q.SessionID); err == nil {
		t.Fatalf("expected catalog outage to fail the quote")
	}
}
