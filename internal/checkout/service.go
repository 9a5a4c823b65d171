// Package checkout orchestrates one register session through the billing
// engine: cart mutations, coupon resolution, tax computation, totalization
// and finalization. Every quote is derived from the cart lines on demand;
// nothing priced is stored independently of them.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/dosahub/backend-pos/internal/cart"
	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/events"
	"github.com/dosahub/backend-pos/internal/money"
	"github.com/dosahub/backend-pos/internal/order"
	"github.com/dosahub/backend-pos/internal/pricing"
	"github.com/dosahub/backend-pos/internal/printer"
	"github.com/dosahub/backend-pos/internal/receipt"
	"github.com/dosahub/backend-pos/internal/tax"
)

// ErrSinkFailure wraps persistence sink errors during finalize. The order
// itself is already committed; only the sink call is retried.
var ErrSinkFailure = errors.New("checkout: order sink failed")

// ErrNothingPending is returned when a sink retry is requested but no
// finalized order is waiting on the session.
var ErrNothingPending = errors.New("checkout: no pending order to retry")

// PrintEnqueuer schedules a ticket for asynchronous printing.
type PrintEnqueuer interface {
	EnqueuePrint(ctx context.Context, job printer.Job) error
}

// QuoteCoupon is the applied coupon as shown on a quote.
type QuoteCoupon struct {
	Code     string      `json:"code"`
	Discount money.Money `json:"discount"`
}

// QuoteTaxLine is one itemized tax amount on a quote.
type QuoteTaxLine struct {
	Name    string      `json:"name"`
	RateBps int64       `json:"rateBps"`
	Amount  money.Money `json:"amount"`
}

// QuoteLine is one cart line on a quote.
type QuoteLine struct {
	ItemID    string      `json:"itemId"`
	Name      string      `json:"name"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int         `json:"quantity"`
	LineTotal money.Money `json:"lineTotal"`
}

// Quote is the fully priced view of a session cart. It is recomputed from
// scratch on every read.
type Quote struct {
	SessionID string         `json:"sessionId"`
	Lines     []QuoteLine    `json:"lines"`
	Subtotal  money.Money    `json:"subtotal"`
	Coupon    *QuoteCoupon   `json:"coupon,omitempty"`
	Discount  money.Money    `json:"discount"`
	TaxLines  []QuoteTaxLine `json:"taxLines"`
	TaxTotal  money.Money    `json:"taxTotal"`
	Total     money.Money    `json:"total"`
	Notices   []string       `json:"notices,omitempty"`
}

// Service wires the billing engine to its collaborators for all sessions of
// one deployment. Tax policy and taxable base are fixed per deployment, not
// per cart.
type Service struct {
	Sessions *SessionStore
	Catalog  coupon.Catalog
	Policy   tax.Policy
	Base     tax.Base
	Orders   order.Sink
	Prints   PrintEnqueuer
	Events   *events.Bus
	Logger   zerolog.Logger
	Now      func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Open starts a new checkout session.
func (s *Service) Open(ctx context.Context) (Quote, error) {
	sess := s.Sessions.Open()
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return s.quoteLocked(ctx, sess)
}

// Quote prices the session cart as it stands.
func (s *Service) Quote(ctx context.Context, sessionID string) (Quote, error) {
	return s.withSession(ctx, sessionID, func(context.Context, *Session) error { return nil })
}

// AddItem adds one unit of the item, creating the line on first add.
func (s *Service) AddItem(ctx context.Context, sessionID, itemID, name string, unitPrice money.Money) (Quote, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *Session) error {
		sess.Cart.AddItem(itemID, name, unitPrice)
		return nil
	})
}

// ChangeQuantity adjusts an existing line by delta, removing it at zero.
// A change against an absent item is recovered locally as a no-op.
func (s *Service) ChangeQuantity(ctx context.Context, sessionID, itemID string, delta int) (Quote, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *Session) error {
		if err := sess.Cart.ChangeQuantity(itemID, delta); err != nil {
			s.Logger.Debug().Str("item_id", itemID).Int("delta", delta).Msg("quantity change for absent item ignored")
		}
		return nil
	})
}

// RemoveItem drops the line for the item.
func (s *Service) RemoveItem(ctx context.Context, sessionID, itemID string) (Quote, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *Session) error {
		sess.Cart.RemoveItem(itemID)
		return nil
	})
}

// ApplyCoupon resolves the code against the catalog at the current subtotal
// and attaches the snapshot. A new coupon replaces any previous one. The
// attach only sticks once the cart prices cleanly with it; any error, a
// resolution failure or a catalog row that cannot produce a valid total,
// restores the previous state.
func (s *Service) ApplyCoupon(ctx context.Context, sessionID, code string) (Quote, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return Quote{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	applied, err := coupon.Resolve(ctx, code, sess.Cart.Subtotal(), s.Catalog)
	if err != nil {
		if errors.Is(err, coupon.ErrNotFound) || errors.Is(err, coupon.ErrBelowMinimum) {
			s.emit(ctx, events.TopicCouponRejected, coupon.Normalize(code), map[string]any{"reason": err.Error()})
		}
		return Quote{}, err
	}

	previous, hadPrevious := sess.Cart.AppliedCoupon()
	sess.Cart.AttachCoupon(applied)
	q, err := s.quoteLocked(ctx, sess)
	if err != nil {
		if hadPrevious {
			sess.Cart.AttachCoupon(previous)
		} else {
			sess.Cart.DetachCoupon()
		}
		return Quote{}, err
	}
	return q, nil
}

// RemoveCoupon detaches the applied coupon, restoring the undiscounted
// subtotal.
func (s *Service) RemoveCoupon(ctx context.Context, sessionID string) (Quote, error) {
	return s.withSession(ctx, sessionID, func(_ context.Context, sess *Session) error {
		sess.Cart.DetachCoupon()
		return nil
	})
}

// Finalize freezes the priced cart into an immutable order, persists it and
// schedules receipt and kitchen tickets. The cart is cleared once the order
// record exists; a persistence failure leaves the record pending on the
// session for RetrySink.
func (s *Service) Finalize(ctx context.Context, sessionID, paymentMethod string) (order.FinalizedOrder, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return order.FinalizedOrder{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	subtotal, discount, taxes, notices, err := s.priceLocked(ctx, sess.Cart)
	if err != nil {
		return order.FinalizedOrder{}, err
	}
	for _, n := range notices {
		s.Logger.Info().Str("session_id", sess.ID).Str("notice", n).Msg("pricing notice at finalize")
	}
	sum, err := pricing.Summarize(subtotal, discount, taxes)
	if err != nil {
		return order.FinalizedOrder{}, err
	}
	o, err := order.Finalize(sess.Cart, taxes, sum, paymentMethod, s.now())
	if err != nil {
		// The cart is untouched so the register can correct and retry.
		return order.FinalizedOrder{}, err
	}

	// The order is committed from here on; only sinks may still fail.
	sess.Cart.Clear()
	s.emit(ctx, events.TopicOrderFinalized, o.Number, map[string]any{
		"total":         o.Total,
		"paymentMethod": o.PaymentMethod,
	})

	if err := s.Orders.Deliver(ctx, o); err != nil {
		pending := o
		sess.pending = &pending
		s.Logger.Error().Err(err).Str("order", o.Number).Msg("order sink failed, held for retry")
		return o, fmt.Errorf("%w: %v", ErrSinkFailure, err)
	}
	s.schedulePrints(ctx, o)
	return o, nil
}

// RetrySink re-attempts the persistence sink for the order held on the
// session. The order record is never rebuilt or repriced.
func (s *Service) RetrySink(ctx context.Context, sessionID string) (order.FinalizedOrder, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return order.FinalizedOrder{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.pending == nil {
		return order.FinalizedOrder{}, ErrNothingPending
	}
	o := *sess.pending
	if err := s.Orders.Deliver(ctx, o); err != nil {
		return o, fmt.Errorf("%w: %v", ErrSinkFailure, err)
	}
	sess.pending = nil
	s.schedulePrints(ctx, o)
	return o, nil
}

func (s *Service) withSession(ctx context.Context, sessionID string, mutate func(context.Context, *Session) error) (Quote, error) {
	sess, err := s.Sessions.Get(sessionID)
	if err != nil {
		return Quote{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if err := mutate(ctx, sess); err != nil {
		return Quote{}, err
	}
	return s.quoteLocked(ctx, sess)
}

// priceLocked derives subtotal, refreshed discount and taxes for the cart.
// An attached coupon snapshot is stale the moment the subtotal changes, so
// it is re-resolved here; a coupon that no longer qualifies is detached
// rather than kept at its stale value.
func (s *Service) priceLocked(ctx context.Context, c *cart.Cart) (money.Money, money.Money, tax.Breakdown, []string, error) {
	subtotal := c.Subtotal()
	var discount money.Money
	var notices []string

	if applied, ok := c.AppliedCoupon(); ok {
		refreshed, err := coupon.Resolve(ctx, applied.Coupon.Code, subtotal, s.Catalog)
		switch {
		case err == nil:
			c.AttachCoupon(refreshed)
			discount = refreshed.Discount
		case errors.Is(err, coupon.ErrBelowMinimum), errors.Is(err, coupon.ErrNotFound):
			c.DetachCoupon()
			notices = append(notices, fmt.Sprintf("coupon %s removed: %s", applied.Coupon.Code, err))
			s.emit(ctx, events.TopicCouponRejected, applied.Coupon.Code, map[string]any{"reason": err.Error()})
		default:
			return 0, 0, tax.Breakdown{}, nil, err
		}
	}

	base := subtotal
	if s.Base == tax.PostDiscount {
		base = subtotal - discount
	}
	return subtotal, discount, tax.Compute(base, s.Policy), notices, nil
}

func (s *Service) quoteLocked(ctx context.Context, sess *Session) (Quote, error) {
	subtotal, discount, taxes, notices, err := s.priceLocked(ctx, sess.Cart)
	if err != nil {
		return Quote{}, err
	}
	sum, err := pricing.Summarize(subtotal, discount, taxes)
	if err != nil {
		return Quote{}, err
	}
	q := Quote{
		SessionID: sess.ID,
		Subtotal:  sum.Subtotal,
		Discount:  sum.Discount,
		TaxTotal:  sum.TaxTotal,
		Total:     sum.Total,
		Notices:   notices,
	}
	for _, l := range sess.Cart.Lines() {
		q.Lines = append(q.Lines, QuoteLine{
			ItemID:    l.ItemID,
			Name:      l.Name,
			UnitPrice: l.UnitPrice,
			Quantity:  l.Quantity,
			LineTotal: l.Total(),
		})
	}
	if applied, ok := sess.Cart.AppliedCoupon(); ok {
		q.Coupon = &QuoteCoupon{Code: applied.Coupon.Code, Discount: applied.Discount}
	}
	for _, t := range taxes.Lines {
		q.TaxLines = append(q.TaxLines, QuoteTaxLine{Name: t.Name, RateBps: t.RateBps, Amount: t.Amount})
	}
	return q, nil
}

func (s *Service) schedulePrints(ctx context.Context, o order.FinalizedOrder) {
	if s.Prints == nil {
		return
	}
	jobs := []printer.Job{
		{OrderNumber: o.Number, Kind: printer.KindReceipt, Ticket: receipt.Render(o)},
		{OrderNumber: o.Number, Kind: printer.KindKOT, Ticket: receipt.RenderKOT(o)},
	}
	for _, job := range jobs {
		if err := s.Prints.EnqueuePrint(ctx, job); err != nil {
			// The queue retries delivery on its own; a failed enqueue is only
			// logged so finalize never fails because of the printer.
			s.Logger.Error().Err(err).Str("order", o.Number).Str("kind", job.Kind).Msg("enqueue print job")
		}
	}
}

func (s *Service) emit(ctx context.Context, topic, subject string, payload map[string]any) {
	if s.Events == nil {
		return
	}
	if err := s.Events.Emit(ctx, topic, subject, payload); err != nil {
		s.Logger.Error().Err(err).Str("topic", topic).Msg("emit event")
	}
}
