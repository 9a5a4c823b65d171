// Package cart maintains the in-progress line items for one checkout
// session. A Cart is owned by exactly one session and is mutated by a single
// interaction thread, so it carries no locking of its own.
package cart

import (
	"errors"

	"github.com/dosahub/backend-pos/internal/coupon"
	"github.com/dosahub/backend-pos/internal/money"
)

// ErrItemNotFound indicates a quantity change was requested for an item that
// has no line in the cart. New items must go through AddItem.
var ErrItemNotFound = errors.New("cart: item not found")

// Line is one priced item with its quantity. A line never exists with a
// quantity of zero or less; it is removed instead.
type Line struct {
	ItemID    string
	Name      string
	UnitPrice money.Money
	Quantity  int
}

// Total returns the line amount (unit price times quantity).
func (l Line) Total() money.Money {
	return l.UnitPrice * money.Money(l.Quantity)
}

// Cart holds the ordered lines and the optional applied coupon snapshot for
// one checkout session. Insertion order is preserved for display.
type Cart struct {
	lines   []Line
	applied *coupon.Applied
}

// New returns an empty cart.
func New() *Cart {
	return &Cart{}
}

// AddItem appends a new line with quantity 1, or increments the quantity of
// an existing line for the same item. It always succeeds.
func (c *Cart) AddItem(itemID, name string, unitPrice money.Money) {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			c.lines[i].Quantity++
			return
		}
	}
	c.lines = append(c.lines, Line{ItemID: itemID, Name: name, UnitPrice: unitPrice, Quantity: 1})
}

// ChangeQuantity adjusts the quantity of an existing line by delta. When the
// resulting quantity drops to zero or below the line is removed entirely.
// An absent item yields ErrItemNotFound, which callers treat as a no-op.
func (c *Cart) ChangeQuantity(itemID string, delta int) error {
	for i := range c.lines {
		if c.lines[i].ItemID != itemID {
			continue
		}
		c.lines[i].Quantity += delta
		if c.lines[i].Quantity <= 0 {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
		}
		return nil
	}
	return ErrItemNotFound
}

// RemoveItem deletes the line for the item. Removing an absent item is a
// no-op.
func (c *Cart) RemoveItem(itemID string) {
	for i := range c.lines {
		if c.lines[i].ItemID == itemID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			return
		}
	}
}

// Clear empties the cart and detaches any applied coupon.
func (c *Cart) Clear() {
	c.lines = nil
	c.applied = nil
}

// Subtotal sums unit price times quantity over all lines. It is recomputed on
// every call and never cached apart from the lines themselves.
func (c *Cart) Subtotal() money.Money {
	var total money.Money
	for _, l := range c.lines {
		total += l.Total()
	}
	return total
}

// Lines returns a copy of the cart lines in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, len(c.lines))
	copy(out, c.lines)
	return out
}

// Len reports the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.lines)
}

// AttachCoupon replaces any previously applied coupon with the provided
// snapshot. Coupons never stack.
func (c *Cart) AttachCoupon(a coupon.Applied) {
	c.applied = &a
}

// DetachCoupon removes the applied coupon, restoring the undiscounted
// subtotal.
func (c *Cart) DetachCoupon() {
	c.applied = nil
}

// AppliedCoupon returns the current coupon snapshot, if any.
func (c *Cart) AppliedCoupon() (coupon.Applied, bool) {
	if c.applied == nil {
		return coupon.Applied{}, false
	}
	return *c.applied, true
}
