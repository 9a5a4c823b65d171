package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store persists finalized orders to Postgres. It is the persistence sink
// handed to the checkout service.
type Store struct {
	Pool *pgxpool.Pool
}

// Save writes the order header, its lines, and its tax lines in one
// transaction.
func (s Store) Save(ctx context.Context, o FinalizedOrder) error {
	if s.Pool == nil {
		return errors.New("order: store pool not configured")
	}
	tx, err := s.Pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("order: begin tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	const insertOrder = `
INSERT INTO orders (number, subtotal, discount, coupon_code, tax_total, total, payment_method, placed_at)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8)
RETURNING id`
	var orderID int64
	if err := tx.QueryRow(ctx, insertOrder,
		o.Number, o.Subtotal, o.Discount, o.CouponCode, o.TaxTotal, o.Total, o.PaymentMethod, o.PlacedAt,
	).Scan(&orderID); err != nil {
		return fmt.Errorf("order: insert %s: %w", o.Number, err)
	}

	const insertLine = `
INSERT INTO order_lines (order_id, item_id, name, unit_price, quantity)
VALUES ($1, $2, $3, $4, $5)`
	for _, line := range o.Lines {
		if _, err := tx.Exec(ctx, insertLine, orderID, line.ItemID, line.Name, line.UnitPrice, line.Quantity); err != nil {
			return fmt.Errorf("order: insert line %s: %w", line.ItemID, err)
		}
	}

	const insertTax = `
INSERT INTO order_tax_lines (order_id, name, rate_bps, amount)
VALUES ($1, $2, $3, $4)`
	for _, line := range o.TaxLines {
		if _, err := tx.Exec(ctx, insertTax, orderID, line.Name, line.RateBps, line.Amount); err != nil {
			return fmt.Errorf("order: insert tax line %s: %w", line.Name, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("order: commit %s: %w", o.Number, err)
	}
	return nil
}

// Deliver implements Sink on top of Save.
func (s Store) Deliver(ctx context.Context, o FinalizedOrder) error {
	return s.Save(ctx, o)
}
