package coupon

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dosahub/backend-pos/internal/money"
)

// PGCatalog reads the coupon catalog from Postgres. The engine treats the
// catalog as read-only; administration of coupons lives elsewhere.
type PGCatalog struct {
	Pool *pgxpool.Pool
}

// Lookup fetches a single coupon by its normalized code.
func (c PGCatalog) Lookup(ctx context.Context, code string) (Coupon, error) {
	if c.Pool == nil {
		return Coupon{}, errors.New("coupon: catalog pool not configured")
	}
	const query = `
SELECT code, kind, value, min_order_amount, categories, description
FROM coupons
WHERE code = $1 AND active`
	var (
		kind        string
		value       int64
		minOrder    money.Money
		categories  []string
		description string
	)
	row := c.Pool.QueryRow(ctx, query, Normalize(code))
	var stored string
	if err := row.Scan(&stored, &kind, &value, &minOrder, &categories, &description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Coupon{}, ErrNotFound
		}
		return Coupon{}, fmt.Errorf("coupon: lookup %q: %w", code, err)
	}
	parsed, err := ParseKind(kind)
	if err != nil {
		return Coupon{}, fmt.Errorf("coupon: catalog row %q: %w", stored, err)
	}
	return Coupon{
		Code:           stored,
		Kind:           parsed,
		Value:          value,
		MinOrderAmount: minOrder,
		Categories:     categories,
		Description:    description,
	}, nil
}
