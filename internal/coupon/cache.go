package coupon

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheKeyPrefix = "coupon:code:"

// notFoundMarker is cached for misses so repeated bad codes do not hammer
// the catalog.
const notFoundMarker = "!"

type cachedCoupon struct {
	Code           string   `json:"code"`
	Kind           string   `json:"kind"`
	Value          int64    `json:"value"`
	MinOrderAmount int64    `json:"minOrderAmount"`
	Categories     []string `json:"categories,omitempty"`
	Description    string   `json:"description,omitempty"`
}

// CachedCatalog is a Redis read-through wrapper over another Catalog. The
// TTL is kept short: the catalog is authoritative and the engine never holds
// a coupon beyond one checkout.
type CachedCatalog struct {
	Next   Catalog
	Client *redis.Client
	TTL    time.Duration
}

// Lookup serves from Redis when possible and falls back to the wrapped
// catalog, caching hits and misses alike. Cache failures degrade to a direct
// lookup rather than failing the checkout.
func (c CachedCatalog) Lookup(ctx context.Context, code string) (Coupon, error) {
	if c.Next == nil {
		return Coupon{}, errors.New("coupon: cached catalog missing source")
	}
	if c.Client == nil || c.TTL <= 0 {
		return c.Next.Lookup(ctx, code)
	}
	key := cacheKeyPrefix + Normalize(code)
	if raw, err := c.Client.Get(ctx, key).Result(); err == nil {
		if raw == notFoundMarker {
			return Coupon{}, ErrNotFound
		}
		var cached cachedCoupon
		if err := json.Unmarshal([]byte(raw), &cached); err == nil {
			if kind, err := ParseKind(cached.Kind); err == nil {
				return Coupon{
					Code:           cached.Code,
					Kind:           kind,
					Value:          cached.Value,
					MinOrderAmount: cached.MinOrderAmount,
					Categories:     cached.Categories,
					Description:    cached.Description,
				}, nil
			}
		}
	}
	found, err := c.Next.Lookup(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			_ = c.Client.Set(ctx, key, notFoundMarker, c.TTL).Err()
		}
		return Coupon{}, err
	}
	entry := cachedCoupon{
		Code:           found.Code,
		Kind:           found.Kind.String(),
		Value:          found.Value,
		MinOrderAmount: found.MinOrderAmount,
		Categories:     found.Categories,
		Description:    found.Description,
	}
	if raw, err := json.Marshal(entry); err == nil {
		_ = c.Client.Set(ctx, key, raw, c.TTL).Err()
	}
	return found, nil
}
