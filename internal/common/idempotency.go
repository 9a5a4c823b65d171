package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem provides an Idempotency-Key middleware backed by Redis. A register
// that retries a finalize request after a network blip sends the same key
// and gets a conflict instead of a second order.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemKey(header string) string {
	sum := sha256.Sum256([]byte(header))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware enforces idempotency semantics for write endpoints. Requests
// without the header pass through; a Redis outage fails open.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Idempotency-Key")
		if header == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		key := idemKey(header)
		ok, err := i.R.SetNX(r.Context(), key, "locked", i.TTL).Result()
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// ensure the key expires even if the handler panics
			_ = i.R.Expire(context.Background(), key, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
