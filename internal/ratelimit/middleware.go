package ratelimit

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/dosahub/backend-pos/internal/common"
)

// Guard applies a sliding window limit to one route. Key derives the counter
// identity from the request; the default keys by client IP so one register
// cannot brute-force coupon codes for everyone.
type Guard struct {
	Limiter Limiter
	Window  time.Duration
	Max     int
	Key     func(*http.Request) string
	Logger  zerolog.Logger
}

// Protect wraps next with the limit. Limiter outages fail open; a register
// that cannot reach Redis still has to bill customers.
func (g Guard) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := common.ClientIP(r)
		if g.Key != nil {
			key = g.Key(r)
		}
		res, err := g.Limiter.Allow(r.Context(), key, g.Window, g.Max)
		if err != nil {
			g.Logger.Warn().Err(err).Str("key", key).Msg("rate limiter unavailable, failing open")
			next.ServeHTTP(w, r)
			return
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(g.Max))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
		h.Set("X-RateLimit-Reset", strconv.FormatInt(res.ResetAt.Unix(), 10))

		if !res.Allowed {
			retryAfter := int(time.Until(res.ResetAt).Seconds())
			if retryAfter < 0 {
				retryAfter = 0
			}
			h.Set("Retry-After", strconv.Itoa(retryAfter))
			common.JSONError(w, http.StatusTooManyRequests, "RATE_LIMITED", "too many attempts, slow down", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
