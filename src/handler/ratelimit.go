package handler

import (
	"net/http"
	"strconv"
	"time"

	"tradejournal/src/auth"

	"github.com/patrickmn/go-cache"
	logger "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// idle limiters are evicted after this long
const limiterIdleTTL = 10 * time.Minute

// RateLimit allows each authenticated user rps requests per second with
// the given burst. It must run after RequireAPIKey. A non-positive rps
// disables limiting.
func RateLimit(rps float64, burst int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	if burst < 1 {
		burst = 1
	}

	limiters := cache.New(limiterIdleTTL, 2*limiterIdleTTL)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := auth.RequireUserID(r.Context())
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			key := strconv.FormatUint(uint64(userID), 10)
			var limiter *rate.Limiter
			if cached, ok := limiters.Get(key); ok {
				limiter = cached.(*rate.Limiter)
			} else {
				limiter = rate.NewLimiter(rate.Limit(rps), burst)
				if err := limiters.Add(key, limiter, cache.DefaultExpiration); err != nil {
					// another request created it first
					if cached, ok := limiters.Get(key); ok {
						limiter = cached.(*rate.Limiter)
					}
				}
			}
			// keep active users' limiters alive
			limiters.SetDefault(key, limiter)

			if !limiter.Allow() {
				logger.WithField("user_id", userID).Warn("rate limit exceeded")
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "too many requests")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
