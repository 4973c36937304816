package api

import (
	"net/http"

	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow() bool
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

// limiterFromSettings returns nil when limiting is disabled.
func limiterFromSettings(cfg RateLimitSettings) rateLimiter {
	if cfg.RPS <= 0 {
		return nil
	}
	return newTokenBucketLimiter(cfg.RPS, cfg.Burst)
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

func rateLimitMiddleware(limiter rateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter.Allow() {
				next.ServeHTTP(w, r)
				return
			}
			writeError(w, tooManyRequests(), false)
		})
	}
}

func tooManyRequests() *Error {
	return (&Error{
		Status:      http.StatusTooManyRequests,
		UserMessage: "Too many requests",
		Detail:      "rate limit exceeded, please retry shortly",
		HideLogs:    true,
	}).WithHeader("Retry-After", "1")
}
