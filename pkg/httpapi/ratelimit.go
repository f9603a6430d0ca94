package httpapi

import "golang.org/x/time/rate"

// RateLimiter is a thin wrapper over golang.org/x/time/rate sized for the
// offline surface's single shared-secret caller identity (§6.3).
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter constructs a token-bucket limiter with the given sustained
// rate and burst size.
func NewRateLimiter(requestsPerSecond float64, burst int) *RateLimiter {
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), burst)}
}

// Allow reports whether the current request should proceed.
func (r *RateLimiter) Allow() bool {
	return r.limiter.Allow()
}
