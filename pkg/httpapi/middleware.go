package httpapi

import (
	"crypto/subtle"
	"net/http"
	"time"
)

// authMiddleware enforces the shared-secret X-API-Key header on every
// endpoint except the health check (§6.3). A constant-time comparison
// avoids leaking the key length through response timing.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/sync/health" {
			next.ServeHTTP(w, r)
			return
		}

		presented := r.Header.Get("X-API-Key")
		if s.apiKey == "" || subtle.ConstantTimeCompare([]byte(presented), []byte(s.apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthenticated", "missing or invalid X-API-Key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// rateLimitMiddleware enforces one shared token bucket across the whole
// offline surface: unlike the per-IP dashboard traffic the teacher's
// RateLimiter guards, every caller here presents the same shared API key,
// so there is exactly one caller identity to throttle (§6.3).
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/sync/health" {
			next.ServeHTTP(w, r)
			return
		}
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "rate_limited", "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// metricsMiddleware records request count and latency for every call
// against the offline surface.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusCapturingWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		if s.metrics != nil {
			s.metrics.RecordHTTPRequest(r.Method, r.URL.Path, wrapper.statusCode, time.Since(start))
		}
	})
}

type statusCapturingWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *statusCapturingWriter) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
