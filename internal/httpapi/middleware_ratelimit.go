package httpapi

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/snipvault/snipvault/internal/apperrors"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// RateLimitMiddleware throttles per client IP under the given key
// prefix. A nil limiter disables throttling.
func RateLimitMiddleware(limiter RateLimiter, prefix string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ip := r.RemoteAddr
			if host, _, err := net.SplitHostPort(ip); err == nil {
				ip = host
			}

			allowed, retryAfter, err := limiter.Allow(r.Context(), prefix+":ip:"+ip)
			if err != nil {
				writeAppError(w, apperrors.New(apperrors.KindInternal, "rate limit error"))
				return
			}
			if !allowed {
				writeAppError(w, apperrors.RateLimit("too many requests", retryAfter))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
