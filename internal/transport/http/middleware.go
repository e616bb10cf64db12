package http

import (
	"net"
	"net/http"

	"decaquiz-service/internal/config"
	"decaquiz-service/internal/domain"
)

// limitJoins rejects clients over the join limit. Limiter errors fail open.
func limitJoins(limiter RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if limiter == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, err := limiter.Allow(r.Context(), clientKey(r))
			if err != nil {
				config.WithContext(r.Context()).WithError(err).Warn("join rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !allowed {
				writeError(w, r, domain.ErrTooManyJoins, "")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func clientKey(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
