package middlewares

import (
	"crypto/hmac"
	"math"
	"net/http"
	"strings"

	"github.com/webforms/sheetsink/httpx"
	"github.com/webforms/sheetsink/ratelimit"
)

// Validate enforces the transport checks, in order, before any business
// logic runs: content type, method, then bearer authentication.
func Validate(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.Contains(r.Header.Get("Content-Type"), "application/json") {
				httpx.WriteError(w, r, httpx.Validation("Content-Type must be application/json", nil))
				return
			}

			if r.Method != http.MethodPost {
				httpx.WriteError(w, r, httpx.MethodNotAllowed("Method not allowed"))
				return
			}

			auth := r.Header.Get("Authorization")
			if auth == "" {
				httpx.WriteError(w, r, httpx.Auth("Missing Authorization header"))
				return
			}

			parts := strings.Split(auth, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				httpx.WriteError(w, r, httpx.Auth("Invalid Authorization header format"))
				return
			}

			if !hmac.Equal([]byte(parts[1]), []byte(secret)) {
				httpx.WriteError(w, r, httpx.Auth("Invalid token"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit rejects clients over their fixed-window budget with a 429
// and a Retry-After hint.
func RateLimit(limiter *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			allowed, retryAfter := limiter.Allow(ClientKey(r))
			if !allowed {
				retry := int(math.Ceil(retryAfter.Seconds()))
				httpx.WriteError(w, r, httpx.RateLimited("Too many requests, please try again later", retry))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// ClientKey identifies the caller for rate limiting: the first address
// in X-Forwarded-For, or a shared sentinel when the proxy sent none.
func ClientKey(r *http.Request) string {
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded == "" {
		return "unknown"
	}
	if i := strings.IndexByte(forwarded, ','); i >= 0 {
		forwarded = forwarded[:i]
	}
	return strings.TrimSpace(forwarded)
}
