package auth

import (
	"errors"
	"net"
	"net/http"

	"mandi/pkg/httpx"
	"mandi/pkg/ratelimit"
)

type MiddlewareConfig struct {
	FailureLimiter ratelimit.Limiter
	FailureLimit   int
	OnFailure      func(kind string)
}

type MiddlewareOption func(*MiddlewareConfig)

// WithFailureLimiter throttles repeated failed verifications per client IP.
// Requests that verify successfully are never counted.
func WithFailureLimiter(l ratelimit.Limiter, limit int) MiddlewareOption {
	return func(cfg *MiddlewareConfig) {
		cfg.FailureLimiter = l
		cfg.FailureLimit = limit
	}
}

// WithFailureHook observes auth failures ("missing" or "invalid") for
// metrics.
func WithFailureHook(hook func(kind string)) MiddlewareOption {
	return func(cfg *MiddlewareConfig) {
		cfg.OnFailure = hook
	}
}

// Middleware verifies the Authorization header and stores the identity in the
// request context. Both failure kinds answer 401 with the same generic body.
func Middleware(v *Verifier, options ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := MiddlewareConfig{FailureLimit: 30}
	for _, opt := range options {
		opt(&cfg)
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(r.Context(), r.Header.Get("Authorization"))
			if err != nil {
				if cfg.OnFailure != nil {
					if errors.Is(err, ErrMissingCredential) {
						cfg.OnFailure("missing")
					} else {
						cfg.OnFailure("invalid")
					}
				}
				if cfg.FailureLimiter != nil {
					if !cfg.FailureLimiter.Allow("authfail:"+clientIP(r), cfg.FailureLimit).Allowed {
						httpx.Error(w, http.StatusTooManyRequests, "too many requests")
						return
					}
				}
				httpx.Error(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
