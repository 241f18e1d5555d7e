package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const (
	rateLimitTypeKey       contextKey = "rateLimitType"
	apiKeyAuthenticatedKey contextKey = "apiKeyAuthenticated"
)

// Rate limit tiers, as reported in X-RateLimit-Type
const (
	TierNormal   = "normal"
	TierCached   = "cached"
	TierBypass   = "bypass"
	TierExceeded = "exceeded"
)

// RateLimitType returns the tier the request was admitted under, or ""
func RateLimitType(ctx context.Context) string {
	t, _ := ctx.Value(rateLimitTypeKey).(string)
	return t
}

// WithRateLimitType marks ctx with the admitting tier
func WithRateLimitType(ctx context.Context, tier string) context.Context {
	return context.WithValue(ctx, rateLimitTypeKey, tier)
}

// APIKeyAuthenticated reports whether the request carried a valid API key
func APIKeyAuthenticated(ctx context.Context) bool {
	ok, _ := ctx.Value(apiKeyAuthenticatedKey).(bool)
	return ok
}

// WithAPIKeyAuthenticated marks ctx as carrying a valid API key
func WithAPIKeyAuthenticated(ctx context.Context) context.Context {
	return context.WithValue(ctx, apiKeyAuthenticatedKey, true)
}

// ClientIP returns the first X-Forwarded-For hop if present, otherwise the
// host part of RemoteAddr
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first := strings.TrimSpace(strings.Split(fwd, ",")[0]); first != "" {
			return first
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
