package middleware

import (
	"dogs-api-go/cache"
	"dogs-api-go/logcolors"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// LimiterPair holds both normal and cached tier limiters for an IP
type LimiterPair struct {
	Normal   *rate.Limiter
	Cached   *rate.Limiter
	lastSeen time.Time
}

// GetNormalTokens returns the number of tokens available in the normal tier
func (lp *LimiterPair) GetNormalTokens() int {
	return int(math.Floor(lp.Normal.Tokens()))
}

// GetCachedTokens returns the number of tokens available in the cached tier
func (lp *LimiterPair) GetCachedTokens() int {
	return int(math.Floor(lp.Cached.Tokens()))
}

// IPRateLimiter manages two-tier rate limiting per IP. Requests over the
// normal tier may still be served from the memo cache under the cached tier.
type IPRateLimiter struct {
	ips         map[string]*LimiterPair
	mu          *sync.RWMutex
	normalRate  rate.Limit
	normalBurst int
	cachedRate  rate.Limit
	cachedBurst int
}

// GetNormalLimit returns the normal tier burst limit
func (i *IPRateLimiter) GetNormalLimit() int {
	return i.normalBurst
}

// GetCachedLimit returns the cached tier burst limit
func (i *IPRateLimiter) GetCachedLimit() int {
	return i.cachedBurst
}

// NewIPRateLimiter creates a new two-tier rate limiter
func NewIPRateLimiter(normalRate rate.Limit, normalBurst int, cachedRate rate.Limit, cachedBurst int) *IPRateLimiter {
	return &IPRateLimiter{
		ips:         make(map[string]*LimiterPair),
		mu:          &sync.RWMutex{},
		normalRate:  normalRate,
		normalBurst: normalBurst,
		cachedRate:  cachedRate,
		cachedBurst: cachedBurst,
	}
}

func (i *IPRateLimiter) AddIP(ip string) *LimiterPair {
	i.mu.Lock()
	defer i.mu.Unlock()

	pair := &LimiterPair{
		Normal:   rate.NewLimiter(i.normalRate, i.normalBurst),
		Cached:   rate.NewLimiter(i.cachedRate, i.cachedBurst),
		lastSeen: time.Now(),
	}
	i.ips[ip] = pair
	return pair
}

func (i *IPRateLimiter) GetLimiter(ip string) *LimiterPair {
	i.mu.Lock()
	limiter, exists := i.ips[ip]
	if exists {
		limiter.lastSeen = time.Now()
	}
	i.mu.Unlock()

	if !exists {
		return i.AddIP(ip)
	}
	return limiter
}

// Prune forgets IPs not seen for idle and returns how many were dropped
func (i *IPRateLimiter) Prune(idle time.Duration) int {
	i.mu.Lock()
	defer i.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	removed := 0
	for ip, pair := range i.ips {
		if pair.lastSeen.Before(cutoff) {
			delete(i.ips, ip)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked IPs
func (i *IPRateLimiter) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.ips)
}

// RateLimitOptions configures RateLimitMiddleware
type RateLimitOptions struct {
	// BypassKey, when non-empty, lets requests with a matching X-API-Key skip
	// both tiers
	BypassKey string

	// CacheOnlyTier enables the second tier. When false, requests over the
	// normal tier are rejected outright.
	CacheOnlyTier bool

	// Record, if set, is called with the tier of every request
	Record func(tier string)
}

// RateLimitMiddleware admits requests through the normal tier first, then
// the cached tier. Cached-tier requests carry a cache-only context so they
// are answered from the memo or not at all.
func RateLimitMiddleware(limiter *IPRateLimiter, opts RateLimitOptions) func(http.Handler) http.Handler {
	record := opts.Record
	if record == nil {
		record = func(string) {}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if key := r.Header.Get("X-API-Key"); key != "" && opts.BypassKey != "" && key == opts.BypassKey {
				record(TierBypass)
				w.Header().Set("X-RateLimit-Bypass", "true")
				next.ServeHTTP(w, r.WithContext(WithRateLimitType(r.Context(), TierBypass)))
				return
			}

			ip := ClientIP(r)
			limiters := limiter.GetLimiter(ip)

			if limiters.Normal.Allow() {
				record(TierNormal)
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.GetNormalLimit()))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetNormalTokens()))
				w.Header().Set("X-RateLimit-Type", TierNormal)
				next.ServeHTTP(w, r.WithContext(WithRateLimitType(r.Context(), TierNormal)))
				return
			}

			if opts.CacheOnlyTier && limiters.Cached.Allow() {
				record(TierCached)
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.GetCachedLimit()))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(limiters.GetCachedTokens()))
				w.Header().Set("X-RateLimit-Type", TierCached)
				log.Debugf("%s IP %s exceeded normal tier, using cached tier", logcolors.LogRateLimit, ip)

				ctx := cache.WithCacheOnly(r.Context())
				ctx = WithRateLimitType(ctx, TierCached)
				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			record(TierExceeded)
			log.Warnf("%s IP %s exceeded rate limit", logcolors.LogRateLimit, ip)
			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limiter.GetCachedLimit()))
			w.Header().Set("X-RateLimit-Remaining", "0")
			w.Header().Set("X-RateLimit-Type", TierExceeded)
			w.Header().Set("Retry-After", "1")
			writeJSONError(w, http.StatusTooManyRequests, "Too many requests", "Rate limit exceeded, retry shortly")
		})
	}
}
