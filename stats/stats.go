package stats

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

const maxInt64 = int64(^uint64(0) >> 1)

// Counter name prefixes. A counter is "<group>.<name>", for example
// "requests./dogs" or "cache.hit".
const (
	GroupRequests  = "requests"
	GroupCache     = "cache"
	GroupRateLimit = "rate_limiting"
	GroupResponses = "responses"
	GroupUpstream  = "upstream"
)

// Stats holds named atomic counters plus response time aggregates
type Stats struct {
	StartTime time.Time

	counters sync.Map // name -> *atomic.Int64

	totalResponseTime atomic.Int64 // microseconds
	responseCount     atomic.Int64
	minResponseTime   atomic.Int64
	maxResponseTime   atomic.Int64
}

// New returns an empty Stats starting now
func New() *Stats {
	s := &Stats{StartTime: time.Now()}
	s.minResponseTime.Store(maxInt64)
	return s
}

var global = New()

// Get returns the process-wide stats
func Get() *Stats {
	return global
}

func (s *Stats) counter(name string) *atomic.Int64 {
	if c, ok := s.counters.Load(name); ok {
		return c.(*atomic.Int64)
	}
	c, _ := s.counters.LoadOrStore(name, &atomic.Int64{})
	return c.(*atomic.Int64)
}

// Add increments the named counter
func (s *Stats) Add(name string, delta int64) {
	s.counter(name).Add(delta)
}

// Count returns the named counter, 0 if it was never touched
func (s *Stats) Count(name string) int64 {
	if c, ok := s.counters.Load(name); ok {
		return c.(*atomic.Int64).Load()
	}
	return 0
}

// Counters returns every counter by name
func (s *Stats) Counters() map[string]int64 {
	out := make(map[string]int64)
	s.counters.Range(func(k, v interface{}) bool {
		out[k.(string)] = v.(*atomic.Int64).Load()
		return true
	})
	return out
}

// RecordRequest counts a request to a route template such as /dogs/{slug}
func (s *Stats) RecordRequest(route string) {
	s.Add(GroupRequests+".total", 1)
	s.Add(GroupRequests+"."+route, 1)
}

// RecordCacheOutcome counts a memo outcome (HIT, MISS or FALLBACK) for a
// wrapped function
func (s *Stats) RecordCacheOutcome(name, outcome string) {
	o := strings.ToLower(outcome)
	s.Add(GroupCache+"."+o, 1)
	s.Add(GroupCache+"."+o+"."+name, 1)
}

// RecordRateLimit records rate limit tier usage
func (s *Stats) RecordRateLimit(tier string) {
	s.Add(GroupRateLimit+"."+tier, 1)
}

// RecordStatusCode records a response status class
func (s *Stats) RecordStatusCode(code int) {
	switch {
	case code >= 200 && code < 300:
		s.Add(GroupResponses+".2xx", 1)
	case code >= 400 && code < 500:
		s.Add(GroupResponses+".4xx", 1)
	case code >= 500:
		s.Add(GroupResponses+".5xx", 1)
	}
}

// RecordResponseTime records a response time overall and per route
func (s *Stats) RecordResponseTime(duration time.Duration, route string) {
	us := duration.Microseconds()

	s.totalResponseTime.Add(us)
	s.responseCount.Add(1)

	for {
		current := s.minResponseTime.Load()
		if us >= current || s.minResponseTime.CompareAndSwap(current, us) {
			break
		}
	}
	for {
		current := s.maxResponseTime.Load()
		if us <= current || s.maxResponseTime.CompareAndSwap(current, us) {
			break
		}
	}

	if route != "" {
		s.Add("response_us."+route, us)
		s.Add("response_count."+route, 1)
	}
}

// Uptime returns the server uptime
func (s *Stats) Uptime() time.Duration {
	return time.Since(s.StartTime)
}

// CacheHitRate returns hits over hits plus misses, as a percentage
func (s *Stats) CacheHitRate() float64 {
	hits := s.Count(GroupCache + ".hit")
	total := hits + s.Count(GroupCache+".miss")
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// AvgResponseTime returns the average response time
func (s *Stats) AvgResponseTime() time.Duration {
	count := s.responseCount.Load()
	if count == 0 {
		return 0
	}
	return time.Duration(s.totalResponseTime.Load()/count) * time.Microsecond
}

// MinResponseTime returns the minimum response time
func (s *Stats) MinResponseTime() time.Duration {
	min := s.minResponseTime.Load()
	if min == maxInt64 {
		return 0
	}
	return time.Duration(min) * time.Microsecond
}

// MaxResponseTime returns the maximum response time
func (s *Stats) MaxResponseTime() time.Duration {
	return time.Duration(s.maxResponseTime.Load()) * time.Microsecond
}

// AvgRouteResponseTime returns the average response time of one route
func (s *Stats) AvgRouteResponseTime(route string) time.Duration {
	count := s.Count("response_count." + route)
	if count == 0 {
		return 0
	}
	return time.Duration(s.Count("response_us."+route)/count) * time.Microsecond
}

// Snapshot groups counters by prefix for the /stats endpoint
func (s *Stats) Snapshot() map[string]interface{} {
	uptime := s.Uptime()

	groups := map[string]map[string]int64{
		GroupRequests:  {},
		GroupCache:     {},
		GroupRateLimit: {},
		GroupResponses: {},
		GroupUpstream:  {},
	}
	var routes []string

	for name, v := range s.Counters() {
		group, rest, ok := strings.Cut(name, ".")
		if !ok {
			continue
		}
		if g, known := groups[group]; known {
			g[rest] = v
		}
		if group == "response_count" {
			routes = append(routes, rest)
		}
	}
	sort.Strings(routes)

	perRoute := make(map[string]string, len(routes))
	for _, r := range routes {
		perRoute[r] = s.AvgRouteResponseTime(r).String()
	}

	return map[string]interface{}{
		"server": map[string]interface{}{
			"start_time":     s.StartTime.Format(time.RFC3339),
			"uptime":         uptime.Round(time.Second).String(),
			"uptime_seconds": int64(uptime.Seconds()),
		},
		GroupRequests:  groups[GroupRequests],
		GroupCache:     withHitRate(groups[GroupCache], s.CacheHitRate()),
		GroupRateLimit: groups[GroupRateLimit],
		GroupResponses: groups[GroupResponses],
		GroupUpstream:  groups[GroupUpstream],
		"response_times": map[string]interface{}{
			"avg":       s.AvgResponseTime().String(),
			"min":       s.MinResponseTime().String(),
			"max":       s.MaxResponseTime().String(),
			"per_route": perRoute,
		},
	}
}

func withHitRate(counts map[string]int64, rate float64) map[string]interface{} {
	out := make(map[string]interface{}, len(counts)+1)
	for k, v := range counts {
		out[k] = v
	}
	out["hit_rate"] = rate
	return out
}
