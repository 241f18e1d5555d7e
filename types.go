package main

import (
	"dogs-api-go/cache"
	"dogs-api-go/metadata"
	"dogs-api-go/services/catalog"
)

// FilterSummary is the derived view of a filter query
type FilterSummary struct {
	APIParams         map[string]string `json:"apiParams"`
	ActiveFilterCount int               `json:"activeFilterCount"`
}

// DogsResponse is the response format for /dogs
type DogsResponse struct {
	Dogs    []catalog.Animal `json:"dogs"`
	Filters FilterSummary    `json:"filters"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
	HasMore bool             `json:"hasMore"`
}

// MetadataResponse is the response format for /metadata. Error and Failed
// are set when some lists could not be loaded; the status is still 200.
type MetadataResponse struct {
	metadata.Metadata
	Error  string   `json:"error,omitempty"`
	Failed []string `json:"failed,omitempty"`
}

// CachePerformance contains cache hit/miss statistics
type CachePerformance struct {
	Hits      int64   `json:"hits"`
	Misses    int64   `json:"misses"`
	Fallbacks int64   `json:"fallbacks"`
	HitRate   float64 `json:"hit_rate_percent"`
}

// CacheDumpResponse is the response format for /cache
type CacheDumpResponse struct {
	NumberOfKeys int              `json:"number_of_keys"`
	Mode         string           `json:"mode"`
	TTL          string           `json:"ttl"`
	Performance  CachePerformance `json:"performance"`
	Keys         []string         `json:"keys"`
}

func newCacheDumpResponse(s cache.Stats, keys []string) CacheDumpResponse {
	var hitRate float64
	if total := s.Hits + s.Misses; total > 0 {
		hitRate = float64(s.Hits) / float64(total) * 100
	}
	return CacheDumpResponse{
		NumberOfKeys: len(keys),
		Mode:         s.Mode,
		TTL:          s.TTL,
		Performance: CachePerformance{
			Hits:      s.Hits,
			Misses:    s.Misses,
			Fallbacks: s.Fallbacks,
			HitRate:   hitRate,
		},
		Keys: keys,
	}
}
