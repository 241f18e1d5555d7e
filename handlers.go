package main

import (
	"crypto/subtle"
	"dogs-api-go/cache"
	"dogs-api-go/circuitbreaker"
	"dogs-api-go/filters"
	"dogs-api-go/logcolors"
	"dogs-api-go/metadata"
	"dogs-api-go/services/catalog"
	"dogs-api-go/services/notifier"
	"dogs-api-go/services/rescueapi"
	"dogs-api-go/stats"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

const maxPageSize = 100

func getDogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := filters.FromQuery(q)

	limit, offset, err := parsePaging(q)
	if err != nil {
		Respond(w, r).Error(http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	ctx, rec := cache.WithRecorder(r.Context())
	dogs, err := catalogSvc.Animals(ctx, catalog.AnimalQuery{
		Params: state.APIParams(),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		writeFetchError(w, r, rec, "dogs", err)
		return
	}
	if dogs == nil {
		dogs = []catalog.Animal{}
	}

	Respond(w, r).WithRecorder(rec).JSON(DogsResponse{
		Dogs:    dogs,
		Filters: summarize(state),
		Limit:   limit,
		Offset:  offset,
		HasMore: len(dogs) == limit,
	})
}

func getDog(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	ctx, rec := cache.WithRecorder(r.Context())
	dog, err := catalogSvc.AnimalBySlug(ctx, slug)
	if err != nil {
		writeFetchError(w, r, rec, "dog "+slug, err)
		return
	}

	Respond(w, r).WithRecorder(rec).JSON(dog)
}

func getOrganizations(w http.ResponseWriter, r *http.Request) {
	ctx, rec := cache.WithRecorder(r.Context())
	orgs, err := catalogSvc.Organizations(ctx)
	if err != nil {
		writeFetchError(w, r, rec, "organizations", err)
		return
	}

	Respond(w, r).WithRecorder(rec).JSON(map[string]interface{}{
		"organizations": orgs,
	})
}

func getOrganization(w http.ResponseWriter, r *http.Request) {
	slug := mux.Vars(r)["slug"]

	ctx, rec := cache.WithRecorder(r.Context())
	org, err := catalogSvc.OrganizationBySlug(ctx, slug)
	if err != nil {
		writeFetchError(w, r, rec, "organization "+slug, err)
		return
	}

	Respond(w, r).WithRecorder(rec).JSON(org)
}

// getMetadata runs the four reference fetches in parallel. Failures are
// reported in the body; the status stays 200.
func getMetadata(w http.ResponseWriter, r *http.Request) {
	ctx, rec := cache.WithRecorder(r.Context())

	loader := metadata.NewLoader(catalogSvc)
	defer loader.Close()

	res := loader.Load(ctx)
	if errors.Is(res.Err, cache.ErrCacheOnlyMiss) {
		writeFetchError(w, r, rec, "metadata", res.Err)
		return
	}
	meta := res.Metadata

	if country := strings.TrimSpace(r.URL.Query().Get("country")); country != "" {
		regions, err := loader.LoadRegions(ctx, country)
		meta.AvailableRegions = regions
		if err != nil {
			res.Failed = append(res.Failed, metadata.ListAvailableRegions)
			if res.Err == nil {
				res.Err = err
			}
		}
	}

	resp := MetadataResponse{Metadata: meta, Failed: res.Failed}
	if res.Err != nil {
		resp.Error = res.Err.Error()
	}

	Respond(w, r).WithRecorder(rec).JSON(resp)
}

// getFilters echoes the derived API params for a filter query without
// touching upstream
func getFilters(w http.ResponseWriter, r *http.Request) {
	state := filters.FromQuery(r.URL.Query())

	Respond(w, r).JSON(map[string]interface{}{
		"filters":           state,
		"apiParams":         state.APIParams(),
		"activeFilterCount": state.ActiveCount(),
	})
}

func getStatistics(w http.ResponseWriter, r *http.Request) {
	ctx, rec := cache.WithRecorder(r.Context())
	st, err := catalogSvc.Statistics(ctx)
	if err != nil {
		writeFetchError(w, r, rec, "statistics", err)
		return
	}

	Respond(w, r).WithRecorder(rec).JSON(st)
}

func getCacheDump(w http.ResponseWriter, r *http.Request) {
	if !isAuthorized(r) {
		Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	memo := catalogSvc.Memo()
	Respond(w, r).JSON(newCacheDumpResponse(memo.Stats(), memo.Keys()))
}

func clearCache(w http.ResponseWriter, r *http.Request) {
	if !isAuthorized(r) {
		Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	n := catalogSvc.Clear()
	notifier.PublishCacheCleared(n)
	log.Infof("%s Cleared %d entries on request from %s", logcolors.LogCacheClear, n, r.RemoteAddr)

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Cache cleared",
		"entries": n,
	})
}

func getStats(w http.ResponseWriter, r *http.Request) {
	if !isAuthorized(r) {
		Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	snapshot := stats.Get().Snapshot()
	snapshot["memo"] = catalogSvc.Memo().Stats()
	snapshot["circuit_breaker"] = upstream.Breaker().Status()
	if limiter != nil {
		snapshot["rate_limiter_ips"] = limiter.Len()
	}

	Respond(w, r).JSON(snapshot)
}

func getHealthStatus(w http.ResponseWriter, r *http.Request) {
	cb := upstream.Breaker()

	health := map[string]interface{}{
		"status":          "ok",
		"upstream":        upstream.BaseURL(),
		"circuit_breaker": cb.State().String(),
		"cache_mode":      catalogSvc.Memo().Mode().String(),
	}

	// An open breaker means upstream calls are being refused
	if cb.IsOpen() {
		health["status"] = "degraded"
		health["circuit_breaker_retry_in"] = cb.TimeUntilRetry().String()
	}

	if isAuthorized(r) {
		health["circuit_breaker_failures"] = cb.Failures()
		health["cache_entries"] = catalogSvc.Memo().Len()
		health["uptime"] = stats.Get().Uptime().Round(time.Second).String()
	}

	Respond(w, r).JSON(health)
}

func getCircuitBreakerStatus(w http.ResponseWriter, r *http.Request) {
	if !isAuthorized(r) {
		Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	Respond(w, r).JSON(upstream.Breaker().Status())
}

func resetCircuitBreaker(w http.ResponseWriter, r *http.Request) {
	if !isAuthorized(r) {
		Respond(w, r).Error(http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	upstream.Breaker().Reset()

	Respond(w, r).JSON(map[string]interface{}{
		"message": "Circuit breaker reset to CLOSED state",
	})
}

func helpHandler(w http.ResponseWriter, r *http.Request) {
	Respond(w, r).JSON(map[string]interface{}{
		"help": "Browse adoptable rescue dogs. Filter with query parameters, e.g. /dogs?standardized_breed=Labrador%20Retriever&standardized_size=large&location_country=UK",
		"endpoints": []string{
			"GET /dogs",
			"GET /dogs/{slug}",
			"GET /organizations",
			"GET /organizations/{slug}",
			"GET /metadata?country=",
			"GET /filters",
			"GET /statistics",
			"GET /health",
		},
		"filters": filterParams(),
	})
}

func filterParams() []string {
	var params []string
	for _, f := range filters.Fields() {
		params = append(params, f.APIParam())
	}
	return params
}

func summarize(s filters.State) FilterSummary {
	return FilterSummary{
		APIParams:         s.APIParams(),
		ActiveFilterCount: s.ActiveCount(),
	}
}

// parsePaging reads limit and offset. A missing limit falls back to the
// configured page size.
func parsePaging(q url.Values) (limit, offset int, err error) {
	limit = conf.Configuration.PageSize
	if limit <= 0 {
		limit = 20
	}

	if v := q.Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit <= 0 {
			return 0, 0, fmt.Errorf("invalid limit %q", v)
		}
		if limit > maxPageSize {
			limit = maxPageSize
		}
	}

	if v := q.Get("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, fmt.Errorf("invalid offset %q", v)
		}
	}

	return limit, offset, nil
}

// fetchErrorStatus maps a catalog error to an HTTP status
func fetchErrorStatus(err error) int {
	switch {
	case errors.Is(err, cache.ErrCacheOnlyMiss):
		return http.StatusTooManyRequests
	case errors.Is(err, circuitbreaker.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case rescueapi.IsNotFound(err):
		return http.StatusNotFound
	default:
		return http.StatusBadGateway
	}
}

func writeFetchError(w http.ResponseWriter, r *http.Request, rec *cache.Recorder, what string, err error) {
	status := fetchErrorStatus(err)
	body := map[string]string{"error": err.Error()}

	switch status {
	case http.StatusTooManyRequests:
		stats.Get().RecordRateLimit("exceeded")
		w.Header().Set("Retry-After", "60")
		body["message"] = "Rate limit exceeded and no cached data is available for this query. Please try again later."
		log.Warnf("%s Cache-only request for %s had no cached data", logcolors.LogRateLimit, what)
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", strconv.Itoa(int(upstream.Breaker().TimeUntilRetry().Seconds())+1))
		log.Warnf("%s Refused %s, circuit breaker open", logcolors.LogUpstream, what)
	case http.StatusNotFound:
		body["error"] = what + " not found"
	default:
		stats.Get().Add(stats.GroupUpstream+".errors", 1)
		log.Errorf("%s Fetching %s failed: %v", logcolors.LogUpstream, what, err)
	}

	Respond(w, r).WithRecorder(rec).Error(status, body)
}

// isAuthorized checks the Authorization header against CACHE_ACCESS_TOKEN.
// An unset token locks the admin endpoints.
func isAuthorized(r *http.Request) bool {
	token := conf.Configuration.CacheAccessToken
	if token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(r.Header.Get("Authorization")), []byte(token)) == 1
}
