package main

import (
	"dogs-api-go/cache"
	"dogs-api-go/middleware"
	"encoding/json"
	"net/http"
)

// APIResponse handles consistent header setting and JSON responses.
// It centralizes the logic for setting X-Auth-Mode, X-Cache-Status and
// X-RateLimit-Type based on request context.
type APIResponse struct {
	w           http.ResponseWriter
	r           *http.Request
	cacheStatus string
}

// Respond creates a response helper from request context
func Respond(w http.ResponseWriter, r *http.Request) *APIResponse {
	return &APIResponse{w: w, r: r}
}

// SetCacheStatus sets the X-Cache-Status header value
func (a *APIResponse) SetCacheStatus(status string) *APIResponse {
	a.cacheStatus = status
	return a
}

// WithRecorder takes X-Cache-Status from the worst memo outcome seen while
// serving the request. A recorder that saw nothing leaves the header unset.
func (a *APIResponse) WithRecorder(rec *cache.Recorder) *APIResponse {
	if rec != nil {
		a.cacheStatus = string(rec.Outcome())
	}
	return a
}

// writeHeaders sets all standard headers based on context
func (a *APIResponse) writeHeaders() {
	a.w.Header().Set("Content-Type", "application/json")

	if a.cacheStatus != "" {
		a.w.Header().Set("X-Cache-Status", a.cacheStatus)
	}

	if middleware.APIKeyAuthenticated(a.r.Context()) {
		a.w.Header().Set("X-Auth-Mode", "authenticated")
	}

	if tier := middleware.RateLimitType(a.r.Context()); tier != "" {
		a.w.Header().Set("X-RateLimit-Type", tier)
	}
}

// JSON writes headers and encodes data as JSON (200 OK)
func (a *APIResponse) JSON(data interface{}) error {
	a.writeHeaders()
	return json.NewEncoder(a.w).Encode(data)
}

// Error writes headers, sets status code, and encodes error response
func (a *APIResponse) Error(statusCode int, data interface{}) error {
	a.writeHeaders()
	a.w.WriteHeader(statusCode)
	return json.NewEncoder(a.w).Encode(data)
}
