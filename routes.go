package main

import (
	"net/http"

	"github.com/gorilla/mux"
)

// setupRoutes configures all HTTP routes for the API
func setupRoutes(router *mux.Router) {
	router.Use(recordRequestStats)

	// Dog listing and detail
	router.HandleFunc("/dogs", getDogs).Methods(http.MethodGet)
	router.HandleFunc("/dogs/{slug}", getDog).Methods(http.MethodGet)

	// Organizations
	router.HandleFunc("/organizations", getOrganizations).Methods(http.MethodGet)
	router.HandleFunc("/organizations/{slug}", getOrganization).Methods(http.MethodGet)

	// Filter support: reference lists and derived params
	router.HandleFunc("/metadata", getMetadata).Methods(http.MethodGet)
	router.HandleFunc("/filters", getFilters).Methods(http.MethodGet)
	router.HandleFunc("/statistics", getStatistics).Methods(http.MethodGet)

	// Cache management endpoints
	router.HandleFunc("/cache", getCacheDump).Methods(http.MethodGet)
	router.HandleFunc("/cache/clear", clearCache).Methods(http.MethodPost)

	// Health and stats endpoints
	router.HandleFunc("/health", getHealthStatus).Methods(http.MethodGet)
	router.HandleFunc("/stats", getStats).Methods(http.MethodGet)

	// Circuit breaker endpoints
	router.HandleFunc("/circuit-breaker", getCircuitBreakerStatus).Methods(http.MethodGet)
	router.HandleFunc("/circuit-breaker/reset", resetCircuitBreaker).Methods(http.MethodPost)

	// Help endpoint
	router.HandleFunc("/", helpHandler)
}
