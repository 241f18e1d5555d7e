package middleware

import (
	"crypto/subtle"
	"dogs-api-go/logcolors"
	"encoding/json"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
)

// APIKeyMiddleware requires a valid X-API-Key header when required is true.
// If required is true but apiKey is empty, it logs a warning and lets every
// request through. Public paths are always allowed; a trailing "*" matches
// a prefix. A valid key marks the request context as authenticated even
// when the key is optional.
func APIKeyMiddleware(apiKey string, required bool, publicPaths []string) func(http.Handler) http.Handler {
	exact := make(map[string]bool)
	var prefixes []string
	for _, p := range publicPaths {
		if strings.HasSuffix(p, "*") {
			prefixes = append(prefixes, strings.TrimSuffix(p, "*"))
		} else {
			exact[p] = true
		}
	}

	isPublic := func(path string) bool {
		if exact[path] {
			return true
		}
		for _, prefix := range prefixes {
			if strings.HasPrefix(path, prefix) {
				return true
			}
		}
		return false
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get("X-API-Key")
			valid := apiKey != "" && provided != "" &&
				subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) == 1

			if valid {
				next.ServeHTTP(w, r.WithContext(WithAPIKeyAuthenticated(r.Context())))
				return
			}

			if !required || isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			if apiKey == "" {
				log.Warnf("%s API key required but not configured, allowing request", logcolors.LogAPIKey)
				next.ServeHTTP(w, r)
				return
			}

			if provided == "" {
				log.Warnf("%s Missing API key from %s for %s", logcolors.LogAPIKey, ClientIP(r), r.URL.Path)
				writeJSONError(w, http.StatusUnauthorized, "API key required", "Provide a valid API key via X-API-Key header")
				return
			}

			log.Warnf("%s Invalid API key from %s for %s", logcolors.LogAPIKey, ClientIP(r), r.URL.Path)
			writeJSONError(w, http.StatusUnauthorized, "Invalid API key", "The provided API key is not valid")
		})
	}
}

func writeJSONError(w http.ResponseWriter, status int, errMsg, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{
		"error":   errMsg,
		"message": message,
	})
}
