package middleware

import (
	"dogs-api-go/logcolors"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// ResponseRecorder captures the status code and body size of a response
type ResponseRecorder struct {
	http.ResponseWriter
	StatusCode int
	BodySize   int
}

// NewResponseRecorder wraps w; the status defaults to 200 until WriteHeader
func NewResponseRecorder(w http.ResponseWriter) *ResponseRecorder {
	return &ResponseRecorder{ResponseWriter: w, StatusCode: http.StatusOK}
}

func (r *ResponseRecorder) WriteHeader(statusCode int) {
	r.StatusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

func (r *ResponseRecorder) Write(b []byte) (int, error) {
	n, err := r.ResponseWriter.Write(b)
	r.BodySize += n
	return n, err
}

func getStatusColor(status int) string {
	switch {
	case status >= 500:
		return colorRed
	case status >= 400:
		return colorYellow
	case status >= 300:
		return colorCyan
	case status >= 200:
		return colorGreen
	default:
		return colorReset
	}
}

// LoggingMiddleware logs method, path, status, size and latency per request
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := NewResponseRecorder(w)

		next.ServeHTTP(rec, r)

		color := getStatusColor(rec.StatusCode)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.StatusCode,
			"bytes":    rec.BodySize,
			"duration": time.Since(start).String(),
			"cache":    w.Header().Get("X-Cache-Status"),
		}).Infof("%s %s %s %s%d%s", logcolors.LogHTTP, r.Method, r.URL.RequestURI(), color, rec.StatusCode, colorReset)
	})
}
