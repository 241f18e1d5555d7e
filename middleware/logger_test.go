package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

func TestGetStatusColor(t *testing.T) {
	tests := []struct {
		status int
		want   string
	}{
		{http.StatusOK, colorGreen},
		{http.StatusNoContent, colorGreen},
		{http.StatusNotModified, colorCyan},
		{http.StatusBadRequest, colorYellow},
		{http.StatusUnauthorized, colorYellow},
		{http.StatusTooManyRequests, colorYellow},
		{http.StatusInternalServerError, colorRed},
		{http.StatusBadGateway, colorRed},
		{http.StatusContinue, colorReset},
	}

	for _, tt := range tests {
		if got := getStatusColor(tt.status); got != tt.want {
			t.Errorf("getStatusColor(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestResponseRecorder_CountsBodyAcrossWrites(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	if rec.StatusCode != http.StatusOK {
		t.Errorf("default status = %d, want %d", rec.StatusCode, http.StatusOK)
	}

	chunks := []string{`{"dogs":[`, `{"id":1,"name":"Rex"}`, `]}`}
	want := 0
	for _, c := range chunks {
		n, err := rec.Write([]byte(c))
		if err != nil {
			t.Fatalf("Write: %v", err)
		}
		want += n
	}

	if rec.BodySize != want {
		t.Errorf("BodySize = %d, want %d", rec.BodySize, want)
	}
	if w.Body.Len() != want {
		t.Errorf("underlying body = %d bytes, want %d", w.Body.Len(), want)
	}
}

func TestResponseRecorder_PassesStatusThrough(t *testing.T) {
	w := httptest.NewRecorder()
	rec := NewResponseRecorder(w)

	rec.WriteHeader(http.StatusServiceUnavailable)

	if rec.StatusCode != http.StatusServiceUnavailable || w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d/%d, want %d", rec.StatusCode, w.Code, http.StatusServiceUnavailable)
	}
}

func TestLoggingMiddleware_Fields(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	tests := []struct {
		name   string
		method string
		target string
		status int
		cache  string
		body   string
	}{
		{"cache hit", http.MethodGet, "/breeds", http.StatusOK, "HIT", `["Beagle"]`},
		{"fallback", http.MethodGet, "/dogs?breed=Pug&offset=20", http.StatusOK, "FALLBACK", `[]`},
		{"no cache header", http.MethodDelete, "/cache", http.StatusUnauthorized, "", `{"error":"unauthorized"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hook.Reset()

			handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.cache != "" {
					w.Header().Set("X-Cache-Status", tt.cache)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))

			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest(tt.method, tt.target, nil))

			entry := hook.LastEntry()
			if entry == nil {
				t.Fatal("no log entry written")
			}
			if entry.Level != log.InfoLevel {
				t.Errorf("level = %v, want info", entry.Level)
			}

			path := strings.SplitN(tt.target, "?", 2)[0]
			want := log.Fields{
				"method": tt.method,
				"path":   path,
				"status": tt.status,
				"bytes":  len(tt.body),
				"cache":  tt.cache,
			}
			for k, v := range want {
				if entry.Data[k] != v {
					t.Errorf("field %s = %v, want %v", k, entry.Data[k], v)
				}
			}
			if _, ok := entry.Data["duration"]; !ok {
				t.Error("missing duration field")
			}
			if !strings.Contains(entry.Message, tt.target) {
				t.Errorf("message %q does not include request URI %q", entry.Message, tt.target)
			}
		})
	}
}

func TestLoggingMiddleware_ImplicitStatus(t *testing.T) {
	hook := logtest.NewGlobal()
	defer hook.Reset()

	handler := LoggingMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	}))
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("no log entry written")
	}
	if entry.Data["status"] != http.StatusOK {
		t.Errorf("status = %v, want %d", entry.Data["status"], http.StatusOK)
	}
	if entry.Data["bytes"] != 2 {
		t.Errorf("bytes = %v, want 2", entry.Data["bytes"])
	}
}
