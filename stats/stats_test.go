package stats

import (
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestRecordCounters(t *testing.T) {
	s := New()

	s.RecordRequest("/dogs")
	s.RecordRequest("/dogs")
	s.RecordRequest("/metadata")
	s.RecordCacheOutcome("animals", "HIT")
	s.RecordCacheOutcome("animals", "MISS")
	s.RecordCacheOutcome("standardizedBreeds", "FALLBACK")
	s.RecordRateLimit("cached")
	s.RecordStatusCode(200)
	s.RecordStatusCode(404)
	s.RecordStatusCode(502)
	s.RecordStatusCode(301)

	tests := []struct {
		name     string
		expected int64
	}{
		{"requests.total", 3},
		{"requests./dogs", 2},
		{"requests./metadata", 1},
		{"cache.hit", 1},
		{"cache.miss", 1},
		{"cache.fallback", 1},
		{"cache.fallback.standardizedBreeds", 1},
		{"rate_limiting.cached", 1},
		{"responses.2xx", 1},
		{"responses.4xx", 1},
		{"responses.5xx", 1},
		{"never.touched", 0},
	}

	for _, tt := range tests {
		if got := s.Count(tt.name); got != tt.expected {
			t.Errorf("Count(%q) = %d, want %d", tt.name, got, tt.expected)
		}
	}

	if rate := s.CacheHitRate(); rate != 50 {
		t.Errorf("Expected hit rate 50, got %v", rate)
	}
}

func TestResponseTimes(t *testing.T) {
	s := New()

	if s.MinResponseTime() != 0 || s.AvgResponseTime() != 0 {
		t.Error("Expected zero response times before any request")
	}

	s.RecordResponseTime(10*time.Millisecond, "/dogs")
	s.RecordResponseTime(30*time.Millisecond, "/dogs")
	s.RecordResponseTime(2*time.Millisecond, "/health")

	if s.MinResponseTime() != 2*time.Millisecond {
		t.Errorf("Expected min 2ms, got %v", s.MinResponseTime())
	}
	if s.MaxResponseTime() != 30*time.Millisecond {
		t.Errorf("Expected max 30ms, got %v", s.MaxResponseTime())
	}
	if s.AvgRouteResponseTime("/dogs") != 20*time.Millisecond {
		t.Errorf("Expected /dogs avg 20ms, got %v", s.AvgRouteResponseTime("/dogs"))
	}
	if s.AvgResponseTime() != 14*time.Millisecond {
		t.Errorf("Expected avg 14ms, got %v", s.AvgResponseTime())
	}
}

func TestSnapshotGroups(t *testing.T) {
	s := New()
	s.RecordRequest("/dogs")
	s.RecordCacheOutcome("animals", "HIT")
	s.RecordResponseTime(time.Millisecond, "/dogs")

	snap := s.Snapshot()

	requests, ok := snap["requests"].(map[string]int64)
	if !ok || requests["/dogs"] != 1 || requests["total"] != 1 {
		t.Errorf("Unexpected requests group: %#v", snap["requests"])
	}
	cache, ok := snap["cache"].(map[string]interface{})
	if !ok || cache["hit_rate"] != float64(100) {
		t.Errorf("Unexpected cache group: %#v", snap["cache"])
	}
	times := snap["response_times"].(map[string]interface{})
	if perRoute := times["per_route"].(map[string]string); perRoute["/dogs"] != "1ms" {
		t.Errorf("Unexpected per-route times: %#v", perRoute)
	}
}

func TestConcurrentAdd(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.RecordRequest("/dogs")
			}
		}()
	}
	wg.Wait()

	if got := s.Count("requests./dogs"); got != 5000 {
		t.Errorf("Expected 5000, got %d", got)
	}
}

func TestStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "stats.db")

	s := New()
	s.RecordRequest("/dogs")
	s.RecordCacheOutcome("animals", "MISS")
	s.RecordResponseTime(5*time.Millisecond, "/dogs")
	started := s.StartTime

	store, err := NewStore(path, s)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	restored := New()
	store, err = NewStore(path, restored)
	if err != nil {
		t.Fatalf("NewStore() reopen error = %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if restored.Count("requests./dogs") != 1 || restored.Count("cache.miss") != 1 {
		t.Errorf("Counters not restored: %v", restored.Counters())
	}
	if restored.MaxResponseTime() != 5*time.Millisecond {
		t.Errorf("Expected max 5ms restored, got %v", restored.MaxResponseTime())
	}
	if !restored.StartTime.Equal(started) {
		t.Errorf("Expected first start time %v, got %v", started, restored.StartTime)
	}
}

func TestStoreLoadEmpty(t *testing.T) {
	store, err := NewStore(filepath.Join(t.TempDir(), "stats.db"), New())
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	defer store.Close()

	if err := store.Load(); err != nil {
		t.Errorf("Load() on empty store error = %v", err)
	}
}

func TestStoreAutoSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.db")
	s := New()
	store, err := NewStore(path, s)
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}

	store.StartAutoSave(10 * time.Millisecond)
	s.RecordRateLimit("normal")
	time.Sleep(50 * time.Millisecond)

	if err := store.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := store.Close(); err == nil {
		t.Log("second Close on a closed database returned nil")
	}
}
