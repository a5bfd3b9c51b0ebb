package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestQueueCounters(t *testing.T) {
	m := New()

	m.CaptureSucceeded("primary")
	m.CaptureSucceeded("primary")
	m.CaptureSucceeded("secondary")
	m.CaptureFailed("primary")
	m.Evicted("primary")
	m.Deleted()
	m.EraseFailed()
	m.EraseFailed()

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"captures primary", testutil.ToFloat64(m.captures.WithLabelValues("primary")), 2},
		{"captures secondary", testutil.ToFloat64(m.captures.WithLabelValues("secondary")), 1},
		{"capture failures", testutil.ToFloat64(m.captureFailures.WithLabelValues("primary")), 1},
		{"evictions", testutil.ToFloat64(m.evictions.WithLabelValues("primary")), 1},
		{"deletions", testutil.ToFloat64(m.deletions), 1},
		{"erase failures", testutil.ToFloat64(m.eraseFailures), 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}
}

func TestGaugesOverwrite(t *testing.T) {
	m := New()

	m.QueueLength("primary", 5)
	m.QueueLength("primary", 2)
	m.CacheEntries("thumbnail", 20)
	m.CacheEntries("thumbnail", 0)

	if got := testutil.ToFloat64(m.queueLength.WithLabelValues("primary")); got != 2 {
		t.Errorf("queue length = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.cacheEntries.WithLabelValues("thumbnail")); got != 0 {
		t.Errorf("cache entries = %v, want 0", got)
	}
}

func TestCacheCounters(t *testing.T) {
	m := New()

	m.CacheMiss("full")
	m.CacheHit("full")
	m.CacheHit("full")
	m.CacheFallback("thumbnail")
	m.CacheEvicted("thumbnail")

	expected := `
# HELP glimpse_cache_hits_total Derivative lookups served from the cache.
# TYPE glimpse_cache_hits_total counter
glimpse_cache_hits_total{kind="full"} 2
# HELP glimpse_cache_misses_total Derivative lookups that ran a transform.
# TYPE glimpse_cache_misses_total counter
glimpse_cache_misses_total{kind="full"} 1
`
	err := testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected),
		"glimpse_cache_hits_total", "glimpse_cache_misses_total")
	if err != nil {
		t.Error(err)
	}
	if got := testutil.ToFloat64(m.cacheFallbacks.WithLabelValues("thumbnail")); got != 1 {
		t.Errorf("fallbacks = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.cacheEvictions.WithLabelValues("thumbnail")); got != 1 {
		t.Errorf("evictions = %v, want 1", got)
	}
}

func TestIndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.Deleted()

	if got := testutil.ToFloat64(b.deletions); got != 0 {
		t.Errorf("second registry saw %v deletions, want 0", got)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.CaptureSucceeded("primary")

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if !strings.Contains(string(body), `glimpse_queue_captures_total{view="primary"} 1`) {
		t.Errorf("exposition missing capture counter:\n%s", body)
	}
}
