package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// okHandler is a trivial handler used to verify that allowed requests
// reach the downstream handler.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
})

// TestRateLimit_AllowsUnderLimit verifies that requests within the burst
// capacity are passed through to the downstream handler.
func TestRateLimit_AllowsUnderLimit(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(100, 5, slog.Default())
	defer stop()

	h := rl.middleware(okHandler)

	for i := range 5 {
		req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
		req.RemoteAddr = "127.0.0.1:12345"
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("request %d: expected 200, got %d", i, w.Code)
		}
	}
}

// TestRateLimit_BlocksOverLimit verifies that requests exceeding the burst
// capacity receive 429 Too Many Requests with a Retry-After header.
func TestRateLimit_BlocksOverLimit(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 2, slog.Default())
	defer stop()

	h := rl.middleware(okHandler)

	// Consume the burst.
	for range 2 {
		req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
		req.RemoteAddr = "10.0.0.1:9999"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = "10.0.0.1:9999"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on 429 response")
	}
}

// TestRateLimit_PerIPIsolation verifies that two different IPs have
// independent token buckets.
func TestRateLimit_PerIPIsolation(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0.001, 1, slog.Default())
	defer stop()

	h := rl.middleware(okHandler)

	// Exhaust IP A.
	for range 5 {
		req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
		req.RemoteAddr = "192.168.1.1:1111"
		h.ServeHTTP(httptest.NewRecorder(), req)
	}

	// IP B should still be allowed.
	req := httptest.NewRequest(http.MethodPost, "/api/query", nil)
	req.RemoteAddr = "192.168.1.2:2222"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("IP B: expected 200, got %d, buckets must be independent", w.Code)
	}
}

// TestRateLimit_ZeroConfigSelectsDefaults verifies that zero rps and burst
// fall back to the documented defaults.
func TestRateLimit_ZeroConfigSelectsDefaults(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(0, 0, slog.Default())
	defer stop()

	if float64(rl.rps) != defaultRateLimit {
		t.Errorf("rps = %v, want %v", rl.rps, defaultRateLimit)
	}
	if rl.burst != defaultRateBurst {
		t.Errorf("burst = %d, want %d", rl.burst, defaultRateBurst)
	}
}

// TestRateLimit_EvictsStaleEntries verifies that evict removes entries
// older than the TTL and keeps fresh ones.
func TestRateLimit_EvictsStaleEntries(t *testing.T) {
	t.Parallel()

	rl, stop := newRateLimiter(10, 10, slog.Default())
	defer stop()

	rl.getLimiter("1.1.1.1")
	rl.getLimiter("2.2.2.2")

	rl.mu.Lock()
	rl.limiters["1.1.1.1"].lastSeen = time.Now().Add(-2 * limiterTTL)
	rl.mu.Unlock()

	rl.evict()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.limiters["1.1.1.1"]; ok {
		t.Error("stale entry should have been evicted")
	}
	if _, ok := rl.limiters["2.2.2.2"]; !ok {
		t.Error("fresh entry should have survived eviction")
	}
}

// TestClientIP verifies that clientIP strips the port from RemoteAddr.
func TestClientIP(t *testing.T) {
	t.Parallel()

	cases := []struct {
		remoteAddr string
		wantIP     string
	}{
		{"127.0.0.1:54321", "127.0.0.1"},
		{"10.0.0.1:80", "10.0.0.1"},
		{"::1:8080", "::1"},
		{"noport", "noport"},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = tc.remoteAddr
		got := clientIP(req)
		if got != tc.wantIP {
			t.Errorf("remoteAddr=%q: expected %q, got %q", tc.remoteAddr, tc.wantIP, got)
		}
	}
}
