package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
)

// TestHandleReady_NoPingers verifies that a server with no dependency
// probes reports ready (liveness-only mode).
func TestHandleReady_NoPingers(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &fakeEngine{}, &fakeSource{}, nil)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/ready", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Ready {
		t.Error("expected ready=true with no pingers")
	}
}

// TestHandleReady_AllHealthy verifies that healthy probes yield 200 with
// per-dependency check results.
func TestHandleReady_AllHealthy(t *testing.T) {
	t.Parallel()

	cfg := &Config{Pingers: []Pinger{
		PingerFunc{Label: "catalog", Fn: func(context.Context) error { return nil }},
		PingerFunc{Label: "qdrant", Fn: func(context.Context) error { return nil }},
	}}
	s := newTestServer(t, &fakeEngine{}, &fakeSource{}, cfg)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/ready", "", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var got readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.Ready {
		t.Error("expected ready=true")
	}
	if len(got.Checks) != 2 {
		t.Fatalf("expected 2 checks, got %d", len(got.Checks))
	}
	if got.Checks[0].Name != "catalog" || !got.Checks[0].OK {
		t.Errorf("unexpected catalog check: %+v", got.Checks[0])
	}
}

// TestHandleReady_FailingDependency verifies that one failing probe flips
// the endpoint to 503 while healthy checks still report OK.
func TestHandleReady_FailingDependency(t *testing.T) {
	t.Parallel()

	cfg := &Config{Pingers: []Pinger{
		PingerFunc{Label: "catalog", Fn: func(context.Context) error { return nil }},
		PingerFunc{Label: "qdrant", Fn: func(context.Context) error {
			return errors.New("connection refused")
		}},
	}}
	s := newTestServer(t, &fakeEngine{}, &fakeSource{}, cfg)

	w := doJSON(t, s.Handler(), http.MethodGet, "/api/ready", "", nil)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", w.Code)
	}
	var got readyResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Ready {
		t.Error("expected ready=false")
	}
	if !got.Checks[0].OK {
		t.Error("catalog check should still be OK")
	}
	if got.Checks[1].OK || got.Checks[1].Error == "" {
		t.Errorf("qdrant check should fail with an error: %+v", got.Checks[1])
	}
}

// TestPingerFunc_WrapsError verifies that the adapter labels probe
// failures with the dependency name.
func TestPingerFunc_WrapsError(t *testing.T) {
	t.Parallel()

	p := PingerFunc{Label: "catalog", Fn: func(context.Context) error {
		return errors.New("locked")
	}}

	if p.Name() != "catalog" {
		t.Errorf("Name() = %q", p.Name())
	}
	err := p.Ping(context.Background())
	if err == nil {
		t.Fatal("expected an error")
	}
	if got := err.Error(); got != "catalog probe failed: locked" {
		t.Errorf("error = %q", got)
	}
}
