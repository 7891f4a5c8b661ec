package httpapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	SecurityHeaders(okHandler()).ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatalf("missing nosniff header")
	}
	if rec.Header().Get("X-Frame-Options") != "DENY" {
		t.Fatalf("missing frame options header")
	}
}

func TestCORSPreflight(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/v1/tokens", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	CORS(okHandler()).ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status=%d", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "http://localhost:3000" {
		t.Fatalf("local origin not allowed")
	}
}

func TestCORSRejectsForeignOrigin(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	CORS(okHandler()).ServeHTTP(rec, req)

	if rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("foreign origin must not be echoed")
	}
}

func TestRateLimitEventuallyRejects(t *testing.T) {
	h := RateLimit(okHandler())
	var rejected bool
	for i := 0; i < rateLimitBurst*2; i++ {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.RemoteAddr = "192.0.2.77:1234"
		h.ServeHTTP(rec, req)
		if rec.Code == http.StatusTooManyRequests {
			rejected = true
			break
		}
	}
	if !rejected {
		t.Fatalf("burst above the limit was never rejected")
	}
}

func TestRateLimitEvictsIdleBuckets(t *testing.T) {
	t0 := time.Now()
	limiterFor("198.51.100.9", t0)

	// A request past the TTL triggers the sweep and drops the idle bucket.
	limiterFor("198.51.100.10", t0.Add(limiterTTL+time.Minute))

	limiterMu.Lock()
	_, stale := limiters["198.51.100.9"]
	_, fresh := limiters["198.51.100.10"]
	limiterMu.Unlock()
	if stale {
		t.Fatalf("idle bucket survived the TTL sweep")
	}
	if !fresh {
		t.Fatalf("active bucket must survive the sweep")
	}
}

func TestMaxBodyBytesCapsReads(t *testing.T) {
	h := MaxBodyBytes(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.Copy(io.Discard, r.Body); err != nil {
			respondError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		w.WriteHeader(http.StatusOK)
	}), 64)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/authz/check", strings.NewReader(strings.Repeat("x", 256)))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized body status=%d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/v1/authz/check", strings.NewReader("under the cap"))
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("small body status=%d", rec.Code)
	}
}
