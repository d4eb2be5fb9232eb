package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func limitedHandler(rl *RateLimiter) http.Handler {
	return rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func hit(t *testing.T, h http.Handler, ip string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	req.RemoteAddr = ip + ":12345"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRateLimiterBurst(t *testing.T) {
	rl := NewRateLimiter(10, 5)
	h := limitedHandler(rl)

	for i := 0; i < 5; i++ {
		if rec := hit(t, h, "192.168.1.1"); rec.Code != http.StatusOK {
			t.Errorf("request %d: code = %d, want 200", i+1, rec.Code)
		}
	}

	rec := hit(t, h, "192.168.1.1")
	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("over burst: code = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("throttled response missing Retry-After")
	}
}

func TestRateLimiterRefills(t *testing.T) {
	rl := NewRateLimiter(100, 1)
	h := limitedHandler(rl)

	if rec := hit(t, h, "192.168.1.1"); rec.Code != http.StatusOK {
		t.Fatalf("first request: code = %d", rec.Code)
	}
	if rec := hit(t, h, "192.168.1.1"); rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request: code = %d, want 429", rec.Code)
	}

	// At 100 rps a token is back within 10ms.
	time.Sleep(20 * time.Millisecond)
	if rec := hit(t, h, "192.168.1.1"); rec.Code != http.StatusOK {
		t.Errorf("after refill: code = %d, want 200", rec.Code)
	}
}

func TestRateLimiterHeaders(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	h := limitedHandler(rl)

	rec := hit(t, h, "192.168.1.1")
	if rec.Header().Get("X-RateLimit-Remaining") == "" {
		t.Error("missing X-RateLimit-Remaining header")
	}
	if rec.Header().Get("X-RateLimit-Reset") == "" {
		t.Error("missing X-RateLimit-Reset header")
	}
}

func TestRateLimiterPerIP(t *testing.T) {
	rl := NewRateLimiter(10, 2)
	h := limitedHandler(rl)

	hit(t, h, "10.0.0.1")
	hit(t, h, "10.0.0.1")

	if rec := hit(t, h, "10.0.0.1"); rec.Code != http.StatusTooManyRequests {
		t.Errorf("exhausted IP: code = %d, want 429", rec.Code)
	}
	if rec := hit(t, h, "10.0.0.2"); rec.Code != http.StatusOK {
		t.Errorf("fresh IP: code = %d, want 200", rec.Code)
	}
}

func TestRateLimiterCleanup(t *testing.T) {
	rl := NewRateLimiter(10, 10)
	h := limitedHandler(rl)

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		hit(t, h, ip)
	}
	if got := rl.Len(); got != 3 {
		t.Fatalf("tracked clients = %d, want 3", got)
	}

	// Everything is already idle against a zero cutoff.
	rl.cleanup(0)
	if got := rl.Len(); got != 0 {
		t.Errorf("tracked clients after cleanup = %d, want 0", got)
	}
}
