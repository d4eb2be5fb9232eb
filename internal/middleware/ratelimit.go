package middleware

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// maxTrackedClients caps the client map so an address scan cannot grow it
// without bound. New clients past the cap are rejected until cleanup runs.
const maxTrackedClients = 100000

// RateLimiter throttles requests per client IP with a token bucket. The
// sustained rate and the burst allowance come from server config.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*tokenBucket
	rps     float64
	burst   float64
}

// tokenBucket tracks one client. seen is both the refill reference point and
// the idle marker for cleanup.
type tokenBucket struct {
	tokens float64
	seen   time.Time
}

// NewRateLimiter creates a limiter allowing rps sustained requests per second
// per IP, with burst extra requests absorbed on top.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*tokenBucket),
		rps:     rps,
		burst:   float64(burst),
	}
}

// Handler returns middleware enforcing the limit. Throttled requests get a
// 429 with a Retry-After hint.
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		remaining, retryAfter, ok := rl.take(clientIP(r))

		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(time.Second).Unix(), 10))

		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter))))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":"rate limit exceeded"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// take consumes one token for ip. It returns the remaining whole tokens, the
// seconds until the next token when the request was rejected, and whether the
// request may proceed.
func (rl *RateLimiter) take(ip string) (remaining int, retryAfter float64, ok bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	b := rl.clients[ip]
	if b == nil {
		if len(rl.clients) >= maxTrackedClients {
			return 0, 1 / rl.rps, false
		}
		b = &tokenBucket{tokens: rl.burst - 1, seen: now}
		rl.clients[ip] = b
		return int(b.tokens), 0, true
	}

	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.seen).Seconds()*rl.rps)
	b.seen = now

	if b.tokens < 1 {
		return 0, (1 - b.tokens) / rl.rps, false
	}
	b.tokens--
	return int(b.tokens), 0, true
}

// StartCleanup drops clients idle longer than maxIdle, checking every
// interval. The returned func stops the cleanup goroutine.
func (rl *RateLimiter) StartCleanup(interval, maxIdle time.Duration) func() {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.cleanup(maxIdle)
			}
		}
	}()
	return cancel
}

func (rl *RateLimiter) cleanup(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cutoff := time.Now().Add(-maxIdle)
	for ip, b := range rl.clients {
		if b.seen.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// Len returns the number of tracked clients.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.clients)
}

// clientIP comes from RemoteAddr only. Proxy headers are spoofable, so they
// never feed the limiter.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
