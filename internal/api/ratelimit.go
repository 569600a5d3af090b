package api

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"
)

// RateLimitConfig tunes the per-IP API rate limiter. Values come from
// internal/config (SERVER_RATE_LIMIT_RPS / SERVER_RATE_LIMIT_BURST).
type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
	CleanupInterval   time.Duration // Stale bucket eviction cadence
}

// DefaultRateLimitConfig mirrors the config package defaults.
var DefaultRateLimitConfig = RateLimitConfig{
	RequestsPerSecond: 10,
	Burst:             20,
	CleanupInterval:   5 * time.Minute,
}

// clientBucket is one IP's token bucket plus its last activity time.
type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// IPRateLimiter applies a token bucket per client IP. Buckets idle for
// two cleanup intervals are evicted to bound memory.
type IPRateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*clientBucket
	config  RateLimitConfig

	stopChan chan struct{}
	stopOnce sync.Once

	rejected uint64 // atomic
	allowed  uint64 // atomic
}

// NewIPRateLimiter creates a limiter and starts its eviction loop.
func NewIPRateLimiter(cfg RateLimitConfig) *IPRateLimiter {
	rl := &IPRateLimiter{
		buckets:  make(map[string]*clientBucket),
		config:   cfg,
		stopChan: make(chan struct{}),
	}
	if cfg.CleanupInterval > 0 {
		go rl.evictLoop()
	}
	return rl
}

// Stop ends the eviction loop. Safe to call more than once.
func (rl *IPRateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stopChan)
	})
}

// Allow reports whether a request from ip fits its token budget.
func (rl *IPRateLimiter) Allow(ip string) bool {
	now := time.Now()

	rl.mu.Lock()
	b, ok := rl.buckets[ip]
	if !ok {
		b = &clientBucket{
			limiter: rate.NewLimiter(rate.Limit(rl.config.RequestsPerSecond), rl.config.Burst),
		}
		rl.buckets[ip] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	if b.limiter.Allow() {
		atomic.AddUint64(&rl.allowed, 1)
		return true
	}
	atomic.AddUint64(&rl.rejected, 1)
	return false
}

// Middleware rejects over-budget requests with 429 before they reach a
// handler.
func (rl *IPRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow(GetClientIP(r)) {
			RecordConnectionRejected("rate_limit")
			w.Header().Set("Retry-After", "1")
			http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetStats returns allowed/rejected counters.
func (rl *IPRateLimiter) GetStats() map[string]uint64 {
	return map[string]uint64{
		"allowed":  atomic.LoadUint64(&rl.allowed),
		"rejected": atomic.LoadUint64(&rl.rejected),
	}
}

func (rl *IPRateLimiter) evictLoop() {
	ticker := time.NewTicker(rl.config.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stopChan:
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-2 * rl.config.CleanupInterval)
			rl.mu.Lock()
			for ip, b := range rl.buckets {
				if b.lastSeen.Before(cutoff) {
					delete(rl.buckets, ip)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// GetClientIP resolves the client address, preferring proxy headers.
// X-Forwarded-For is only trustworthy behind a proxy that sets it.
func GetClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx >= 0 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}

	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

// WebSocketRateLimiter caps concurrent WebSocket connections per IP.
type WebSocketRateLimiter struct {
	mu       sync.Mutex
	active   map[string]int
	maxPerIP int
}

// NewWebSocketRateLimiter creates a per-IP connection cap.
func NewWebSocketRateLimiter(maxPerIP int) *WebSocketRateLimiter {
	return &WebSocketRateLimiter{
		active:   make(map[string]int),
		maxPerIP: maxPerIP,
	}
}

// Allow reserves a connection slot for ip; the caller must Release it
// when the connection closes.
func (wrl *WebSocketRateLimiter) Allow(ip string) bool {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	if wrl.active[ip] >= wrl.maxPerIP {
		return false
	}
	wrl.active[ip]++
	return true
}

// Release frees a connection slot for ip.
func (wrl *WebSocketRateLimiter) Release(ip string) {
	wrl.mu.Lock()
	defer wrl.mu.Unlock()

	if n := wrl.active[ip]; n > 1 {
		wrl.active[ip] = n - 1
	} else {
		delete(wrl.active, ip)
	}
}

// IsAllowedOrigin accepts browser origins from local development hosts
// only; this server has no public browser frontend.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}
	return strings.HasPrefix(origin, "http://localhost") ||
		strings.HasPrefix(origin, "http://127.0.0.1")
}
