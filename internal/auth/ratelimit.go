package auth

import (
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter holds simple in-memory fixed-window counters, good for a
// single-instance deployment. Stale buckets are pruned on use so the map
// does not grow with every client address ever seen.
type RateLimiter struct {
	mu        sync.Mutex
	data      map[string]rateBucket
	lastPrune time.Time
}

type rateBucket struct {
	window time.Time
	until  time.Time
	count  int
}

const pruneInterval = time.Minute

// NewRateLimiter creates an empty limiter.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{data: make(map[string]rateBucket)}
}

// Allow reports whether a request identified by key is within its limit.
func (rl *RateLimiter) Allow(key string, limit int, per time.Duration, now time.Time) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastPrune) >= pruneInterval {
		for k, b := range rl.data {
			if !now.Before(b.until) {
				delete(rl.data, k)
			}
		}
		rl.lastPrune = now
	}

	b, ok := rl.data[key]
	win := now.Truncate(per)
	if !ok || b.window.Before(win) {
		rl.data[key] = rateBucket{window: win, until: win.Add(per), count: 1}
		return true
	}
	if b.count >= limit {
		return false
	}
	b.count++
	rl.data[key] = b
	return true
}

// LimitIP enforces a per-IP rate limit on the wrapped handler.
func (rl *RateLimiter) LimitIP(limit int, per time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := ipKey(r)
			if key != "" && !rl.Allow(key, limit, per, time.Now()) {
				WriteJSON(w, http.StatusTooManyRequests, "Too many requests, please try again later.", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ipKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil || host == "" {
		host = r.RemoteAddr
	}
	if host == "" {
		return ""
	}
	return "ip:" + host
}
