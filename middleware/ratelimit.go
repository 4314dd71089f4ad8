package middleware

import (
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// userLimiter tracks one user's token bucket and last access time so stale
// entries can be evicted.
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter applies a per-user token bucket to mutation routes. Users
// are identified by the UserID the auth middleware put into the context,
// so it must run after AuthMiddleware.
type RateLimiter struct {
	mu       sync.Mutex
	users    map[string]*userLimiter
	rate     rate.Limit
	burst    int
	lastSeen time.Duration
}

// NewRateLimiter builds a limiter allowing perMinute requests per user
// with the given burst.
func NewRateLimiter(perMinute, burst int) *RateLimiter {
	rl := &RateLimiter{
		users:    make(map[string]*userLimiter),
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    burst,
		lastSeen: 10 * time.Minute,
	}
	go rl.cleanupLoop()
	return rl
}

func (rl *RateLimiter) allow(userID string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	ul, ok := rl.users[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.users[userID] = ul
	}
	ul.lastAccess = time.Now()
	return ul.limiter.Allow()
}

// cleanupLoop evicts buckets that have been idle long enough to be full
// again anyway.
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		cutoff := time.Now().Add(-rl.lastSeen)
		rl.mu.Lock()
		for id, ul := range rl.users {
			if ul.lastAccess.Before(cutoff) {
				delete(rl.users, id)
			}
		}
		rl.mu.Unlock()
	}
}

// Middleware rejects requests over the per-user budget with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, _ := r.Context().Value(UserIDKey).(string)
		if userID != "" && !rl.allow(userID) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
