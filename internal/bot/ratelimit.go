package bot

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// rateLimiter throttles message handling per user. Each user gets one token
// every interval with no burst, matching the floor between two handled
// messages from the same chat.
type rateLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	users    map[int64]*userLimiter
	lastGC   time.Time
}

type userLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// staleAfter is how long an idle user's limiter survives before pruning.
const staleAfter = 30 * time.Minute

func newRateLimiter(interval time.Duration) *rateLimiter {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &rateLimiter{
		interval: interval,
		users:    make(map[int64]*userLimiter),
		lastGC:   time.Now(),
	}
}

// Allow reports whether a message from the user may be handled now.
func (r *rateLimiter) Allow(userID int64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if now.Sub(r.lastGC) > staleAfter {
		r.prune(now)
	}

	ul, ok := r.users[userID]
	if !ok {
		ul = &userLimiter{limiter: rate.NewLimiter(rate.Every(r.interval), 1)}
		r.users[userID] = ul
	}
	ul.lastSeen = now
	return ul.limiter.Allow()
}

// prune drops limiters for users not seen recently. Caller holds the lock.
func (r *rateLimiter) prune(now time.Time) {
	for id, ul := range r.users {
		if now.Sub(ul.lastSeen) > staleAfter {
			delete(r.users, id)
		}
	}
	r.lastGC = now
}
