package security

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// pruneThreshold is the number of tracked identifiers above which idle ones
// are dropped.
const pruneThreshold = 1024

// RateLimiter allows up to maxRequests per window for each identifier.
// Tokens refill continuously, so a drained identifier regains capacity
// gradually over the window. Identifiers whose bucket has refilled are
// forgotten once more than pruneThreshold are tracked.
type RateLimiter struct {
	maxRequests int
	limit       rate.Limit
	now         func() time.Time
	pruneAt     int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewRateLimiter returns a limiter of maxRequests per window.
func NewRateLimiter(maxRequests int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		maxRequests: maxRequests,
		limit:       rate.Limit(float64(maxRequests) / window.Seconds()),
		now:         time.Now,
		pruneAt:     pruneThreshold,
		limiters:    make(map[string]*rate.Limiter),
	}
}

func (r *RateLimiter) limiter(id string) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	l, ok := r.limiters[id]
	if !ok {
		if len(r.limiters) >= r.pruneAt {
			r.pruneLocked()
		}
		l = rate.NewLimiter(r.limit, r.maxRequests)
		r.limiters[id] = l
	}
	return l
}

// pruneLocked drops limiters with a full bucket. They behave exactly like a
// newly created limiter.
func (r *RateLimiter) pruneLocked() {
	now := r.now()
	for id, l := range r.limiters {
		if l.TokensAt(now) >= float64(r.maxRequests) {
			delete(r.limiters, id)
		}
	}
}

// Tracked returns the number of identifiers currently held.
func (r *RateLimiter) Tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Allow consumes one request for id and reports whether it was permitted.
func (r *RateLimiter) Allow(id string) bool {
	return r.limiter(id).AllowN(r.now(), 1)
}

// Remaining returns how many requests id may make right now.
func (r *RateLimiter) Remaining(id string) int {
	r.mu.Lock()
	l, ok := r.limiters[id]
	r.mu.Unlock()
	if !ok {
		return r.maxRequests
	}
	return max(0, int(l.TokensAt(r.now())))
}
