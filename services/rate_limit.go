package services

import (
	"sync"

	"restaurant-hub/domain"

	"golang.org/x/time/rate"
)

// CommandLimiter is a token bucket per connection. Buckets are dropped
// when the connection goes away.
type CommandLimiter struct {
	mu      sync.Mutex
	buckets map[domain.ConnectionID]*rate.Limiter
	rate    rate.Limit
	burst   int
}

// NewCommandLimiter allows perSecond commands with bursts of burst.
// A rate of zero or less disables limiting.
func NewCommandLimiter(perSecond float64, burst int) *CommandLimiter {
	limit := rate.Limit(perSecond)
	if perSecond <= 0 {
		limit = rate.Inf
	}
	if burst < 1 {
		burst = 1
	}
	return &CommandLimiter{
		buckets: make(map[domain.ConnectionID]*rate.Limiter),
		rate:    limit,
		burst:   burst,
	}
}

func (l *CommandLimiter) Allow(id domain.ConnectionID) bool {
	l.mu.Lock()
	bucket, ok := l.buckets[id]
	if !ok {
		bucket = rate.NewLimiter(l.rate, l.burst)
		l.buckets[id] = bucket
	}
	l.mu.Unlock()
	return bucket.Allow()
}

func (l *CommandLimiter) Forget(id domain.ConnectionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, id)
}

func (l *CommandLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}
