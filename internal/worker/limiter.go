package worker

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// Limiter throttles outbound requests per key (provider/model).
// Waiting for a token delays the first and only attempt; nothing is re-sent.
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 1
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// NewPerMinuteLimiter builds a limiter from a requests-per-minute budget.
// Returns nil when rpm is not positive, which disables throttling.
func NewPerMinuteLimiter(rpm float64) *Limiter {
	if rpm <= 0 {
		return nil
	}
	burst := int(rpm / 60)
	if burst < 1 {
		burst = 1
	}
	return NewLimiter(rpm/60, burst)
}

// Wait blocks until a request for key may be dispatched
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

// getLimiter returns the rate limiter for a key
func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}
