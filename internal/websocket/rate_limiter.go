package websocket

import (
	"sync"
	"time"
)

// rateLimiter is a per-connection token bucket: a burst of sends is allowed,
// then one token refills per interval up to the burst size.
type rateLimiter struct {
	mu         sync.Mutex
	tokens     int
	burst      int
	refill     time.Duration
	lastRefill time.Time
}

func newRateLimiter(burst int, refill time.Duration) *rateLimiter {
	if burst <= 0 || refill <= 0 {
		return nil
	}
	return &rateLimiter{
		tokens:     burst,
		burst:      burst,
		refill:     refill,
		lastRefill: time.Now(),
	}
}

// allow consumes a token if one is available. A nil limiter allows
// everything.
func (l *rateLimiter) allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if elapsed := now.Sub(l.lastRefill); elapsed >= l.refill {
		refilled := int(elapsed / l.refill)
		l.tokens += refilled
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.lastRefill = l.lastRefill.Add(time.Duration(refilled) * l.refill)
	}

	if l.tokens <= 0 {
		return false
	}
	l.tokens--
	return true
}
