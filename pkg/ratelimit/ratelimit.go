package ratelimit

import (
	"sync"
	"time"
)

// Limiter is a token bucket rate limiter. Tokens accrue continuously at a
// fixed rate up to the burst capacity; each allowed request consumes one.
type Limiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	capacity float64
	tokens   float64
	last     time.Time
}

// New creates a Limiter that admits rate requests per second with bursts of
// up to burst requests. The bucket starts full.
func New(rate float64, burst int) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		rate:     rate,
		capacity: float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
	}
}

// Allow reports whether a request may proceed now, consuming a token when it
// may.
func (l *Limiter) Allow() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.last)
	if elapsed > 0 {
		l.tokens += elapsed.Seconds() * l.rate
		if l.tokens > l.capacity {
			l.tokens = l.capacity
		}
		l.last = now
	}

	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}
