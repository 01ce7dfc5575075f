// Package ratelimit throttles delivery attempts to one endpoint.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter is a token bucket whose burst equals its per-second rate.
// A nil *Limiter never throttles.
type Limiter struct {
	mu       sync.Mutex
	rate     float64 // tokens per second
	tokens   float64
	lastFill time.Time
}

// New creates a limiter allowing perSecond attempts per second. It returns
// nil when perSecond is zero or negative.
func New(perSecond int) *Limiter {
	if perSecond <= 0 {
		return nil
	}
	return &Limiter{
		rate:     float64(perSecond),
		tokens:   float64(perSecond), // start full
		lastFill: time.Now(),
	}
}

// Allow takes a token if one is available.
func (l *Limiter) Allow() bool {
	if l == nil {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.refill()
	if l.tokens >= 1 {
		l.tokens--
		return true
	}
	return false
}

// Wait blocks until a token is available or ctx is done.
func (l *Limiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	interval := time.Duration(float64(time.Second) / l.rate)
	for {
		if l.Allow() {
			return nil
		}

		t := time.NewTimer(interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (l *Limiter) refill() {
	now := time.Now()
	l.tokens += now.Sub(l.lastFill).Seconds() * l.rate
	if l.tokens > l.rate {
		l.tokens = l.rate // cap at burst size = rate
	}
	l.lastFill = now
}
