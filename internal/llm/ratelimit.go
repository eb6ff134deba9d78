package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a thread-safe sliding-window limiter gating all reasoning
// capability calls process-wide. Acquire blocks the calling step until a slot
// frees inside the 60-second window; pacing is blocking resource acquisition,
// not a queue with backpressure.
type RateLimiter struct {
	mu         sync.Mutex
	maxPerMin  int
	timestamps []time.Time
	now        func() time.Time
	sleep      func(time.Duration)
}

// NewRateLimiter creates a limiter with the given per-minute budget.
func NewRateLimiter(maxPerMinute int) *RateLimiter {
	if maxPerMinute <= 0 {
		maxPerMinute = 60
	}
	return &RateLimiter{
		maxPerMin: maxPerMinute,
		now:       time.Now,
		sleep:     time.Sleep,
	}
}

// Acquire blocks until a request slot is available or ctx is done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.mu.Lock()
		now := r.now()
		// Purge timestamps older than the window.
		cutoff := now.Add(-time.Minute)
		kept := r.timestamps[:0]
		for _, ts := range r.timestamps {
			if ts.After(cutoff) {
				kept = append(kept, ts)
			}
		}
		r.timestamps = kept

		if len(r.timestamps) < r.maxPerMin {
			r.timestamps = append(r.timestamps, now)
			r.mu.Unlock()
			return nil
		}
		r.mu.Unlock()
		r.sleep(100 * time.Millisecond)
	}
}

// InFlight returns how many slots are currently consumed in the window.
func (r *RateLimiter) InFlight() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-time.Minute)
	n := 0
	for _, ts := range r.timestamps {
		if ts.After(cutoff) {
			n++
		}
	}
	return n
}
