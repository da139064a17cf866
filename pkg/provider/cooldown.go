package provider

import (
	"context"
	"sync"
	"time"
)

// Cooldown is the shared rate-limit state for one run. While a caller is
// sitting out a 429 window every other caller funnels through Wait, so nobody
// proceeds past the provider's limit faster than the single window allows.
// The current timeout only ever grows for the life of the run.
type Cooldown struct {
	mu      sync.Mutex
	active  bool
	timeout time.Duration
	step    time.Duration
	waiters []chan struct{}
}

// NewCooldown creates a cooldown starting at base and escalating by step.
func NewCooldown(base, step time.Duration) *Cooldown {
	return &Cooldown{timeout: base, step: step}
}

// Acquire attempts to claim the cooldown window for this caller. hit is the
// caller's 1-based rate-limit count for the current logical call. On success
// it returns the wait the caller must observe before retrying: the full
// current timeout on the first hit, half of it on later hits, which also
// escalate the shared timeout by one step. When another caller already owns
// the window, Acquire returns false and the caller must Wait instead.
func (c *Cooldown) Acquire(hit int) (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active {
		return 0, false
	}

	wait := c.timeout
	if hit > 1 {
		wait = c.timeout / 2
		c.timeout += c.step
	}
	c.active = true
	return wait, true
}

// Release clears the cooldown and wakes every waiter.
func (c *Cooldown) Release() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.active = false
	for _, ch := range c.waiters {
		close(ch)
	}
	c.waiters = nil
}

// Wait blocks until the cooldown clears or the context is done. It returns
// immediately when no window is active.
func (c *Cooldown) Wait(ctx context.Context) error {
	c.mu.Lock()
	if !c.active {
		c.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	c.waiters = append(c.waiters, ch)
	c.mu.Unlock()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ch:
		return nil
	}
}

// Active reports whether a cooldown window is currently held.
func (c *Cooldown) Active() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Timeout returns the current escalated timeout.
func (c *Cooldown) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}
