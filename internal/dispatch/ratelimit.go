package dispatch

import (
	"sync"
	"time"
)

// RateLimiter gates refresh keys to at most one fire per window. It is
// constructed once per process and injected into the dispatcher; the
// timestamp map is guarded against concurrent publishes.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	last   map[string]time.Time
	now    func() time.Time
}

// NewRateLimiter creates a limiter with the given debounce window.
func NewRateLimiter(window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		last:   make(map[string]time.Time),
		now:    time.Now,
	}
}

// Allow reports whether key may fire now. A true result records the fire
// time; a false result records nothing, so a suppressed refresh does not
// extend the window — only the next allowed event restarts it.
func (r *RateLimiter) Allow(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if last, ok := r.last[key]; ok && now.Sub(last) <= r.window {
		return false
	}
	r.last[key] = now
	return true
}

// Window returns the configured debounce window.
func (r *RateLimiter) Window() time.Duration {
	return r.window
}
