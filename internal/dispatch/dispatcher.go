package dispatch

import (
	"log"
	"sync"
	"time"
)

// ringSize bounds the recent-event buffer exposed for debugging.
const ringSize = 128

type subscription struct {
	id      int
	types   map[string]bool // empty means all
	actions map[string]bool // empty means all
	handler Handler
}

// Dispatcher receives domain change events, delivers them to matching
// subscribers, and issues debounced refresh notifications per logical key.
type Dispatcher struct {
	mu        sync.RWMutex
	subs      map[int]*subscription
	nextSubID int
	refreshFns []func(key string)
	limiter   *RateLimiter
	recent    []Event
}

// New creates a dispatcher with the given injected rate limiter.
func New(limiter *RateLimiter) *Dispatcher {
	if limiter == nil {
		limiter = NewRateLimiter(time.Second)
	}
	return &Dispatcher{
		subs:    make(map[int]*subscription),
		limiter: limiter,
	}
}

// Subscribe registers a handler for events matching any of types and any of
// actions. Empty slices match everything. The returned function cancels the
// subscription.
func (d *Dispatcher) Subscribe(types, actions []string, handler Handler) func() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextSubID++
	id := d.nextSubID
	d.subs[id] = &subscription{
		id:      id,
		types:   toSet(types),
		actions: toSet(actions),
		handler: handler,
	}

	return func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		delete(d.subs, id)
	}
}

// OnRefresh registers a consumer of debounced refresh keys.
func (d *Dispatcher) OnRefresh(fn func(key string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.refreshFns = append(d.refreshFns, fn)
}

// Publish delivers an event to all matching subscribers and fires debounced
// refresh notifications. A failing or panicking handler never blocks or
// drops delivery to the others.
func (d *Dispatcher) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now()
	}

	d.mu.Lock()
	d.recent = append(d.recent, e)
	if len(d.recent) > ringSize {
		d.recent = d.recent[len(d.recent)-ringSize:]
	}
	subs := make([]*subscription, 0, len(d.subs))
	for _, s := range d.subs {
		subs = append(subs, s)
	}
	refreshFns := append([]func(string){}, d.refreshFns...)
	d.mu.Unlock()

	for _, s := range subs {
		if !s.matches(e) {
			continue
		}
		deliver(s, e)
	}

	for _, key := range RefreshKeys(e) {
		if !d.limiter.Allow(key) {
			continue
		}
		for _, fn := range refreshFns {
			fn(key)
		}
	}
}

// Recent returns up to n of the most recently published events, newest last.
func (d *Dispatcher) Recent(n int) []Event {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n <= 0 || n > len(d.recent) {
		n = len(d.recent)
	}
	out := make([]Event, n)
	copy(out, d.recent[len(d.recent)-n:])
	return out
}

func (s *subscription) matches(e Event) bool {
	if len(s.types) > 0 && !s.types[e.Type] {
		return false
	}
	if len(s.actions) > 0 && !s.actions[e.Action] {
		return false
	}
	return true
}

// deliver invokes one handler, isolating panics and logging failures.
func deliver(s *subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("dispatch: subscriber %d panicked on %s.%s: %v", s.id, e.Type, e.Action, r)
		}
	}()
	if err := s.handler(e); err != nil {
		log.Printf("dispatch: subscriber %d failed on %s.%s: %v", s.id, e.Type, e.Action, err)
	}
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
