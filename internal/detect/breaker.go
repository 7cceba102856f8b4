package detect

import (
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/platform"
)

// Circuit-breaker defaults. The comparison semantics are fixed; the
// calibration is policy and overridable per constructor.
const (
	DefaultBreakerThreshold = 10
	DefaultBreakerWindow    = time.Second
)

type breakerWindow struct {
	start time.Time
	count int
}

// Breaker is a per-process sliding-window event-rate limiter. Once a
// process exceeds the threshold within one window, further events are
// suppressed for the remainder of that window. Suppression is a silent
// signal for the polling loop, never an error surfaced to callers.
type Breaker struct {
	mu        sync.Mutex
	clock     platform.Clock
	threshold int
	window    time.Duration
	state     map[int]*breakerWindow
}

// NewBreaker builds a Breaker reading time from clock. Non-positive
// threshold or window select the defaults.
func NewBreaker(clock platform.Clock, threshold int, window time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	if window <= 0 {
		window = DefaultBreakerWindow
	}
	return &Breaker{
		clock:     clock,
		threshold: threshold,
		window:    window,
		state:     make(map[int]*breakerWindow),
	}
}

// Allow records one event for pid and reports whether it may be emitted.
// The first call (or the first after the prior window elapsed) starts a new
// window with count 1; within a window, calls up to the threshold are
// allowed and every call past it is suppressed. Windows are independent
// per pid.
func (b *Breaker) Allow(pid int) bool {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()

	w, ok := b.state[pid]
	if !ok || now.Sub(w.start) >= b.window {
		b.state[pid] = &breakerWindow{start: now, count: 1}
		return true
	}
	w.count++
	return w.count <= b.threshold
}

// Tripped reports whether pid is currently suppressed, without recording
// an event.
func (b *Breaker) Tripped(pid int) bool {
	now := b.clock.Now()
	b.mu.Lock()
	defer b.mu.Unlock()
	w, ok := b.state[pid]
	return ok && now.Sub(w.start) < b.window && w.count > b.threshold
}

// Reset clears all per-process windows.
func (b *Breaker) Reset() {
	b.mu.Lock()
	b.state = make(map[int]*breakerWindow)
	b.mu.Unlock()
}
