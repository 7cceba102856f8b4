package detect

import (
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/platform"
)

// DefaultSuppressionWindow bounds how long after the server activates an
// application its focus/activation events are treated as self-inflicted.
const DefaultSuppressionWindow = 500 * time.Millisecond

// SelfActivation tracks applications the automation layer itself recently
// activated, so the resulting focus events can be told apart from ones the
// user caused. Marks expire after a short window.
type SelfActivation struct {
	mu     sync.Mutex
	clock  platform.Clock
	window time.Duration
	marks  map[int]time.Time
}

// NewSelfActivation builds a tracker reading time from clock. A
// non-positive window selects the default.
func NewSelfActivation(clock platform.Clock, window time.Duration) *SelfActivation {
	if window <= 0 {
		window = DefaultSuppressionWindow
	}
	return &SelfActivation{clock: clock, window: window, marks: make(map[int]time.Time)}
}

// Mark records that the server just activated pid.
func (s *SelfActivation) Mark(pid int) {
	now := s.clock.Now()
	s.mu.Lock()
	s.marks[pid] = now
	s.mu.Unlock()
}

// IsSelfTriggered reports whether an activation event for pid falls inside
// the suppression window of a prior Mark.
func (s *SelfActivation) IsSelfTriggered(pid int) bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	at, ok := s.marks[pid]
	return ok && now.Sub(at) < s.window
}

// HasAnyRecent reports whether any tracked process is currently inside its
// suppression window.
func (s *SelfActivation) HasAnyRecent() bool {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, at := range s.marks {
		if now.Sub(at) < s.window {
			return true
		}
	}
	return false
}

// Reset clears every mark.
func (s *SelfActivation) Reset() {
	s.mu.Lock()
	s.marks = make(map[int]time.Time)
	s.mu.Unlock()
}
