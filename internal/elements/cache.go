// Package elements implements the TTL-keyed element handle cache. Handles
// map opaque ids to the last captured attribute snapshot plus an optional
// native accessibility reference, scoped to an owning process. A handle
// older than its TTL is logically absent even while still physically
// stored: Get reflects expiry synchronously, and a periodic Sweep reclaims
// storage for entries nobody asks for again.
package elements

import (
	"sync"
	"time"

	"github.com/deskpilot/deskpilot/internal/model"
	"github.com/deskpilot/deskpilot/internal/platform"
)

// DefaultTTL is the handle lifetime when the caller passes none.
const DefaultTTL = 30 * time.Second

// Handle is the public view of one cached element.
type Handle struct {
	ID        string
	PID       int
	Snapshot  model.ElementSnapshot
	NativeRef any
	Touched   time.Time
}

// Stats classifies the physically stored entries without evicting any.
type Stats struct {
	Total   int `yaml:"total" json:"total"`
	Active  int `yaml:"active" json:"active"`
	Expired int `yaml:"expired" json:"expired"`
}

type entry struct {
	snapshot  model.ElementSnapshot
	nativeRef any
	pid       int
	touched   time.Time
}

// Cache is a TTL-keyed element handle store. Safe for concurrent use; all
// operations serialize on one internal mutex and never call out while
// holding it.
type Cache struct {
	mu      sync.Mutex
	clock   platform.Clock
	ids     platform.IDGenerator
	ttl     time.Duration
	entries map[string]*entry
}

// NewCache builds a cache reading time from clock and minting handle ids
// from ids. A non-positive ttl selects DefaultTTL.
func NewCache(clock platform.Clock, ids platform.IDGenerator, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		clock:   clock,
		ids:     ids,
		ttl:     ttl,
		entries: make(map[string]*entry),
	}
}

// TTL returns the configured handle lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }

// Register stores a fresh handle for snapshot and returns its new opaque
// id. nativeRef may be nil.
func (c *Cache) Register(snapshot model.ElementSnapshot, nativeRef any, pid int) string {
	id := c.ids.NewID()
	now := c.clock.Now()
	c.mu.Lock()
	c.entries[id] = &entry{snapshot: snapshot, nativeRef: nativeRef, pid: pid, touched: now}
	c.mu.Unlock()
	return id
}

// Get returns the handle for id, or false if it is unknown or expired.
// Expired entries are evicted on this path so expiry is visible
// synchronously, independent of the sweep.
func (c *Cache) Get(id string) (Handle, bool) {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return Handle{}, false
	}
	if c.expired(e, now) {
		delete(c.entries, id)
		return Handle{}, false
	}
	return Handle{ID: id, PID: e.pid, Snapshot: e.snapshot, NativeRef: e.nativeRef, Touched: e.touched}, true
}

// Update replaces the snapshot for a known handle, refreshing its
// timestamp. A nil nativeRef preserves the existing reference rather than
// clearing it. Returns false for unknown or expired ids.
func (c *Cache) Update(id string, snapshot model.ElementSnapshot, nativeRef any) bool {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[id]
	if !ok {
		return false
	}
	if c.expired(e, now) {
		delete(c.entries, id)
		return false
	}
	e.snapshot = snapshot
	if nativeRef != nil {
		e.nativeRef = nativeRef
	}
	e.touched = now
	return true
}

// Remove deletes a handle. Removing a missing id is a no-op.
func (c *Cache) Remove(id string) {
	c.mu.Lock()
	delete(c.entries, id)
	c.mu.Unlock()
}

// Clear deletes every handle owned by pid and returns how many existed.
// Clearing a pid with no handles is a no-op returning zero.
func (c *Cache) Clear(pid int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if e.pid == pid {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// ForPID returns the live (unexpired) handles owned by pid.
func (c *Cache) ForPID(pid int) []Handle {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Handle
	for id, e := range c.entries {
		if e.pid != pid || c.expired(e, now) {
			continue
		}
		out = append(out, Handle{ID: id, PID: e.pid, Snapshot: e.snapshot, NativeRef: e.nativeRef, Touched: e.touched})
	}
	return out
}

// Sweep evicts every expired entry and returns the number reclaimed. The
// serve layer runs this on a timer; correctness never depends on it
// because Get and Update evict lazily.
func (c *Cache) Sweep() int {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for id, e := range c.entries {
		if c.expired(e, now) {
			delete(c.entries, id)
			n++
		}
	}
	return n
}

// Stats counts stored entries by classification. It does not evict, so
// Total may exceed Active between sweeps.
func (c *Cache) Stats() Stats {
	now := c.clock.Now()
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Stats{Total: len(c.entries)}
	for _, e := range c.entries {
		if c.expired(e, now) {
			s.Expired++
		} else {
			s.Active++
		}
	}
	return s
}

// expired applies the age >= TTL rule: a handle at exactly its TTL is
// already absent.
func (c *Cache) expired(e *entry, now time.Time) bool {
	return now.Sub(e.touched) >= c.ttl
}
